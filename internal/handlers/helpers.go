package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"unistay/internal/middleware"
	"unistay/internal/services"
	"unistay/internal/utils"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: code})
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		abort(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		abort(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, services.ErrConflict):
		abort(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, services.ErrValidation):
		abort(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		abort(c, http.StatusUnauthorized, "invalid_token", services.ErrInvalidToken.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		abort(c, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		utils.Logger.WithError(err).Errorf("[http] %s %s", c.Request.Method, c.FullPath())
		abort(c, http.StatusInternalServerError, "internal_server_error", "internal server error")
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, http.StatusBadRequest, "validation_error", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func mustActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		abort(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return actor, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abort(c, http.StatusBadRequest, "validation_error", name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
