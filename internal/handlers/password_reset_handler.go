package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"unistay/internal/models"
	"unistay/internal/services"
)

type PasswordResetHandler struct {
	resets services.PasswordResetService
}

func NewPasswordResetHandler(resets services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets}
}

// ForgotPassword
// @Summary      Request a password reset link
// @Description  Always answers the same way whether or not the email is registered
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Email"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/forgot-password [post]
func (h *PasswordResetHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "if the email is registered, a reset link has been sent"})
}

// ResetPassword
// @Summary      Set a new password with a reset token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/reset-password [post]
func (h *PasswordResetHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.resets.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	if errors.Is(err, services.ErrInvalidToken) {
		abort(c, http.StatusBadRequest, "invalid_token", services.ErrInvalidToken.Error())
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
