package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unistay/internal/models"
	"unistay/internal/services"
)

type PostHandler struct {
	posts services.PostService
}

func NewPostHandler(posts services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// Create
// @Summary      Publish a listing
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreatePostRequest  true  "Listing"
// @Success      201   {object}  models.Post
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req models.CreatePostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetByID
// @Summary      Get a listing
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  models.Post
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [get]
func (h *PostHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "validation_error", "id must be a positive integer")
		return
	}
	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// List
// @Summary      Browse listings
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (max 100)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   models.Post
// @Router       /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	posts, err := h.posts.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(posts))
}

// ListMine
// @Summary      Listings owned by the caller
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Post
// @Router       /posts/mine [get]
func (h *PostHandler) ListMine(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	posts, err := h.posts.ListByOwner(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(posts))
}

// nonNil keeps empty lists as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
