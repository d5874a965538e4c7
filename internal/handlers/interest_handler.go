package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"unistay/internal/models"
	"unistay/internal/services"
)

type InterestHandler struct {
	interests services.InterestRequestService
	sheets    services.AppointmentSheetService
}

func NewInterestHandler(interests services.InterestRequestService, sheets services.AppointmentSheetService) *InterestHandler {
	return &InterestHandler{interests: interests, sheets: sheets}
}

// Create
// @Summary      Express interest in a listing
// @Tags         Interests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreateInterestRequest  true  "Listing and message"
// @Success      201   {object}  models.InterestRequest
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /interests [post]
func (h *InterestHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req models.CreateInterestRequest
	if !bindJSON(c, &req) {
		return
	}
	ir, err := h.interests.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ir)
}

// GetByID
// @Summary      Get an interest request
// @Description  Visible to the listing owner and the requesting student only
// @Tags         Interests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Interest request ID"
// @Success      200  {object}  models.InterestRequest
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /interests/{id} [get]
func (h *InterestHandler) GetByID(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ir, err := h.interests.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ir)
}

// ProposeAvailability
// @Summary      Propose a visit window (listing owner)
// @Tags         Interests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                             true  "Interest request ID"
// @Param        body  body      models.ProposeAvailabilityRequest  true  "Window"
// @Success      200   {object}  models.InterestRequest
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /interests/{id}/availability [put]
func (h *InterestHandler) ProposeAvailability(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.ProposeAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	ir, err := h.interests.ProposeAvailability(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ir)
}

// ConfirmAppointment
// @Summary      Confirm a slot (requesting student)
// @Tags         Interests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                            true  "Interest request ID"
// @Param        body  body      models.ConfirmAppointmentRequest  true  "Chosen slot"
// @Success      200   {object}  models.InterestRequest
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /interests/{id}/confirm [put]
func (h *InterestHandler) ConfirmAppointment(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.ConfirmAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	ir, err := h.interests.ConfirmAppointment(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ir)
}

// UpdateStatus
// @Summary      Change the status of a request
// @Description  IN_CONTACT cannot be set here; propose availability instead
// @Tags         Interests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                      true  "Interest request ID"
// @Param        body  body      models.UpdateStatusRequest  true  "Target status"
// @Success      200   {object}  models.InterestRequest
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /interests/{id}/status [put]
func (h *InterestHandler) UpdateStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ir, err := h.interests.UpdateStatus(c.Request.Context(), actor, id, models.InterestStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ir)
}

// Cancel
// @Summary      Cancel a request (requesting student)
// @Tags         Interests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Interest request ID"
// @Success      200  {object}  models.InterestRequest
// @Failure      403  {object}  ErrorResponse
// @Router       /interests/{id}/cancel [put]
func (h *InterestHandler) Cancel(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ir, err := h.interests.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ir)
}

// ListMine
// @Summary      Requests sent by the caller
// @Tags         Interests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.InterestRequest
// @Router       /interests/mine [get]
func (h *InterestHandler) ListMine(c *gin.Context) {
	h.list(c, h.interests.ListMine)
}

// ListReceived
// @Summary      Requests on the caller's listings
// @Tags         Interests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.InterestRequest
// @Router       /interests/received [get]
func (h *InterestHandler) ListReceived(c *gin.Context) {
	h.list(c, h.interests.ListReceived)
}

// ListAwaitingPayment
// @Summary      Accepted, confirmed requests without a payment
// @Tags         Interests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.InterestRequest
// @Router       /interests/accepted [get]
func (h *InterestHandler) ListAwaitingPayment(c *gin.Context) {
	h.list(c, h.interests.ListAcceptedAwaitingPayment)
}

type listFunc func(ctx context.Context, actor services.Actor) ([]*models.InterestRequest, error)

func (h *InterestHandler) list(c *gin.Context, fetch listFunc) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	items, err := fetch(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

// AppointmentSheet
// @Summary      Download the appointment sheet
// @Description  One-page PDF for a confirmed appointment
// @Tags         Interests
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path      string  true  "Interest request ID"
// @Success      200  {file}    file
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /interests/{id}/appointment.pdf [get]
func (h *InterestHandler) AppointmentSheet(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.sheets.Render(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="appointment-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", doc)
}
