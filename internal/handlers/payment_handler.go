package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unistay/internal/models"
	"unistay/internal/services"
)

type PaymentHandler struct {
	payments services.PaymentService
}

func NewPaymentHandler(payments services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Generate
// @Summary      Generate a payment for an accepted request (listing owner)
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.GeneratePaymentRequest  true  "Payment"
// @Success      201   {object}  models.Payment
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /payments [post]
func (h *PaymentHandler) Generate(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req models.GeneratePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.Generate(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
