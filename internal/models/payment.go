package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID                int       `json:"id"`
	InterestRequestID uuid.UUID `json:"interest_request_id"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

type GeneratePaymentRequest struct {
	InterestRequestID string  `json:"interest_request_id" validate:"required,uuid"`
	Amount            float64 `json:"amount" validate:"gt=0"`
	Currency          string  `json:"currency" validate:"required,len=3,alpha"`
}
