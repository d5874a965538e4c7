package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"unistay/internal/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	ExistsForInterestRequest(ctx context.Context, interestRequestID uuid.UUID) (bool, error)
}

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{DB: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *models.Payment) error {
	const q = `
		INSERT INTO payments (interest_request_id, amount, currency)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, q, p.InterestRequestID, p.Amount, p.Currency).Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) ExistsForInterestRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE interest_request_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("payment exists %s: %w", id, err)
	}
	return exists, nil
}
