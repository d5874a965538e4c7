package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"unistay/internal/authz"
	"unistay/internal/models"
	"unistay/internal/repositories"
	"unistay/internal/utils"
)

type PaymentService interface {
	Generate(ctx context.Context, actor Actor, req models.GeneratePaymentRequest) (*models.Payment, error)
}

type paymentService struct {
	repo      repositories.PaymentRepository
	interests repositories.InterestRequestRepository
}

func NewPaymentService(repo repositories.PaymentRepository, interests repositories.InterestRequestRepository) PaymentService {
	return &paymentService{repo: repo, interests: interests}
}

func (s *paymentService) Generate(ctx context.Context, actor Actor, req models.GeneratePaymentRequest) (*models.Payment, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(req.InterestRequestID)
	if err != nil {
		return nil, validationf("interest_request_id must be a uuid")
	}

	ir, err := s.interests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ir == nil {
		return nil, notFound("interest request", "id", id)
	}
	if !authz.Allowed(authz.ActionGeneratePayment, authz.RelationOf(actor.UserID, ir.PostOwnerID, ir.StudentID)) {
		return nil, unauthorizedf("only the listing owner can generate a payment")
	}
	if ir.Status != models.StatusAccepted || !ir.AppointmentConfirmedByStudent {
		return nil, conflictf("request %s is not accepted and confirmed", id)
	}

	paid, err := s.repo.ExistsForInterestRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, conflictf("a payment for request %s already exists", id)
	}

	p := &models.Payment{InterestRequestID: id, Amount: req.Amount, Currency: req.Currency}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflictf("a payment for request %s already exists", id)
		}
		return nil, err
	}
	utils.Logger.Infof("[payment] generated %d for request %s", p.ID, id)
	return p, nil
}
