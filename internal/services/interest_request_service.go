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

const maxUpdateAttempts = 3

type InterestRequestService interface {
	Create(ctx context.Context, actor Actor, req models.CreateInterestRequest) (*models.InterestRequest, error)
	ProposeAvailability(ctx context.Context, actor Actor, id uuid.UUID, req models.ProposeAvailabilityRequest) (*models.InterestRequest, error)
	ConfirmAppointment(ctx context.Context, actor Actor, id uuid.UUID, req models.ConfirmAppointmentRequest) (*models.InterestRequest, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status models.InterestStatus) (*models.InterestRequest, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*models.InterestRequest, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.InterestRequest, error)
	ListMine(ctx context.Context, actor Actor) ([]*models.InterestRequest, error)
	ListReceived(ctx context.Context, actor Actor) ([]*models.InterestRequest, error)
	ListAcceptedAwaitingPayment(ctx context.Context, actor Actor) ([]*models.InterestRequest, error)
}

type interestRequestService struct {
	repo     repositories.InterestRequestRepository
	posts    repositories.PostRepository
	users    repositories.UserRepository
	payments repositories.PaymentRepository
	notifier Notifier
}

func NewInterestRequestService(
	repo repositories.InterestRequestRepository,
	posts repositories.PostRepository,
	users repositories.UserRepository,
	payments repositories.PaymentRepository,
	notifier Notifier,
) InterestRequestService {
	return &interestRequestService{
		repo:     repo,
		posts:    posts,
		users:    users,
		payments: payments,
		notifier: notifier,
	}
}

func (s *interestRequestService) Create(ctx context.Context, actor Actor, req models.CreateInterestRequest) (*models.InterestRequest, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	student, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, notFound("user", "id", actor.UserID)
	}
	post, err := s.posts.GetByID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", "id", req.PostID)
	}
	if post.OwnerID == student.ID {
		return nil, validationf("cannot request your own listing")
	}

	existing, err := s.repo.GetByPostAndStudent(ctx, post.ID, student.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictf("an interest request for post %d already exists", post.ID)
	}

	ir := &models.InterestRequest{
		ID:           uuid.New(),
		PostID:       post.ID,
		StudentID:    student.ID,
		Status:       models.StatusCreated,
		Message:      req.Message,
		PostTitle:    post.Title,
		PostOwnerID:  post.OwnerID,
		StudentEmail: student.Email,
	}
	if err := s.repo.Create(ctx, ir); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflictf("an interest request for post %d already exists", post.ID)
		}
		return nil, err
	}
	utils.Logger.Infof("[interest] created %s post=%d student=%d", ir.ID, post.ID, student.ID)

	owner, err := s.users.GetByID(ctx, post.OwnerID)
	switch {
	case err != nil:
		utils.Logger.WithError(err).Warnf("[interest] owner lookup for %s failed, skipping notification", ir.ID)
	case owner != nil:
		ir.PostOwnerEmail = owner.Email
		s.notifier.Enqueue(interestCreatedMsg(ir))
	}
	return ir, nil
}

func (s *interestRequestService) ProposeAvailability(ctx context.Context, actor Actor, id uuid.UUID, req models.ProposeAvailabilityRequest) (*models.InterestRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	avail := models.Availability{
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
	}
	if _, err := parseWindow(avail); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)

	ir, err := s.update(ctx, actor, id, authz.ActionPropose, func(ir *models.InterestRequest) error {
		a := avail
		ir.Availability = &a
		ir.AppointmentMessage = message
		ir.Status = models.StatusInContact
		ir.AppointmentDateTime = nil
		ir.AppointmentConfirmedByStudent = false
		ir.LastUpdatedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Enqueue(availabilityProposedMsg(ir))
	return ir, nil
}

func (s *interestRequestService) ConfirmAppointment(ctx context.Context, actor Actor, id uuid.UUID, req models.ConfirmAppointmentRequest) (*models.InterestRequest, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	slot, err := parseSlot(req.ChosenSlot)
	if err != nil {
		return nil, err
	}

	ir, err := s.update(ctx, actor, id, authz.ActionConfirm, func(ir *models.InterestRequest) error {
		if !canTransition(ir.Status, confirmFrom) || ir.Availability == nil {
			return conflictf("request is %s, expected %s", ir.Status, models.StatusInContact)
		}
		w, err := parseWindow(*ir.Availability)
		if err != nil {
			return err
		}
		if err := w.checkSlot(slot); err != nil {
			return err
		}
		chosen := slot
		ir.AppointmentDateTime = &chosen
		ir.AppointmentConfirmedByStudent = true
		ir.Status = models.StatusAccepted
		ir.LastUpdatedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Enqueue(appointmentAcceptedMsg(ir))
	return ir, nil
}

func (s *interestRequestService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status models.InterestStatus) (*models.InterestRequest, error) {
	status = models.InterestStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if status == models.StatusInContact {
		return nil, conflictf("%s can only be set by proposing availability", models.StatusInContact)
	}
	if !manualStatusTargets[status] {
		return nil, validationf("unknown status %q", status)
	}

	ir, err := s.update(ctx, actor, id, authz.ActionUpdateStatus, func(ir *models.InterestRequest) error {
		ir.Status = status
		ir.LastUpdatedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	to := ir.PostOwnerEmail
	if actor.UserID == ir.PostOwnerID {
		to = ir.StudentEmail
	}
	s.notifier.Enqueue(statusChangedMsg(ir, to))
	return ir, nil
}

func (s *interestRequestService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*models.InterestRequest, error) {
	ir, err := s.update(ctx, actor, id, authz.ActionCancel, func(ir *models.InterestRequest) error {
		ir.Status = models.StatusClosed
		ir.LastUpdatedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Enqueue(interestCancelledMsg(ir))
	return ir, nil
}

func (s *interestRequestService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.InterestRequest, error) {
	return s.load(ctx, actor, id, authz.ActionView)
}

func (s *interestRequestService) ListMine(ctx context.Context, actor Actor) ([]*models.InterestRequest, error) {
	return s.repo.ListByStudent(ctx, actor.UserID)
}

func (s *interestRequestService) ListReceived(ctx context.Context, actor Actor) ([]*models.InterestRequest, error) {
	return s.repo.ListByPostOwner(ctx, actor.UserID)
}

func (s *interestRequestService) ListAcceptedAwaitingPayment(ctx context.Context, actor Actor) ([]*models.InterestRequest, error) {
	accepted, err := s.repo.ListConfirmedByOwner(ctx, actor.UserID, models.StatusAccepted)
	if err != nil {
		return nil, err
	}
	res := make([]*models.InterestRequest, 0, len(accepted))
	for _, ir := range accepted {
		if !ir.AppointmentConfirmedByStudent {
			continue
		}
		paid, err := s.payments.ExistsForInterestRequest(ctx, ir.ID)
		if err != nil {
			return nil, err
		}
		if !paid {
			res = append(res, ir)
		}
	}
	return res, nil
}

// load fetches a request and checks that actor may perform action on it.
func (s *interestRequestService) load(ctx context.Context, actor Actor, id uuid.UUID, action authz.Action) (*models.InterestRequest, error) {
	ir, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ir == nil {
		return nil, notFound("interest request", "id", id)
	}
	rel := authz.RelationOf(actor.UserID, ir.PostOwnerID, ir.StudentID)
	if !authz.Allowed(action, rel) {
		return nil, unauthorizedf("user %d may not %s request %s", actor.UserID, action, id)
	}
	return ir, nil
}

// update runs load, mutate and a version-checked write, retrying when
// another writer got in between.
func (s *interestRequestService) update(
	ctx context.Context,
	actor Actor,
	id uuid.UUID,
	action authz.Action,
	mutate func(*models.InterestRequest) error,
) (*models.InterestRequest, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		ir, err := s.load(ctx, actor, id, action)
		if err != nil {
			return nil, err
		}
		from := ir.Status
		if err := mutate(ir); err != nil {
			return nil, err
		}
		ok, err := s.repo.UpdateIfVersion(ctx, ir)
		if err != nil {
			return nil, err
		}
		if ok {
			utils.Logger.Infof("[interest] %s %s by user %d: %s -> %s", action, id, actor.UserID, from, ir.Status)
			return ir, nil
		}
		utils.Logger.Debugf("[interest] version conflict on %s (attempt %d)", id, attempt)
	}
	return nil, conflictf("request %s was modified concurrently, try again", id)
}
