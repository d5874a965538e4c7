package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"unistay/internal/authz"
	"unistay/internal/models"
	"unistay/internal/pdf"
	"unistay/internal/repositories"
)

type AppointmentSheetService interface {
	Render(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, error)
}

type appointmentSheetService struct {
	interests repositories.InterestRequestRepository
	posts     repositories.PostRepository
	users     repositories.UserRepository
	gen       pdf.Generator
	now       func() time.Time
}

func NewAppointmentSheetService(
	interests repositories.InterestRequestRepository,
	posts repositories.PostRepository,
	users repositories.UserRepository,
	gen pdf.Generator,
) AppointmentSheetService {
	return &appointmentSheetService{interests: interests, posts: posts, users: users, gen: gen, now: time.Now}
}

func (s *appointmentSheetService) Render(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, error) {
	ir, err := s.interests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ir == nil {
		return nil, notFound("interest request", "id", id)
	}
	if !authz.Allowed(authz.ActionAppointmentSheet, authz.RelationOf(actor.UserID, ir.PostOwnerID, ir.StudentID)) {
		return nil, unauthorizedf("user %d may not view request %s", actor.UserID, id)
	}
	if ir.Status != models.StatusAccepted || !ir.AppointmentConfirmedByStudent || ir.AppointmentDateTime == nil {
		return nil, conflictf("request %s has no confirmed appointment", id)
	}

	post, err := s.posts.GetByID(ctx, ir.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", "id", ir.PostID)
	}
	owner, err := s.users.GetByID(ctx, ir.PostOwnerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, notFound("user", "id", ir.PostOwnerID)
	}
	student, err := s.users.GetByID(ctx, ir.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, notFound("user", "id", ir.StudentID)
	}

	data := pdf.AppointmentData{
		RequestID:    ir.ID.String(),
		PostTitle:    post.Title,
		Address:      post.Address,
		Price:        post.Price,
		OwnerName:    fullName(owner),
		OwnerEmail:   owner.Email,
		StudentName:  fullName(student),
		StudentEmail: student.Email,
		At:           *ir.AppointmentDateTime,
		Message:      ir.AppointmentMessage,
		GeneratedAt:  s.now(),
	}
	if ir.Availability != nil {
		data.SlotMinutes = ir.Availability.SlotDurationMinutes
	}
	return s.gen.AppointmentSheet(data)
}

func fullName(u *models.User) string {
	return strings.TrimSpace(u.Name + " " + u.LastName)
}
