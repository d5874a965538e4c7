package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"unistay/internal/models"
	"unistay/internal/repositories"
	"unistay/internal/utils"
)

const (
	resetTokenTTL   = 30 * time.Minute
	resetTokenBytes = 32
	// purged tokens have been expired at least this long
	resetTokenRetention = 24 * time.Hour
)

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type passwordResetService struct {
	userRepo    repositories.UserRepository
	repo        repositories.PasswordResetRepository
	auth        AuthService
	notifier    Notifier
	frontendURL string
	now         func() time.Time
}

func NewPasswordResetService(
	userRepo repositories.UserRepository,
	repo repositories.PasswordResetRepository,
	auth AuthService,
	notifier Notifier,
	frontendURL string,
) PasswordResetService {
	return &passwordResetService{
		userRepo:    userRepo,
		repo:        repo,
		auth:        auth,
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateStruct(models.ForgotPasswordRequest{Email: email}); err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		utils.Logger.Infof("[password-reset] request for unknown email %q", email)
		return nil
	}

	token, err := utils.NewOpaqueToken(resetTokenBytes)
	if err != nil {
		return err
	}
	expires := s.now().Add(resetTokenTTL)
	if _, err := s.repo.Create(ctx, user.ID, utils.HashToken(token), expires); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
	s.notifier.Enqueue(passwordResetMsg(user.Email, link))
	utils.Logger.Infof("[password-reset] issued token for user id=%d, expires %s", user.ID, expires.Format(time.RFC3339))
	return nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if err := validateStruct(models.ResetPasswordRequest{Token: token, NewPassword: newPassword}); err != nil {
		return err
	}

	rec, err := s.repo.GetByTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		return err
	}
	now := s.now()
	if !rec.Usable(now) {
		return ErrInvalidToken
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	// the claim and the new hash commit together; a concurrent reset with
	// the same token finds it already used
	claimed, err := s.repo.ConsumeAndSetPassword(ctx, rec.ID, rec.UserID, hash, now)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrInvalidToken
	}
	utils.Logger.Infof("[password-reset] password changed for user id=%d", rec.UserID)
	return nil
}

func (s *passwordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now().Add(-resetTokenRetention))
}
