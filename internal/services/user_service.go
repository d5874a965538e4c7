package services

import (
	"context"
	"errors"
	"strings"

	"unistay/internal/authz"
	"unistay/internal/models"
	"unistay/internal/repositories"
	"unistay/internal/utils"
)

const defaultGoogleName = "Google User"

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error)
	Me(ctx context.Context, actor Actor) (*models.User, error)
	// FindOrProvision returns the user for a verified identity, creating a
	// student account on first sight. created reports which branch ran.
	FindOrProvision(ctx context.Context, id VerifiedIdentity) (user *models.User, created bool, err error)
}

type userService struct {
	repo     repositories.UserRepository
	auth     AuthService
	verifier IdentityVerifier
	notifier Notifier
}

func NewUserService(repo repositories.UserRepository, auth AuthService, verifier IdentityVerifier, notifier Notifier) UserService {
	return &userService{
		repo:     repo,
		auth:     auth,
		verifier: verifier,
		notifier: notifier,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	roleID, ok := authz.RoleFromName(req.Role)
	if !ok {
		return nil, validationf("role must be student or owner")
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictf("email %s is already registered", req.Email)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		LastName:     req.LastName,
		PasswordHash: hash,
		RoleID:       roleID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflictf("email %s is already registered", req.Email)
		}
		return nil, err
	}
	utils.Logger.Infof("[auth] registered user id=%d role=%s", user.ID, authz.RoleName(roleID))
	s.notifier.Enqueue(welcomeMsg(user))

	return s.respond(user, true)
}

func (s *userService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.auth.CheckPassword(user.PasswordHash, req.Password) {
		utils.Logger.Infof("[auth] failed login for %q", req.Email)
		return nil, ErrInvalidCredentials
	}
	return s.respond(user, false)
}

func (s *userService) GoogleLogin(ctx context.Context, idToken string) (*models.AuthResponse, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, created, err := s.FindOrProvision(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.respond(user, created)
}

func (s *userService) FindOrProvision(ctx context.Context, id VerifiedIdentity) (*models.User, bool, error) {
	email := normalizeEmail(id.Email)
	if email == "" {
		return nil, false, validationf("verified identity has no email")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = defaultGoogleName
	}
	user = &models.User{Email: email, Name: name, RoleID: authz.RoleStudent}
	err = s.repo.Create(ctx, user)
	if errors.Is(err, repositories.ErrDuplicate) {
		// a concurrent login provisioned it first
		user, err = s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		if user == nil {
			return nil, false, conflictf("could not provision %s", email)
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	utils.Logger.Infof("[auth] provisioned google user id=%d", user.ID)
	return user, true, nil
}

func (s *userService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user", "id", actor.UserID)
	}
	return user, nil
}

func (s *userService) respond(user *models.User, created bool) (*models.AuthResponse, error) {
	token, err := s.auth.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user, Created: created}, nil
}
