package services

import (
	"context"
	"strings"

	"unistay/internal/authz"
	"unistay/internal/models"
	"unistay/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PostService interface {
	Create(ctx context.Context, actor Actor, req models.CreatePostRequest) (*models.Post, error)
	Get(ctx context.Context, id int) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByOwner(ctx context.Context, actor Actor) ([]*models.Post, error)
}

type postService struct {
	repo repositories.PostRepository
}

func NewPostService(repo repositories.PostRepository) PostService {
	return &postService{repo: repo}
}

func (s *postService) Create(ctx context.Context, actor Actor, req models.CreatePostRequest) (*models.Post, error) {
	if !authz.IsOwner(actor.RoleID) {
		return nil, unauthorizedf("only owners can publish listings")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Address = strings.TrimSpace(req.Address)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	p := &models.Post{
		OwnerID:     actor.UserID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Address:     req.Address,
		Price:       req.Price,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *postService) Get(ctx context.Context, id int) (*models.Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("post", "id", id)
	}
	return p, nil
}

func (s *postService) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *postService) ListByOwner(ctx context.Context, actor Actor) ([]*models.Post, error) {
	return s.repo.ListByOwner(ctx, actor.UserID)
}
