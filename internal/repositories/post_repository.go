package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"unistay/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByOwner(ctx context.Context, ownerID int) ([]*models.Post, error)
}

type postRepository struct {
	DB *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{DB: db}
}

const postColumns = `id, owner_id, title, description, address, price, created_at`

func (r *postRepository) Create(ctx context.Context, p *models.Post) error {
	const q = `
		INSERT INTO posts (owner_id, title, description, address, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.DB.QueryRowContext(ctx, q,
		p.OwnerID, p.Title, p.Description, p.Address, p.Price,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	p := &models.Post{}
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id).
		Scan(&p.ID, &p.OwnerID, &p.Title, &desc, &p.Address, &p.Price, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	p.Description = desc.String
	return p, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID int) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *postRepository) query(ctx context.Context, q string, args ...any) ([]*models.Post, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var res []*models.Post
	for rows.Next() {
		p := &models.Post{}
		var desc sql.NullString
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &desc, &p.Address, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Description = desc.String
		res = append(res, p)
	}
	return res, rows.Err()
}
