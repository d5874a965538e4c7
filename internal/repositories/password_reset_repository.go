package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"unistay/internal/models"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	// ConsumeAndSetPassword claims the token and stores the user's new
	// password hash in one transaction. It reports false, changing nothing,
	// when the token is already used or expired at now; any error rolls
	// both writes back.
	ConsumeAndSetPassword(ctx context.Context, id, userID int, passwordHash string, now time.Time) (bool, error)
	// PurgeExpired deletes every token that expired before the cutoff, used or not.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type passwordResetRepository struct {
	DB *sql.DB
}

func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{DB: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	const q = `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	t := &models.PasswordResetToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	if err := r.DB.QueryRowContext(ctx, q, userID, tokenHash, expiresAt).Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert reset token: %w", err)
	}
	return t, nil
}

func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	const q = `
		SELECT id, user_id, token_hash, expires_at, used, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`
	t := &models.PasswordResetToken{}
	var usedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, q, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Used, &usedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reset token: %w", err)
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return t, nil
}

// claimResetToken must agree with models.PasswordResetToken.Usable: a
// token is still valid at exactly expires_at.
const claimResetToken = `
	UPDATE password_reset_tokens
	SET used = TRUE, used_at = $2
	WHERE id = $1 AND used = FALSE AND expires_at >= $2
`

func (r *passwordResetRepository) ConsumeAndSetPassword(ctx context.Context, id, userID int, passwordHash string, now time.Time) (claimed bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin password reset: %w", err)
	}
	defer func() {
		if !claimed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, claimResetToken, id, now)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		if err != nil {
			return false, fmt.Errorf("consume reset token: %w", err)
		}
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return false, fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, fmt.Errorf("update password: user %d: %w", userID, sql.ErrNoRows)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit password reset: %w", err)
	}
	return true, nil
}

func (r *passwordResetRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	return res.RowsAffected()
}
