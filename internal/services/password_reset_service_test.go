package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistay/internal/authz"
	"unistay/internal/models"
	"unistay/internal/utils"
)

type resetFixture struct {
	users    *fakeUserRepo
	tokens   *fakeResetRepo
	notifier *recordingNotifier
	auth     AuthService
	svc      *passwordResetService
	clock    time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	users := newFakeUserRepo(&models.User{ID: 7, Email: "ana@example.com", Name: "Ana", RoleID: authz.RoleStudent})
	f := &resetFixture{
		users:    users,
		tokens:   newFakeResetRepo(users),
		notifier: &recordingNotifier{},
		auth:     NewAuthService("secret", time.Hour),
		clock:    time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := NewPasswordResetService(f.users, f.tokens, f.auth, f.notifier, "https://app.example.com/").(*passwordResetService)
	svc.now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

// issue requests a reset and returns the raw token from the emailed link.
func (f *resetFixture) issue(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.svc.RequestReset(context.Background(), "  Ana@Example.com "))
	sent := f.notifier.all()
	require.NotEmpty(t, sent)
	body := sent[len(sent)-1].Body
	_, after, found := strings.Cut(body, "/reset-password?token=")
	require.True(t, found, "link missing from %q", body)
	token, _, _ := strings.Cut(after, "\n")
	return token
}

func TestRequestReset_UnknownEmailIsSilent(t *testing.T) {
	f := newResetFixture(t)

	err := f.svc.RequestReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, f.tokens.tokens)
	assert.Empty(t, f.notifier.all())
}

func TestRequestReset_InvalidEmail(t *testing.T) {
	f := newResetFixture(t)
	err := f.svc.RequestReset(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestReset_StoresHashAndEmailsLink(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)

	assert.Len(t, token, 64)
	require.Len(t, f.tokens.tokens, 1)
	stored := f.tokens.tokens[1]
	assert.Equal(t, 7, stored.UserID)
	assert.Equal(t, utils.HashToken(token), stored.TokenHash)
	assert.NotContains(t, stored.TokenHash, token)
	assert.Equal(t, f.clock.Add(30*time.Minute), stored.ExpiresAt)

	msg := f.notifier.all()[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, KindPasswordReset, msg.Kind)
	assert.Contains(t, msg.Body, "https://app.example.com/reset-password?token="+token)
}

func TestResetPassword_Success(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)
	f.clock = f.clock.Add(29 * time.Minute)

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "n3w-passw0rd"))

	user, _ := f.users.GetByID(context.Background(), 7)
	assert.True(t, f.auth.CheckPassword(user.PasswordHash, "n3w-passw0rd"))
	assert.True(t, f.tokens.tokens[1].Used)
}

func TestResetPassword_ExpiresAfterThirtyMinutes(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)
	f.clock = f.clock.Add(31 * time.Minute)

	err := f.svc.ResetPassword(context.Background(), token, "n3w-passw0rd")
	assert.ErrorIs(t, err, ErrInvalidToken)

	user, _ := f.users.GetByID(context.Background(), 7)
	assert.Empty(t, user.PasswordHash)
}

func TestResetPassword_ConsumedOnce(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "first-password"))
	err := f.svc.ResetPassword(context.Background(), token, "second-password")
	assert.ErrorIs(t, err, ErrInvalidToken)

	user, _ := f.users.GetByID(context.Background(), 7)
	assert.True(t, f.auth.CheckPassword(user.PasswordHash, "first-password"))
}

func TestResetPassword_FailedWriteKeepsToken(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)
	f.tokens.failWrites = 1
	ctx := context.Background()

	err := f.svc.ResetPassword(ctx, token, "n3w-passw0rd")
	require.Error(t, err)
	assert.False(t, f.tokens.tokens[1].Used)
	user, _ := f.users.GetByID(ctx, 7)
	assert.Empty(t, user.PasswordHash)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "n3w-passw0rd"))
	user, _ = f.users.GetByID(ctx, 7)
	assert.True(t, f.auth.CheckPassword(user.PasswordHash, "n3w-passw0rd"))
	assert.True(t, f.tokens.tokens[1].Used)
}

func TestResetPassword_ValidAtExactExpiry(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)
	f.clock = f.clock.Add(30 * time.Minute)

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "n3w-passw0rd"))
}

func TestResetPassword_Rejections(t *testing.T) {
	f := newResetFixture(t)
	token := f.issue(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "deadbeef", "long-enough"), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "short"), ErrValidation)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "", "long-enough"), ErrValidation)
	assert.False(t, f.tokens.tokens[1].Used, "failed attempts must not burn the token")
}

func TestPurgeExpired(t *testing.T) {
	f := newResetFixture(t)
	f.issue(t)
	ctx := context.Background()

	n, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, f.clock.Add(-24*time.Hour), f.tokens.purgedAt)

	f.clock = f.clock.Add(25 * time.Hour)
	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
