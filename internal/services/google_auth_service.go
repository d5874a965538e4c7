package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// VerifiedIdentity is what a trusted identity provider vouches for.
type VerifiedIdentity struct {
	Email string
	Name  string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (VerifiedIdentity, error)
}

type googleIdentityVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleIdentityVerifier(clientID string) IdentityVerifier {
	return &googleIdentityVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *googleIdentityVerifier) Verify(ctx context.Context, token string) (VerifiedIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return VerifiedIdentity{}, validationf("id_token is required")
	}
	if v.clientID == "" {
		return VerifiedIdentity{}, fmt.Errorf("google login is not configured")
	}
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	email = normalizeEmail(email)
	if email == "" {
		return VerifiedIdentity{}, fmt.Errorf("%w: token carries no email", ErrInvalidToken)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return VerifiedIdentity{}, fmt.Errorf("%w: email not verified by google", ErrInvalidToken)
	}
	name, _ := payload.Claims["name"].(string)
	return VerifiedIdentity{Email: email, Name: strings.TrimSpace(name)}, nil
}
