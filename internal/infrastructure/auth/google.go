package auth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/iho/cartsplit/internal/domain"
)

// validateFunc matches idtoken.Validate.
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier verifies Google ID tokens issued for clientID.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleVerifier creates a verifier for Google ID tokens.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// VerifyToken implements TokenVerifier.
func (v *GoogleVerifier) VerifyToken(ctx context.Context, token string) (domain.Profile, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return domain.Profile{}, domain.ErrExpiredToken
		}
		return domain.Profile{}, domain.ErrInvalidToken
	}

	email := claimString(payload.Claims, "email")
	if email == "" {
		return domain.Profile{}, domain.ErrInvalidToken
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return domain.Profile{}, errors.Join(domain.ErrInvalidToken, errors.New("email not verified"))
	}

	return domain.Profile{
		Email:       domain.NormalizeEmail(email),
		DisplayName: claimString(payload.Claims, "name"),
		PhotoURL:    claimString(payload.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
