// Package auth verifies bearer tokens and keeps the user directory in sync
// with the identity provider.
package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cartsplit/internal/domain"
)

// TokenVerifier turns a bearer token into the caller's profile.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.Profile, error)
}

// UserDirectory stores users seen by the identity provider.
type UserDirectory interface {
	Upsert(ctx context.Context, user *domain.User) error
}

// DirectoryVerifier records every verified caller in the user directory so
// that lookup and search know about them.
type DirectoryVerifier struct {
	next   TokenVerifier
	users  UserDirectory
	logger zerolog.Logger
}

// NewDirectoryVerifier wraps next.
func NewDirectoryVerifier(next TokenVerifier, users UserDirectory, logger zerolog.Logger) *DirectoryVerifier {
	return &DirectoryVerifier{next: next, users: users, logger: logger}
}

// VerifyToken implements TokenVerifier. A directory failure does not reject
// an otherwise valid token.
func (v *DirectoryVerifier) VerifyToken(ctx context.Context, token string) (domain.Profile, error) {
	profile, err := v.next.VerifyToken(ctx, token)
	if err != nil {
		return domain.Profile{}, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := v.users.Upsert(ctx, user); err != nil {
		v.logger.Warn().Err(err).Str("email", profile.Email).Msg("failed to record user")
	}

	return profile, nil
}
