package usecase

import (
	"context"
	"strings"

	"github.com/iho/cartsplit/internal/domain"
)

// UserUseCase exposes the user directory.
type UserUseCase struct {
	identity   IdentityProvider
	maxResults int
}

// NewUserUseCase creates a new user use case. maxResults bounds search results.
func NewUserUseCase(identity IdentityProvider, maxResults int) *UserUseCase {
	if maxResults <= 0 {
		maxResults = DefaultUsersResult
	}
	return &UserUseCase{
		identity:   identity,
		maxResults: maxResults,
	}
}

// SearchUsers returns users whose email or display name starts with query.
func (uc *UserUseCase) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.User{}, nil
	}

	users, err := uc.identity.SearchUsers(ctx, strings.ToLower(query), uc.maxResults)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}

// GetUser returns a known user by email.
func (uc *UserUseCase) GetUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := uc.identity.LookupByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
