package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/cartsplit/internal/domain"
)

// Claims represents the development token claims. They mirror the profile
// fields of a Google ID token.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Profile returns the caller profile carried by the claims.
func (c *Claims) Profile() domain.Profile {
	return domain.Profile{
		Email:       domain.NormalizeEmail(c.Email),
		DisplayName: c.Name,
		PhotoURL:    c.Picture,
	}
}

// JWTManager issues and verifies HS256 development tokens.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate generates a new token for a profile
func (m *JWTManager) Generate(profile domain.Profile) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:   profile.Email,
		Name:    profile.DisplayName,
		Picture: profile.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify verifies a token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// VerifyToken implements TokenVerifier.
func (m *JWTManager) VerifyToken(_ context.Context, token string) (domain.Profile, error) {
	claims, err := m.Verify(token)
	if err != nil {
		return domain.Profile{}, err
	}
	return claims.Profile(), nil
}
