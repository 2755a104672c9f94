package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Profile is the denormalized display info of a user.
type Profile struct {
	Email       string
	DisplayName string
	PhotoURL    string
}

// User is a directory entry maintained from the identity provider.
type User struct {
	Email       string
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile returns the user's display info.
func (u User) Profile() Profile {
	return Profile{Email: u.Email, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
}

// Name returns the display name, derived from the email when none is set.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return DisplayNameFromEmail(p.Email)
}

var (
	digitsRegex    = regexp.MustCompile(`[0-9]+`)
	separatorRegex = regexp.MustCompile(`[._]`)
)

// DisplayNameFromEmail builds a readable name from the local part of an
// email: digits dropped, at most the first two words capitalized.
// "john.doe42@x.com" gives "John Doe".
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = digitsRegex.ReplaceAllString(local, "")

	words := make([]string, 0, 2)
	for _, w := range separatorRegex.Split(local, -1) {
		if w == "" {
			continue
		}
		words = append(words, strings.ToUpper(w[:1])+strings.ToLower(w[1:]))
		if len(words) == 2 {
			break
		}
	}
	return strings.Join(words, " ")
}

// Authentication errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")
)
