package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email format", ErrInvalidValue)
	ErrInvalidProductName = fmt.Errorf("%w: invalid product name", ErrInvalidValue)
	ErrAmountTooLarge     = fmt.Errorf("%w: amount exceeds maximum allowed", ErrInvalidValue)
)

// Validation constants
const (
	MaxProductNameLength = 255
	MaxAmount            = "1000000000" // 1 billion
	MaxQuantity          = 10000
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(NormalizeEmail(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateProductName validates a catalogue product name
func ValidateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProductName)
	}
	if len(name) > MaxProductNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidProductName, MaxProductNameLength)
	}
	return nil
}

// ValidateMoney checks that amount is non-negative and within bounds.
func ValidateMoney(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidValue)
	}
	if amount.GreaterThan(decimal.RequireFromString(MaxAmount)) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}
	return nil
}

// ValidateQuantity checks a product quantity.
func ValidateQuantity(q int) error {
	if q <= 0 || q > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidValue, MaxQuantity)
	}
	return nil
}

// ValidateLimit clamps a result limit.
func ValidateLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
