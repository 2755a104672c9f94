package domain

import "errors"

var (
	// Not found errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrDebtNotFound        = errors.New("debt not found")

	// Conflict errors
	ErrSessionExists     = errors.New("an open session already exists for this user")
	ErrParticipantExists = errors.New("participant already attached")
	ErrSessionClosed     = errors.New("session is closed")

	// Value errors
	ErrInvalidValue   = errors.New("invalid value")
	ErrPaymentInvalid = errors.New("total payed does not match total cost")

	// Access errors
	ErrForbidden = errors.New("forbidden for user")
)
