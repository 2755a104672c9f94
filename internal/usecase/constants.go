package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultUsersResult is how many users a search returns by default
	DefaultUsersResult = 10

	// DefaultHistoryLimit and MaxHistoryLimit bound history queries
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// ProductCacheTTL is how long product lookups stay cached
	ProductCacheTTL = 10 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
