package usecase

import (
	"context"
	"time"

	"github.com/iho/cartsplit/internal/domain"
)

// SessionRepository defines data access for shopping sessions.
type SessionRepository interface {
	// Create stores a new session. An open session claims its participants and
	// returns domain.ErrSessionExists if any of them already has an open session.
	Create(ctx context.Context, tx Transaction, session *domain.Session) error
	GetOpenByEmail(ctx context.Context, email string) (*domain.Session, error)
	// GetOpenByEmailForUpdate loads and locks the open session of email.
	GetOpenByEmailForUpdate(ctx context.Context, tx Transaction, email string) (*domain.Session, error)
	// Save replaces participants and products of an existing session.
	Save(ctx context.Context, tx Transaction, session *domain.Session) error
	Delete(ctx context.Context, tx Transaction, id string) error
	ListClosedByEmail(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Session, error)
}

// ProductRepository defines data access for the product catalogue.
type ProductRepository interface {
	// Resolve finds a product by id, then barcode or name, creating it when absent.
	Resolve(ctx context.Context, tx Transaction, lookup domain.ProductLookup, newID string) (*domain.Product, error)
	GetDetails(ctx context.Context, id string) (*domain.ProductDetails, error)
	SearchLatestByName(ctx context.Context, name string) (*domain.ProductDetails, error)
}

// DebtRepository defines data access for debts.
type DebtRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, debts []*domain.Debt) error
	GetByID(ctx context.Context, id string) (*domain.Debt, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Debt, error)
	Update(ctx context.Context, tx Transaction, debt *domain.Debt) error
	ListUnpaid(ctx context.Context, filter domain.DebtFilter) (owedBy, owedTo []*domain.Debt, err error)
}

// DeviceRepository defines data access for push registration tokens.
type DeviceRepository interface {
	Upsert(ctx context.Context, device *domain.Device) error
	GetByEmail(ctx context.Context, email string) (*domain.Device, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// IdentityProvider resolves users known to the authentication provider.
type IdentityProvider interface {
	LookupByEmail(ctx context.Context, email string) (*domain.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error)
}

// Broadcaster tells connected clients of the given users to refetch state.
// Delivery is best-effort.
type Broadcaster interface {
	Notify(ctx context.Context, emails []string)
}

// NutritionSource looks up public food data for a barcode.
type NutritionSource interface {
	Lookup(ctx context.Context, barcode string) (*domain.Nutrition, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries operations that failed on transient database conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
