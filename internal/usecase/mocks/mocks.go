package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/iho/cartsplit/internal/usecase"
)

// MockTransactionManager is a mock implementation of TransactionManager.
// It hands out MockTransactions and keeps them for inspection.
type MockTransactionManager struct {
	mu  sync.Mutex
	txs []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

// Transactions returns every transaction begun so far.
func (m *MockTransactionManager) Transactions() []*MockTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockTransaction(nil), m.txs...)
}

// Committed reports how many transactions were committed.
func (m *MockTransactionManager) Committed() int {
	n := 0
	for _, tx := range m.Transactions() {
		if tx.Committed {
			n++
		}
	}
	return n
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

// Rollback after a successful commit is a no-op, as in pgx.
func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator returning id-1, id-2, ...
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%d", m.counter)
}

// MockRetrier is a mock implementation of Retrier that runs the operation
// up to Attempts times, stopping at the first success.
type MockRetrier struct {
	Attempts int
	Calls    int
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		m.Calls++
		if err = operation(); err == nil {
			return nil
		}
	}
	return err
}

// MockBroadcaster is a mock implementation of Broadcaster that records
// every notification.
type MockBroadcaster struct {
	mu      sync.Mutex
	batches [][]string
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Notify(ctx context.Context, emails []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), emails...))
}

// Notified returns the recorded batches in call order.
func (m *MockBroadcaster) Notified() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.batches...)
}
