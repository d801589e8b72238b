package testutil

import (
	"context"
	"sync"

	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/roomcraft/roomcraft/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type mockTxMarker struct{}

// MockPostgresClient is a mock implementation of postgres client for testing.
// It runs transaction functions directly and counts commits so batch tests
// can assert how many transactions were opened.
type MockPostgresClient struct {
	logger *logger.Logger

	mu      sync.Mutex
	commits int
	nested  int

	// CommitErr, when set, is returned after the transaction function
	// succeeds, simulating a commit failure
	CommitErr error
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// If we're already in a transaction, reuse it. The real client opens
	// a savepoint here; the counter lets tests assert that callers scope
	// their per-entity work this way.
	if ctx.Value(types.CtxDBTransaction) != nil {
		c.mu.Lock()
		c.nested++
		c.mu.Unlock()
		return fn(ctx)
	}

	ctx = context.WithValue(ctx, types.CtxDBTransaction, mockTxMarker{})
	if err := fn(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.commits++
	c.mu.Unlock()
	return c.CommitErr
}

// Commits returns the number of committed transactions
func (c *MockPostgresClient) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// NestedTransactions returns how many savepoint-scoped transactions ran
// inside an outer transaction
func (c *MockPostgresClient) NestedTransactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nested
}
