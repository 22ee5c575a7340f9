package ratelimit

import (
	"context"
	"time"

	"github.com/ignite/emailguard/internal/domain"
)

// Repository defines the data access contract for rate limit accounts.
// Implementations must make Increment and Reset atomic per account.
type Repository interface {
	// Get returns the account for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*domain.Account, error)

	// Create stores a new account. Returns ErrDuplicateKey if the key exists.
	Create(ctx context.Context, acct *domain.Account) error

	// Increment adds one to Used only if Used < Quota. It returns the
	// account as it stands after the attempt and whether the unit was
	// consumed. Returns ErrNotFound for an unknown key.
	Increment(ctx context.Context, key string) (*domain.Account, bool, error)

	// Reset zeroes Used and moves PeriodResetAt to next, but only if the
	// stored PeriodResetAt still equals expected. Reports whether it did.
	Reset(ctx context.Context, key string, expected, next time.Time) (bool, error)

	// Count returns the number of accounts.
	Count(ctx context.Context) (int, error)
}
