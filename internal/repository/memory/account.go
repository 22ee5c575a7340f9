// Package memory provides process-local repositories. State is lost on
// restart; use the redis or postgres packages for shared deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/service/ratelimit"
)

type accountEntry struct {
	mu   sync.Mutex
	acct domain.Account
}

// AccountRepo implements ratelimit.Repository in memory. Each account has
// its own lock, so admissions on different keys never contend.
type AccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*accountEntry
}

// NewAccountRepo creates an empty in-memory account repository.
func NewAccountRepo() *AccountRepo {
	return &AccountRepo{accounts: make(map[string]*accountEntry)}
}

func (r *AccountRepo) entry(key string) (*accountEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.accounts[key]
	return e, ok
}

func (r *AccountRepo) Get(_ context.Context, key string) (*domain.Account, error) {
	e, ok := r.entry(key)
	if !ok {
		return nil, ratelimit.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	acct := e.acct
	return &acct, nil
}

func (r *AccountRepo) Create(_ context.Context, acct *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acct.Key]; exists {
		return ratelimit.ErrDuplicateKey
	}
	r.accounts[acct.Key] = &accountEntry{acct: *acct}
	return nil
}

func (r *AccountRepo) Increment(_ context.Context, key string) (*domain.Account, bool, error) {
	e, ok := r.entry(key)
	if !ok {
		return nil, false, ratelimit.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	consumed := e.acct.Used < e.acct.Quota
	if consumed {
		e.acct.Used++
	}
	acct := e.acct
	return &acct, consumed, nil
}

func (r *AccountRepo) Reset(_ context.Context, key string, expected, next time.Time) (bool, error) {
	e, ok := r.entry(key)
	if !ok {
		return false, ratelimit.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.acct.PeriodResetAt.Equal(expected) {
		return false, nil
	}
	e.acct.Used = 0
	e.acct.PeriodResetAt = next
	return true, nil
}

func (r *AccountRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts), nil
}
