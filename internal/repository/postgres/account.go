package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/service/ratelimit"
)

const pqUniqueViolation = "23505"

const accountColumns = `id, api_key, plan, quota, used, period_reset_at, created_at`

const accountSchema = `
CREATE TABLE IF NOT EXISTS emailguard_accounts (
	id              UUID PRIMARY KEY,
	api_key         TEXT NOT NULL UNIQUE,
	plan            TEXT NOT NULL,
	quota           INTEGER NOT NULL CHECK (quota >= 0),
	used            INTEGER NOT NULL DEFAULT 0 CHECK (used >= 0),
	period_reset_at TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// AccountRepo implements ratelimit.Repository against PostgreSQL.
type AccountRepo struct{ db *sql.DB }

// NewAccountRepo creates a Postgres-backed account repository.
func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureSchema creates the accounts table if it does not exist.
func (r *AccountRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, accountSchema); err != nil {
		return fmt.Errorf("ensure account schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var plan string
	if err := row.Scan(&a.ID, &a.Key, &plan, &a.Quota, &a.Used, &a.PeriodResetAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Plan = domain.Plan(plan)
	a.PeriodResetAt = a.PeriodResetAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (r *AccountRepo) Get(ctx context.Context, key string) (*domain.Account, error) {
	acct, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM emailguard_accounts WHERE api_key = $1`,
		key,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ratelimit.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

func (r *AccountRepo) Create(ctx context.Context, acct *domain.Account) error {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emailguard_accounts (id, api_key, plan, quota, used, period_reset_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, acct.ID, acct.Key, string(acct.Plan), acct.Quota, acct.Used, acct.PeriodResetAt, acct.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ratelimit.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Increment relies on the row lock taken by UPDATE: the used < quota guard
// is re-evaluated against the committed row, so concurrent callers cannot
// push used past quota.
func (r *AccountRepo) Increment(ctx context.Context, key string) (*domain.Account, bool, error) {
	acct, err := scanAccount(r.db.QueryRowContext(ctx, `
		UPDATE emailguard_accounts SET used = used + 1
		WHERE api_key = $1 AND used < quota
		RETURNING `+accountColumns,
		key,
	))
	if err == nil {
		return acct, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("increment usage: %w", err)
	}

	// Either the key is unknown or the quota is spent.
	acct, err = r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return acct, false, nil
}

func (r *AccountRepo) Reset(ctx context.Context, key string, expected, next time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE emailguard_accounts SET used = 0, period_reset_at = $3
		WHERE api_key = $1 AND period_reset_at = $2
	`, key, expected, next)
	if err != nil {
		return false, fmt.Errorf("reset usage: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM emailguard_accounts WHERE api_key = $1)`,
		key,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("reset usage: %w", err)
	}
	if !exists {
		return false, ratelimit.ErrNotFound
	}
	return false, nil
}

func (r *AccountRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emailguard_accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}
