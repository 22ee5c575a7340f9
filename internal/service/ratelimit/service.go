package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/pkg/logger"
)

// KeyPrefix starts every issued API key.
const KeyPrefix = "demo_"

const keyEntropyBytes = 16

// maxIssueAttempts bounds retries on an (astronomically unlikely) key collision.
const maxIssueAttempts = 3

// DefaultPlans is the built-in plan table.
func DefaultPlans() map[domain.Plan]domain.PlanLimits {
	return map[domain.Plan]domain.PlanLimits{
		domain.PlanFree:    {Quota: 100, BulkCap: 100},
		domain.PlanStarter: {Quota: 5000, BulkCap: 1000},
		domain.PlanPro:     {Quota: 50000, BulkCap: 1000},
	}
}

// Usage is the caller-facing view of an account's consumption.
type Usage struct {
	Plan           domain.Plan `json:"plan"`
	Limit          int         `json:"limit"`
	Used           int         `json:"used"`
	Remaining      int         `json:"remaining"`
	ResetDate      time.Time   `json:"reset_date"`
	PercentageUsed float64     `json:"percentage_used"`
}

// Options configures the service. Zero values select the defaults.
type Options struct {
	Plans  map[domain.Plan]domain.PlanLimits
	Period time.Duration
	Now    func() time.Time
}

// Service implements API key admission. It is safe for concurrent use.
type Service struct {
	repo   Repository
	plans  map[domain.Plan]domain.PlanLimits
	period time.Duration
	now    func() time.Time
}

// NewService creates a rate limit service backed by the given repository.
func NewService(repo Repository, opts Options) *Service {
	plans := DefaultPlans()
	for p, l := range opts.Plans {
		plans[p] = l
	}
	if opts.Period <= 0 {
		opts.Period = domain.DefaultPeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{repo: repo, plans: plans, period: opts.Period, now: opts.Now}
}

// Limits returns the limits for plan.
func (s *Service) Limits(plan domain.Plan) (domain.PlanLimits, bool) {
	l, ok := s.plans[plan]
	return l, ok
}

// Admit authenticates key and consumes one unit of its quota. It returns
// ErrUnauthorized for an unknown key and a *QuotaExceededError when the
// period's quota is spent; usage is left unchanged in both cases.
func (s *Service) Admit(ctx context.Context, key string) (*domain.Account, error) {
	if _, err := s.Lookup(ctx, key); err != nil {
		return nil, err
	}

	acct, ok, err := s.repo.Increment(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("admit: %w", err)
	}
	if !ok {
		logger.Info("quota exceeded", "api_key", key, "plan", acct.Plan, "quota", acct.Quota)
		return nil, &QuotaExceededError{Plan: acct.Plan, Quota: acct.Quota}
	}
	return acct, nil
}

// Lookup authenticates key and applies any pending period rollover without
// consuming quota.
func (s *Service) Lookup(ctx context.Context, key string) (*domain.Account, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrUnauthorized
	}

	acct, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	now := s.now()
	if !acct.Expired(now) {
		return acct, nil
	}

	next := acct.NextReset(now, s.period)
	swapped, err := s.repo.Reset(ctx, key, acct.PeriodResetAt, next)
	if err != nil {
		return nil, fmt.Errorf("reset period: %w", err)
	}
	if swapped {
		logger.Info("usage period rolled over", "api_key", key, "next_reset", next.Format(time.RFC3339))
		acct.Used = 0
		acct.PeriodResetAt = next
		return acct, nil
	}

	// Someone else rolled it over first; read the fresh state.
	acct, err = s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return acct, nil
}

// Issue creates an account on plan with a freshly generated key.
func (s *Service) Issue(ctx context.Context, plan domain.Plan) (*domain.Account, error) {
	var lastErr error
	for i := 0; i < maxIssueAttempts; i++ {
		key, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		acct, err := s.create(ctx, key, plan)
		if errors.Is(err, ErrDuplicateKey) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		logger.Info("api key issued", "api_key", key, "plan", plan)
		return acct, nil
	}
	return nil, fmt.Errorf("issue key: %w", lastErr)
}

// Seed creates an account for a fixed key. An existing key is left as is.
func (s *Service) Seed(ctx context.Context, key string, plan domain.Plan) error {
	_, err := s.create(ctx, key, plan)
	if errors.Is(err, ErrDuplicateKey) {
		return nil
	}
	return err
}

func (s *Service) create(ctx context.Context, key string, plan domain.Plan) (*domain.Account, error) {
	limits, ok := s.plans[plan]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	now := s.now().UTC().Truncate(time.Second)
	acct := &domain.Account{
		ID:            uuid.New().String(),
		Key:           key,
		Plan:          plan,
		Quota:         limits.Quota,
		PeriodResetAt: now.Add(s.period),
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Usage summarizes acct for reporting.
func (s *Service) Usage(acct *domain.Account) Usage {
	u := Usage{
		Plan:      acct.Plan,
		Limit:     acct.Quota,
		Used:      acct.Used,
		Remaining: acct.Remaining(),
		ResetDate: acct.PeriodResetAt,
	}
	if acct.Quota > 0 {
		u.PercentageUsed = math.Round(float64(acct.Used)/float64(acct.Quota)*10000) / 100
	}
	return u
}

// Count returns the number of known accounts.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	b := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}
