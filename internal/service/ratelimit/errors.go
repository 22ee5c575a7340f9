package ratelimit

import (
	"errors"
	"fmt"

	"github.com/ignite/emailguard/internal/domain"
)

// Sentinel errors for the rate limit service layer.
var (
	ErrUnauthorized  = errors.New("invalid or missing API key")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrNotFound      = errors.New("account not found")
	ErrDuplicateKey  = errors.New("api key already exists")
	ErrInvalidPlan   = errors.New("unknown plan")
)

// QuotaExceededError reports which plan's limit was hit.
type QuotaExceededError struct {
	Plan  domain.Plan
	Quota int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s plan allows %d requests per month", e.Plan, e.Quota)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }
