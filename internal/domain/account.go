package domain

import "time"

// Plan is the subscription tier attached to an API key.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro:
		return true
	}
	return false
}

// PlanLimits holds the quota and bulk cap for a plan.
type PlanLimits struct {
	Quota   int `json:"quota" yaml:"quota"`       // validations per period
	BulkCap int `json:"bulk_cap" yaml:"bulk_cap"` // max addresses per bulk request
}

// DefaultPeriod is the length of a quota period.
const DefaultPeriod = 30 * 24 * time.Hour

// Account tracks quota usage for one API key.
type Account struct {
	ID            string    `json:"id" db:"id"`
	Key           string    `json:"-" db:"api_key"`
	Plan          Plan      `json:"plan" db:"plan"`
	Quota         int       `json:"quota" db:"quota"`
	Used          int       `json:"used" db:"used"`
	PeriodResetAt time.Time `json:"period_reset_at" db:"period_reset_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Remaining returns the number of admissions left in the current period.
func (a *Account) Remaining() int {
	if r := a.Quota - a.Used; r > 0 {
		return r
	}
	return 0
}

// Expired reports whether the current period has ended at now.
func (a *Account) Expired(now time.Time) bool {
	return now.After(a.PeriodResetAt)
}

// NextReset returns the first reset time after now, advancing
// PeriodResetAt by whole periods.
func (a *Account) NextReset(now time.Time, period time.Duration) time.Time {
	next := a.PeriodResetAt
	if period <= 0 {
		period = DefaultPeriod
	}
	for !next.After(now) {
		next = next.Add(period)
	}
	return next
}
