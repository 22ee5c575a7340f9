package validation

import "github.com/ignite/emailguard/internal/domain"

// Score weights.
const (
	weightSyntaxInvalid   = 50
	weightNoDomain        = 30
	weightMailboxRejected = 20
	weightDisposable      = 40
	weightRoleAccount     = 10
	maxScore              = 100
)

// Signals are the per-address facts the scorer combines.
type Signals struct {
	SyntaxValid  bool
	DomainExists bool
	Mailbox      domain.MailboxStatus
	Disposable   bool
	RoleAccount  bool
}

// Score returns the 0-100 risk score for s. When syntax is invalid the other
// checks were never run, so they contribute nothing and the score is exactly
// the syntax weight. An unknown mailbox outcome adds nothing.
func Score(s Signals) int {
	if !s.SyntaxValid {
		return weightSyntaxInvalid
	}
	score := 0
	if !s.DomainExists {
		score += weightNoDomain
	}
	if s.Mailbox == domain.MailboxRejected {
		score += weightMailboxRejected
	}
	if s.Disposable {
		score += weightDisposable
	}
	if s.RoleAccount {
		score += weightRoleAccount
	}
	if score > maxScore {
		score = maxScore
	}
	return score
}

// IsValid reports overall validity: good syntax, a resolving domain, not
// disposable, and not explicitly rejected by the mailbox probe.
func IsValid(s Signals) bool {
	if s.Mailbox == domain.MailboxRejected {
		return false
	}
	return s.SyntaxValid && s.DomainExists && !s.Disposable
}
