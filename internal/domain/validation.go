package domain

import (
	"encoding/json"
	"time"
)

// MailboxStatus is the tri-state outcome of an SMTP mailbox probe.
// The zero value is MailboxUnknown so that skipped probes need no
// special handling.
type MailboxStatus int

const (
	MailboxUnknown MailboxStatus = iota
	MailboxAccepted
	MailboxRejected
)

var mailboxStatusNames = map[MailboxStatus]string{
	MailboxUnknown:  "unknown",
	MailboxAccepted: "accepted",
	MailboxRejected: "rejected",
}

func (s MailboxStatus) String() string {
	if n, ok := mailboxStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalJSON encodes accepted as true, rejected as false and unknown as null.
func (s MailboxStatus) MarshalJSON() ([]byte, error) {
	switch s {
	case MailboxAccepted:
		return []byte("true"), nil
	case MailboxRejected:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *MailboxStatus) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	switch {
	case b == nil:
		*s = MailboxUnknown
	case *b:
		*s = MailboxAccepted
	default:
		*s = MailboxRejected
	}
	return nil
}

// ValidationResult is the outcome of running one address through the
// validation pipeline. It is produced once and never mutated.
type ValidationResult struct {
	Email           string        `json:"email"`
	Valid           bool          `json:"valid"`
	SyntaxValid     bool          `json:"syntax_valid"`
	DomainExists    bool          `json:"domain_exists"`
	MailboxAccepted MailboxStatus `json:"mailbox_accepted"`
	IsDisposable    bool          `json:"is_disposable"`
	IsRoleAccount   bool          `json:"is_role_account"`
	RiskScore       int           `json:"risk_score"` // 0-100, higher is riskier
	Timestamp       time.Time     `json:"timestamp"`
}
