package resolver

import "errors"

// Sentinel errors returned by MXLookuper implementations.
var (
	// ErrNotFound means the domain does not exist (NXDOMAIN).
	ErrNotFound = errors.New("dns: domain not found")
	// ErrNoRecords means the domain exists but has no usable MX records.
	ErrNoRecords = errors.New("dns: no MX records")
	// ErrServFail means no nameserver could give an answer.
	ErrServFail = errors.New("dns: server failure")
	// ErrRefused means the nameserver refused the query.
	ErrRefused = errors.New("dns: query refused")
)

// IsDefinitive reports whether err is an authoritative negative answer, as
// opposed to a transport or server problem that might clear up on retry.
func IsDefinitive(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoRecords)
}
