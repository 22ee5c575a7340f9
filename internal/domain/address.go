package domain

import "strings"

// Address is an email address split into its local part and domain.
// The zero value and malformed inputs are legal: whether an Address is
// syntactically valid is decided by the validation service, not here.
type Address struct {
	Raw    string `json:"email"`
	Local  string `json:"-"`
	Domain string `json:"-"`
}

// ParseAddress normalizes s (trimmed, lower-cased) and splits it at the last
// "@". An input without "@" yields an Address with an empty Domain.
func ParseAddress(s string) Address {
	norm := strings.ToLower(strings.TrimSpace(s))
	a := Address{Raw: norm, Local: norm}
	if i := strings.LastIndex(norm, "@"); i >= 0 {
		a.Local = norm[:i]
		a.Domain = norm[i+1:]
	}
	return a
}

// String returns the normalized address.
func (a Address) String() string { return a.Raw }
