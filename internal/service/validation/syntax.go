package validation

import "regexp"

var syntaxRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidSyntax reports whether addr looks like local@domain.tld. It expects a
// normalized address and does not check that the domain resolves.
func ValidSyntax(addr string) bool {
	return syntaxRegex.MatchString(addr)
}
