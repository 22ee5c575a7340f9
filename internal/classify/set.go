package classify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ignite/emailguard/internal/pkg/httpretry"
)

// Set is an immutable, case-insensitive string set.
type Set struct {
	m map[string]struct{}
}

func newSet(items ...[]string) Set {
	n := 0
	for _, l := range items {
		n += len(l)
	}
	m := make(map[string]struct{}, n)
	for _, l := range items {
		for _, s := range l {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				m[s] = struct{}{}
			}
		}
	}
	return Set{m: m}
}

// Contains reports whether s is in the set, ignoring case and surrounding space.
func (s Set) Contains(v string) bool {
	_, ok := s.m[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// Len returns the number of entries.
func (s Set) Len() int { return len(s.m) }

// DisposableSet identifies domains that issue disposable addresses.
type DisposableSet struct{ Set }

// NewDisposableSet returns the built-in table merged with extra domains.
func NewDisposableSet(extra ...string) DisposableSet {
	return DisposableSet{newSet(builtinDisposable, extra)}
}

// IsDisposable reports whether domain is a known disposable provider.
func (d DisposableSet) IsDisposable(domain string) bool { return d.Contains(domain) }

// defaultRoles are local parts that address a function rather than a person.
var defaultRoles = []string{
	"info", "admin", "support", "sales", "contact", "help",
	"noreply", "no-reply", "marketing", "abuse", "postmaster",
}

// RoleSet identifies generic role accounts by local part.
type RoleSet struct{ Set }

// DefaultRoles returns the built-in role account list.
func DefaultRoles() RoleSet { return RoleSet{newSet(defaultRoles)} }

// NewRoleSet builds a role set from an explicit list.
func NewRoleSet(locals ...string) RoleSet { return RoleSet{newSet(locals)} }

// IsRole reports whether local is a role account.
func (r RoleSet) IsRole(local string) bool { return r.Contains(local) }

// LoadDomainsFile reads one domain per line. Blank lines and lines starting
// with '#' are skipped.
func LoadDomainsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domains file: %w", err)
	}
	defer f.Close()

	out, err := parseDomains(f)
	if err != nil {
		return nil, fmt.Errorf("read domains file: %w", err)
	}
	return out, nil
}

// maxFeedBytes bounds a downloaded domain feed.
const maxFeedBytes = 16 << 20

// FetchDomains downloads a domain list in the same line format as
// LoadDomainsFile.
func FetchDomains(ctx context.Context, client httpretry.HTTPDoer, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch domain feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch domain feed: unexpected status %d", resp.StatusCode)
	}
	out, err := parseDomains(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read domain feed: %w", err)
	}
	return out, nil
}

func parseDomains(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
