package resolver

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ignite/emailguard/internal/pkg/logger"
)

// MXLookuper resolves the raw MX record set for a domain.
type MXLookuper interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// DefaultTimeout bounds a single HasMX or LookupMX call.
const DefaultTimeout = 3 * time.Second

// Resolver answers MX questions with a memoizing cache in front of an
// MXLookuper. It is safe for concurrent use.
type Resolver struct {
	upstream MXLookuper
	cache    *Cache
	timeout  time.Duration
	group    singleflight.Group
}

// New creates a Resolver. A nil cache disables memoization; a zero timeout
// selects DefaultTimeout.
func New(upstream MXLookuper, cache *Cache, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{upstream: upstream, cache: cache, timeout: timeout}
}

// Cache returns the underlying cache, which may be nil.
func (r *Resolver) Cache() *Cache { return r.cache }

// HasMX reports whether domain has at least one usable MX record. Every
// failure, whatever its cause, is reported as false. Definitive answers
// (records found, NXDOMAIN, no MX) are cached; transient failures are not,
// so a later call gets another chance.
func (r *Resolver) HasMX(ctx context.Context, domain string) bool {
	domain = normalize(domain)
	if domain == "" {
		return false
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(domain); ok {
			return v
		}
	}

	v, _, _ := r.group.Do(domain, func() (interface{}, error) {
		// Detach from the first caller's cancellation: other waiters share
		// this lookup.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		_, err := r.lookup(lctx, domain)
		has := err == nil
		if r.cache != nil && (has || IsDefinitive(err)) {
			r.cache.Add(domain, has)
		}
		if err != nil && !IsDefinitive(err) {
			logger.Debug("mx lookup failed", "domain", domain, "error", err)
		}
		return has, nil
	})
	return v.(bool)
}

// LookupMX returns the usable MX records for domain, ordered by ascending
// preference. Null MX records (host ".") are dropped. The result is never
// cached.
func (r *Resolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	domain = normalize(domain)
	if domain == "" {
		return nil, ErrNotFound
	}
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.lookup(lctx, domain)
}

// PrimaryMX returns the host name of the most preferred mail exchanger,
// without the trailing dot.
func (r *Resolver) PrimaryMX(ctx context.Context, domain string) (string, error) {
	records, err := r.LookupMX(ctx, domain)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(records[0].Host, "."), nil
}

func (r *Resolver) lookup(ctx context.Context, domain string) ([]*net.MX, error) {
	records, err := r.upstream.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	usable := make([]*net.MX, 0, len(records))
	for _, mx := range records {
		if mx == nil || mx.Host == "." || mx.Host == "" {
			continue
		}
		usable = append(usable, mx)
	}
	if len(usable) == 0 {
		return nil, ErrNoRecords
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Pref < usable[j].Pref })
	return usable, nil
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
