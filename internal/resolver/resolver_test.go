package resolver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookuper is a map-backed MXLookuper that counts upstream calls.
type fakeLookuper struct {
	mu      sync.Mutex
	records map[string][]*net.MX
	errs    map[string]error
	delay   time.Duration
	calls   atomic.Int64
}

func (f *fakeLookuper) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[domain]; ok {
		return nil, err
	}
	if recs, ok := f.records[domain]; ok {
		return recs, nil
	}
	return nil, ErrNotFound
}

func newFake() *fakeLookuper {
	return &fakeLookuper{
		records: map[string][]*net.MX{
			"example.com": {
				{Host: "mx2.example.com.", Pref: 20},
				{Host: "mx1.example.com.", Pref: 10},
				{Host: "mx1b.example.com.", Pref: 10},
			},
			"nullmx.example": {{Host: ".", Pref: 0}},
		},
		errs: map[string]error{
			"nomx.example":   ErrNoRecords,
			"flaky.example":  ErrServFail,
			"stdlib.example": &net.DNSError{Err: "no such host", Name: "stdlib.example", IsNotFound: true},
		},
	}
}

func TestHasMX(t *testing.T) {
	r := New(newFake(), NewCache(10), time.Second)
	ctx := context.Background()

	assert.True(t, r.HasMX(ctx, "example.com"))
	assert.True(t, r.HasMX(ctx, " Example.COM. "))
	assert.False(t, r.HasMX(ctx, "missing.example"))
	assert.False(t, r.HasMX(ctx, "nomx.example"))
	assert.False(t, r.HasMX(ctx, "nullmx.example"))
	assert.False(t, r.HasMX(ctx, "flaky.example"))
	assert.False(t, r.HasMX(ctx, "stdlib.example"))
	assert.False(t, r.HasMX(ctx, ""))
}

func TestHasMXCachesAnswers(t *testing.T) {
	f := newFake()
	r := New(f, NewCache(10), time.Second)
	ctx := context.Background()

	assert.True(t, r.HasMX(ctx, "example.com"))
	assert.True(t, r.HasMX(ctx, "example.com"))
	assert.Equal(t, int64(1), f.calls.Load(), "second lookup must be served from cache")

	assert.False(t, r.HasMX(ctx, "missing.example"))
	assert.False(t, r.HasMX(ctx, "missing.example"))
	assert.Equal(t, int64(2), f.calls.Load(), "NXDOMAIN is cached too")
}

func TestHasMXDoesNotCacheTransientFailures(t *testing.T) {
	f := newFake()
	r := New(f, NewCache(10), time.Second)
	ctx := context.Background()

	assert.False(t, r.HasMX(ctx, "flaky.example"))
	assert.False(t, r.HasMX(ctx, "flaky.example"))
	assert.Equal(t, int64(2), f.calls.Load())
	assert.Zero(t, r.Cache().Len())
}

func TestHasMXWithoutCache(t *testing.T) {
	f := newFake()
	r := New(f, nil, time.Second)
	ctx := context.Background()

	assert.True(t, r.HasMX(ctx, "example.com"))
	assert.True(t, r.HasMX(ctx, "example.com"))
	assert.Equal(t, int64(2), f.calls.Load())
}

func TestHasMXTimeout(t *testing.T) {
	f := newFake()
	f.delay = time.Second
	r := New(f, NewCache(10), 20*time.Millisecond)

	start := time.Now()
	assert.False(t, r.HasMX(context.Background(), "example.com"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestHasMXCoalescesConcurrentMisses(t *testing.T) {
	f := newFake()
	f.delay = 50 * time.Millisecond
	r := New(f, NewCache(10), time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, r.HasMX(context.Background(), "example.com"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), f.calls.Load())
}

func TestLookupMXOrdersByPreference(t *testing.T) {
	r := New(newFake(), NewCache(10), time.Second)

	records, err := r.LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "mx1.example.com.", records[0].Host)
	assert.Equal(t, "mx1b.example.com.", records[1].Host, "equal preference keeps answer order")
	assert.Equal(t, "mx2.example.com.", records[2].Host)
}

func TestPrimaryMX(t *testing.T) {
	r := New(newFake(), NewCache(10), time.Second)
	ctx := context.Background()

	host, err := r.PrimaryMX(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "mx1.example.com", host)

	_, err = r.PrimaryMX(ctx, "nullmx.example")
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = r.PrimaryMX(ctx, "missing.example")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsDefinitive(t *testing.T) {
	assert.True(t, IsDefinitive(ErrNotFound))
	assert.True(t, IsDefinitive(ErrNoRecords))
	assert.False(t, IsDefinitive(ErrServFail))
	assert.False(t, IsDefinitive(context.DeadlineExceeded))
}
