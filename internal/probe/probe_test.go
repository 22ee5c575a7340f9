package probe

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/emailguard/internal/domain"
)

type staticMX struct {
	host string
	err  error
}

func (s staticMX) PrimaryMX(context.Context, string) (string, error) { return s.host, s.err }

// fakeSMTP is a scripted single-purpose SMTP server on loopback.
type fakeSMTP struct {
	greeting string // full greeting line, "" to stall forever
	mailCode int
	rcptCode int

	mu       sync.Mutex
	commands []string
	ln       net.Listener
}

func startFakeSMTP(t *testing.T, f *fakeSMTP) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f.ln = ln
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	if f.greeting == "" {
		// Accept the connection and never speak.
		_, _ = bufio.NewReader(conn).ReadString('\n')
		return
	}
	w := bufio.NewWriter(conn)
	reply := func(s string) {
		_, _ = w.WriteString(s + "\r\n")
		_ = w.Flush()
	}
	reply(f.greeting)

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.mu.Lock()
		f.commands = append(f.commands, line)
		f.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			reply("250 fake.test")
		case "HELO":
			reply("250 fake.test")
		case "MAIL":
			reply(strconv.Itoa(f.mailCode) + " sender")
		case "RCPT":
			reply(strconv.Itoa(f.rcptCode) + " recipient")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (f *fakeSMTP) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func newProber(port int) *Prober {
	return New(staticMX{host: "127.0.0.1"}, Config{Port: port, HeloName: "probe.test"})
}

func TestProbeAccepted(t *testing.T) {
	f := &fakeSMTP{greeting: "220 fake.test ESMTP", mailCode: 250, rcptCode: 250}
	p := newProber(startFakeSMTP(t, f))

	status := p.Probe(context.Background(), "John@Example.com", time.Second)
	assert.Equal(t, domain.MailboxAccepted, status)

	cmds := f.seen()
	require.GreaterOrEqual(t, len(cmds), 3)
	assert.Equal(t, "EHLO probe.test", cmds[0])
	assert.Equal(t, "MAIL FROM:<"+DefaultMailFrom+">", cmds[1])
	assert.Equal(t, "RCPT TO:<john@example.com>", cmds[2])
	for _, c := range cmds {
		assert.NotEqual(t, "DATA", strings.ToUpper(c), "probe must never send a message body")
	}
}

func TestProbeRejected(t *testing.T) {
	for _, code := range []int{550, 553, 450, 251} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			f := &fakeSMTP{greeting: "220 fake.test", mailCode: 250, rcptCode: code}
			p := newProber(startFakeSMTP(t, f))
			assert.Equal(t, domain.MailboxRejected, p.Probe(context.Background(), "nobody@example.com", time.Second))
		})
	}
}

func TestProbeSenderRefused(t *testing.T) {
	f := &fakeSMTP{greeting: "220 fake.test", mailCode: 554, rcptCode: 250}
	p := newProber(startFakeSMTP(t, f))
	assert.Equal(t, domain.MailboxRejected, p.Probe(context.Background(), "a@example.com", time.Second))

	f = &fakeSMTP{greeting: "220 fake.test", mailCode: 421, rcptCode: 250}
	p = newProber(startFakeSMTP(t, f))
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "a@example.com", time.Second))
}

func TestProbeBadGreetingIsUnknown(t *testing.T) {
	f := &fakeSMTP{greeting: "554 go away", mailCode: 250, rcptCode: 250}
	p := newProber(startFakeSMTP(t, f))
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "a@example.com", time.Second))
}

func TestProbeTimeoutIsUnknown(t *testing.T) {
	f := &fakeSMTP{} // stalls without a greeting
	p := newProber(startFakeSMTP(t, f))

	start := time.Now()
	status := p.Probe(context.Background(), "a@example.com", 100*time.Millisecond)
	assert.Equal(t, domain.MailboxUnknown, status, "a timeout must never be reported as rejected")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbeConnectionRefusedIsUnknown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p := newProber(port)
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "a@example.com", time.Second))
}

func TestProbeResolverFailureIsUnknown(t *testing.T) {
	p := New(staticMX{err: errors.New("no mx")}, Config{Port: 1})
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "a@example.com", time.Second))
}

func TestProbeMalformedAddressIsUnknown(t *testing.T) {
	p := New(staticMX{host: "127.0.0.1"}, Config{Port: 1})
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "no-domain", time.Second))
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "a>\r\nDATA@example.com", time.Second))
}

func TestProbeCancelledContextIsUnknown(t *testing.T) {
	f := &fakeSMTP{}
	p := newProber(startFakeSMTP(t, f))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	assert.Equal(t, domain.MailboxUnknown, p.Probe(ctx, "a@example.com", 5*time.Second))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbeRateLimiterHonoursContext(t *testing.T) {
	f := &fakeSMTP{greeting: "220 fake.test", mailCode: 250, rcptCode: 250}
	port := startFakeSMTP(t, f)
	p := New(staticMX{host: "127.0.0.1"}, Config{Port: port, RatePerSecond: 0.001, Burst: 1})

	// First probe consumes the burst.
	assert.Equal(t, domain.MailboxAccepted, p.Probe(context.Background(), "a@example.com", time.Second))
	// Second would wait ~1000s for a token; the timeout turns it into unknown.
	assert.Equal(t, domain.MailboxUnknown, p.Probe(context.Background(), "a@example.com", 50*time.Millisecond))
}

func TestNewDefaults(t *testing.T) {
	p := New(staticMX{}, Config{})
	assert.Equal(t, DefaultPort, p.cfg.Port)
	assert.Equal(t, DefaultMailFrom, p.cfg.MailFrom)
	assert.NotEmpty(t, p.cfg.HeloName)
	assert.Nil(t, p.limiter)
}
