// Package probe asks a domain's primary mail exchanger whether it would
// accept a recipient, without sending a message.
//
// The outcome is tri-state. Only an explicit reply code counts as a
// negative; anything that prevents the dialogue (DNS, dial, timeout,
// dropped connection) is reported as unknown.
package probe

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/pkg/logger"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultPort     = 25
	DefaultMailFrom = "verify@emailguard.com"
	DefaultTimeout  = 5 * time.Second
)

// MXResolver finds the most preferred mail exchanger for a domain.
type MXResolver interface {
	PrimaryMX(ctx context.Context, domain string) (string, error)
}

// Config controls the probe session.
type Config struct {
	Port     int    // SMTP port on the exchanger
	HeloName string // name sent in EHLO/HELO; defaults to the local hostname
	MailFrom string // placeholder envelope sender

	// RatePerSecond caps outbound probes across all callers; 0 disables.
	RatePerSecond float64
	Burst         int
}

// Prober runs verify-only SMTP sessions. It is safe for concurrent use and
// holds no lock while talking to a remote server.
type Prober struct {
	resolver MXResolver
	cfg      Config
	limiter  *rate.Limiter
	dialer   net.Dialer
}

// New creates a Prober.
func New(resolver MXResolver, cfg Config) *Prober {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = DefaultMailFrom
	}
	if cfg.HeloName == "" {
		cfg.HeloName = localHostname()
	}
	p := &Prober{resolver: resolver, cfg: cfg}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return p
}

// Probe checks whether the primary MX of address's domain accepts it as a
// recipient. The whole operation, DNS included, is bounded by timeout; a
// non-positive timeout selects DefaultTimeout.
func (p *Prober) Probe(ctx context.Context, address string, timeout time.Duration) domain.MailboxStatus {
	addr := domain.ParseAddress(address)
	if addr.Domain == "" || strings.ContainsAny(addr.Raw, "\r\n<>") {
		return domain.MailboxUnknown
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host, err := p.resolver.PrimaryMX(ctx, addr.Domain)
	if err != nil {
		logger.Debug("probe: no primary mx", "domain", addr.Domain, "error", err)
		return domain.MailboxUnknown
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.MailboxUnknown
		}
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(p.cfg.Port)))
	if err != nil {
		logger.Debug("probe: dial failed", "mx", host, "error", err)
		return domain.MailboxUnknown
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Abandon the session if the caller goes away before the deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	status := p.session(conn, host, addr.Raw)
	logger.Debug("probe finished", "email", addr.Raw, "mx", host, "status", status)
	return status
}

// session runs greeting → EHLO/HELO → MAIL FROM → RCPT TO → QUIT on conn.
func (p *Prober) session(conn net.Conn, host, rcpt string) domain.MailboxStatus {
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		// No 220 greeting: we never got a dialogue going.
		return domain.MailboxUnknown
	}
	defer c.Close()

	if err := c.Hello(p.cfg.HeloName); err != nil {
		return preRcptOutcome(err)
	}
	if err := c.Mail(p.cfg.MailFrom); err != nil {
		return preRcptOutcome(err)
	}

	code, err := rcptCode(c.Text, rcpt)
	if err != nil {
		return domain.MailboxUnknown
	}
	_ = c.Quit()

	if code == 250 {
		return domain.MailboxAccepted
	}
	return domain.MailboxRejected
}

// rcptCode sends RCPT TO and returns the raw reply code without treating
// non-2xx replies as errors.
func rcptCode(text *textproto.Conn, rcpt string) (int, error) {
	id, err := text.Cmd("RCPT TO:<%s>", rcpt)
	if err != nil {
		return 0, err
	}
	text.StartResponse(id)
	defer text.EndResponse(id)

	code, _, err := text.ReadResponse(0)
	return code, err
}

// preRcptOutcome maps a failure before RCPT: a permanent (5xx) refusal is a
// rejection, transient replies and transport errors are unknown.
func preRcptOutcome(err error) domain.MailboxStatus {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 500 && tpErr.Code < 600 {
		return domain.MailboxRejected
	}
	return domain.MailboxUnknown
}

func localHostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}
