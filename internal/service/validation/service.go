package validation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/emailguard/internal/classify"
	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/pkg/logger"
)

// DomainResolver reports whether a domain has mail exchangers.
type DomainResolver interface {
	HasMX(ctx context.Context, domain string) bool
}

// MailboxProber asks a domain's mail exchanger about one recipient.
type MailboxProber interface {
	Probe(ctx context.Context, address string, timeout time.Duration) domain.MailboxStatus
}

// Options tunes the pipeline. Zero values select the defaults.
type Options struct {
	SingleProbeTimeout time.Duration // default 5s
	BulkProbeTimeout   time.Duration // default 3s
	BulkConcurrency    int           // default 10
	Now                func() time.Time
}

const (
	defaultSingleProbeTimeout = 5 * time.Second
	defaultBulkProbeTimeout   = 3 * time.Second
	defaultBulkConcurrency    = 10
)

// Service runs the validation pipeline. It is safe for concurrent use.
type Service struct {
	resolver   DomainResolver
	prober     MailboxProber
	disposable classify.DisposableSet
	roles      classify.RoleSet
	opts       Options
}

// NewService wires the pipeline stages together. prober may be nil, in which
// case mailbox probing is never attempted.
func NewService(resolver DomainResolver, prober MailboxProber, disposable classify.DisposableSet, roles classify.RoleSet, opts Options) *Service {
	if opts.SingleProbeTimeout <= 0 {
		opts.SingleProbeTimeout = defaultSingleProbeTimeout
	}
	if opts.BulkProbeTimeout <= 0 {
		opts.BulkProbeTimeout = defaultBulkProbeTimeout
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = defaultBulkConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		resolver:   resolver,
		prober:     prober,
		disposable: disposable,
		roles:      roles,
		opts:       opts,
	}
}

// ValidateOne runs the full pipeline for a single address.
func (s *Service) ValidateOne(ctx context.Context, address string, probeMailbox bool) domain.ValidationResult {
	return s.validate(ctx, address, probeMailbox, s.opts.SingleProbeTimeout)
}

// ValidateBulk validates addresses concurrently and returns results in input
// order. A batch longer than limit is refused as a whole with a
// *BatchTooLargeError; nothing is validated in that case.
func (s *Service) ValidateBulk(ctx context.Context, addresses []string, probeMailbox bool, limit int) ([]domain.ValidationResult, error) {
	if len(addresses) > limit {
		return nil, &BatchTooLargeError{Cap: limit, Requested: len(addresses)}
	}

	results := make([]domain.ValidationResult, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BulkConcurrency)
	for i, addr := range addresses {
		if err := gctx.Err(); err != nil {
			break
		}
		i, addr := i, addr
		g.Go(func() error {
			results[i] = s.validate(gctx, addr, probeMailbox, s.opts.BulkProbeTimeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) validate(ctx context.Context, raw string, probeMailbox bool, probeTimeout time.Duration) domain.ValidationResult {
	addr := domain.ParseAddress(raw)
	sig := Signals{SyntaxValid: ValidSyntax(addr.Raw)}

	// Everything downstream is meaningless for a malformed address.
	if sig.SyntaxValid {
		sig.DomainExists = s.resolver.HasMX(ctx, addr.Domain)
		if probeMailbox && sig.DomainExists && s.prober != nil {
			sig.Mailbox = s.prober.Probe(ctx, addr.Raw, probeTimeout)
		}
		sig.Disposable = s.disposable.IsDisposable(addr.Domain)
		sig.RoleAccount = s.roles.IsRole(addr.Local)
	}

	res := domain.ValidationResult{
		Email:           addr.Raw,
		Valid:           IsValid(sig),
		SyntaxValid:     sig.SyntaxValid,
		DomainExists:    sig.DomainExists,
		MailboxAccepted: sig.Mailbox,
		IsDisposable:    sig.Disposable,
		IsRoleAccount:   sig.RoleAccount,
		RiskScore:       Score(sig),
		Timestamp:       s.opts.Now().UTC(),
	}
	logger.Debug("address validated", "email", res.Email, "valid", res.Valid, "risk_score", res.RiskScore)
	return res
}
