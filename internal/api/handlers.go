package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/pkg/httputil"
	"github.com/ignite/emailguard/internal/resolver"
	"github.com/ignite/emailguard/internal/service/ratelimit"
	"github.com/ignite/emailguard/internal/service/validation"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	validator *validation.Service
	limiter   *ratelimit.Service
	dnsCache  *resolver.Cache
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(validator *validation.Service, limiter *ratelimit.Service) *Handlers {
	return &Handlers{
		validator: validator,
		limiter:   limiter,
		now:       time.Now,
	}
}

// SetDNSCache exposes resolver cache counters on the health endpoint.
func (h *Handlers) SetDNSCache(c *resolver.Cache) {
	h.dnsCache = c
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	Email        string `json:"email" validate:"required,max=512"`
	CheckMailbox *bool  `json:"check_mailbox"`
	CheckSMTP    *bool  `json:"check_smtp"` // accepted for older clients
}

func (r ValidateRequest) probe() bool {
	return boolOr(r.CheckMailbox, r.CheckSMTP, true)
}

// BulkValidateRequest is the body of POST /validate/bulk.
type BulkValidateRequest struct {
	Emails       []string `json:"emails" validate:"required"`
	CheckMailbox *bool    `json:"check_mailbox"`
	CheckSMTP    *bool    `json:"check_smtp"`
}

func (r BulkValidateRequest) probe() bool {
	return boolOr(r.CheckMailbox, r.CheckSMTP, false)
}

func boolOr(primary, alias *bool, def bool) bool {
	if primary != nil {
		return *primary
	}
	if alias != nil {
		return *alias
	}
	return def
}

// BulkValidateResponse is returned by POST /validate/bulk.
type BulkValidateResponse struct {
	Total     int                       `json:"total"`
	Results   []domain.ValidationResult `json:"results"`
	Timestamp time.Time                 `json:"timestamp"`
}

// GenerateKeyResponse is returned by POST /generate-key.
type GenerateKeyResponse struct {
	APIKey  string      `json:"api_key"`
	Plan    domain.Plan `json:"plan"`
	Message string      `json:"message"`
}

// Root describes the service.
//
//	GET /
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"name":        "EmailGuard API",
		"version":     Version,
		"description": "Email validation API: syntax, MX, mailbox, disposable and role checks with a risk score",
		"endpoints": map[string]string{
			"POST /validate":      "Validate one email address",
			"POST /validate/bulk": "Validate a batch of email addresses",
			"GET /stats":          "Usage statistics for your API key",
			"POST /generate-key":  "Generate a free-plan API key",
			"GET /health":         "Service health",
		},
	})
}

// Health reports liveness and the number of known API keys.
//
//	GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	total, err := h.limiter.Count(r.Context())
	if err != nil {
		httputil.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"timestamp": h.now().UTC(),
			"error":     "account store unavailable",
		})
		return
	}

	resp := map[string]any{
		"status":     "healthy",
		"timestamp":  h.now().UTC(),
		"total_keys": total,
	}
	if h.dnsCache != nil {
		resp["dns_cache"] = h.dnsCache.Stats()
	}
	httputil.OK(w, resp)
}

// GenerateKey issues a new free-plan API key.
//
//	POST /generate-key
func (h *Handlers) GenerateKey(w http.ResponseWriter, r *http.Request) {
	acct, err := h.limiter.Issue(r.Context(), domain.PlanFree)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	msg := fmt.Sprintf("API key generated. Limit: %d validations/month. Send it in the %s header.",
		acct.Quota, APIKeyHeader)
	httputil.Created(w, GenerateKeyResponse{
		APIKey:  acct.Key,
		Plan:    acct.Plan,
		Message: msg,
	})
}

// Validate checks a single address.
//
//	POST /validate
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !httputil.DecodeValid(w, r, &req) {
		return
	}
	httputil.OK(w, h.validator.ValidateOne(r.Context(), req.Email, req.probe()))
}

// ValidateBulk checks a batch of addresses, bounded by the plan's bulk cap.
//
//	POST /validate/bulk
func (h *Handlers) ValidateBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkValidateRequest
	if !httputil.DecodeValid(w, r, &req) {
		return
	}

	acct := accountFromContext(r.Context())
	limit := h.bulkCap(acct)

	results, err := h.validator.ValidateBulk(r.Context(), req.Emails, req.probe(), limit)
	var tooLarge *validation.BatchTooLargeError
	switch {
	case errors.As(err, &tooLarge):
		httputil.ErrorCode(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("maximum %d emails per request on the %s plan", tooLarge.Cap, acct.Plan))
		return
	case err != nil:
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, BulkValidateResponse{
		Total:     len(results),
		Results:   results,
		Timestamp: h.now().UTC(),
	})
}

func (h *Handlers) bulkCap(acct *domain.Account) int {
	if acct != nil {
		if l, ok := h.limiter.Limits(acct.Plan); ok {
			return l.BulkCap
		}
	}
	l, _ := h.limiter.Limits(domain.PlanFree)
	return l.BulkCap
}

// Stats reports usage for the caller's key without consuming quota.
//
//	GET /stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	acct := accountFromContext(r.Context())
	if acct == nil {
		httputil.Unauthorized(w, ratelimit.ErrUnauthorized.Error())
		return
	}
	httputil.OK(w, h.limiter.Usage(acct))
}
