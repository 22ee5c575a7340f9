package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/emailguard/internal/domain"
	"github.com/ignite/emailguard/internal/pkg/httputil"
	"github.com/ignite/emailguard/internal/pkg/logger"
	"github.com/ignite/emailguard/internal/service/ratelimit"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

type accountKey struct{}

func withAccount(ctx context.Context, acct *domain.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acct)
}

func accountFromContext(ctx context.Context) *domain.Account {
	acct, _ := ctx.Value(accountKey{}).(*domain.Account)
	return acct
}

func apiKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}

// RequireQuota authenticates the request and consumes one unit of quota.
func (h *Handlers) RequireQuota(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, err := h.limiter.Admit(r.Context(), apiKey(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acct)))
	})
}

// RequireKey authenticates the request without consuming quota.
func (h *Handlers) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, err := h.limiter.Lookup(r.Context(), apiKey(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), acct)))
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	var quota *ratelimit.QuotaExceededError
	switch {
	case errors.Is(err, ratelimit.ErrUnauthorized):
		httputil.Unauthorized(w, err.Error())
	case errors.As(err, &quota):
		httputil.TooManyRequests(w, quota.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}
