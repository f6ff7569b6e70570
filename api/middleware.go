package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/payroll-ledger/auth"
	"github.com/warp/payroll-ledger/payroll"
)

type ctxKey int

const callerKey ctxKey = iota

// Authenticate verifies the Bearer token and stores the caller address in
// the request context. Missing or invalid tokens get 401.
func Authenticate(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || token == "" {
				writeError(w, http.StatusUnauthorized, "Token not found", auth.ErrMissingToken)
				return
			}
			caller, err := issuer.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller returns ctx carrying caller.
func WithCaller(ctx context.Context, caller payroll.Address) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(ctx context.Context) (payroll.Address, bool) {
	caller, ok := ctx.Value(callerKey).(payroll.Address)
	return caller, ok
}

func callerOrZero(r *http.Request) payroll.Address {
	caller, _ := CallerFrom(r.Context())
	return caller
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case payroll.IsAuthError(err):
		return http.StatusForbidden
	case errors.Is(err, payroll.ErrInvalidArgument):
		return http.StatusBadRequest
	case payroll.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrDuplicateEmployee),
		errors.Is(err, payroll.ErrUnsettledObligation),
		errors.Is(err, payroll.ErrTooEarly):
		return http.StatusConflict
	case errors.Is(err, payroll.ErrInsufficientFunds),
		errors.Is(err, payroll.ErrNoActiveObligations):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
