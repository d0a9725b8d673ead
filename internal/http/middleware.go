package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/example/workforce/internal/application"
	"github.com/example/workforce/internal/logging"
)

const (
	requestIDHeader  = "X-Request-ID"
	deviceCodeHeader = "X-Device-Code"
	sessionCookie    = "session_token"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// RequireSession rejects requests without a live session and stores the
// principal in the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHENTICATED", errMissingSessionToken)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				responder.handleServiceError(r.Context(), w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalSession attaches a principal when a valid token is presented and
// otherwise lets the request through anonymously. Store failures still fail
// the request.
func OptionalSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			case errors.Is(err, application.ErrUnauthenticated):
			default:
				responder.handleServiceError(r.Context(), w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger tags each request with an id, stores a request scoped logger
// in the context and logs one line when the response is written.
func RequestLogger(base *slog.Logger, trustedProxies ...netip.Prefix) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			logger := base.With("request_id", requestID, "method", r.Method, "path", r.URL.Path)
			ctx := logging.ContextWithLogger(r.Context(), logger)

			started := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			attrs := []any{
				"status", wrapped.status,
				"duration_ms", time.Since(started).Milliseconds(),
				"client_ip", extractClientIP(r, trustedProxies),
			}
			switch {
			case wrapped.status >= 500:
				logger.ErrorContext(ctx, "request", attrs...)
			case wrapped.status >= 400:
				logger.WarnContext(ctx, "request", attrs...)
			default:
				logger.InfoContext(ctx, "request", attrs...)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					if recovered == http.ErrAbortHandler {
						panic(recovered)
					}
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "panic recovered",
						"error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))
					responder.writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", errors.New("unexpected server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader, deviceCodeHeader},
		ExposedHeaders:   []string{requestIDHeader},
		MaxAge:           3600,
		AllowCredentials: false,
	})

	return handler.Handler
}

// Timeout bounds handler execution and answers with a 503 envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	message := `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}

type clientLimiter struct {
	general  *rate.Limiter
	strict   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies per-client token buckets. Routes that take a guessable
// secret (login, check-in, device code lookup) share a stricter bucket.
// Clients are keyed by peer address unless the peer is a trusted proxy.
type RateLimiter struct {
	generalRPM int
	strictRPM  int
	trusted    []netip.Prefix
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewRateLimiter(generalRPM, strictRPM int, trustedProxies ...netip.Prefix) *RateLimiter {
	if generalRPM <= 0 {
		generalRPM = 120
	}
	if strictRPM <= 0 {
		strictRPM = 20
	}
	return &RateLimiter{
		generalRPM: generalRPM,
		strictRPM:  strictRPM,
		trusted:    trustedProxies,
		now:        time.Now,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimiter) Handler(next http.Handler) http.Handler {
	responder := newResponder(nil)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.limiterFor(extractClientIP(r, m.trusted))

		target := limiter.general
		if isStrictPath(r.URL.Path) {
			target = limiter.strict
		}
		if !target.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			responder.writeError(r.Context(), w, http.StatusTooManyRequests, "RATE_LIMITED", errors.New("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isStrictPath(path string) bool {
	path = strings.ToLower(path)
	return strings.HasPrefix(path, "/api/v1/auth/login") ||
		strings.HasPrefix(path, "/api/v1/attendance/checkin") ||
		strings.HasPrefix(path, "/api/v1/devices/code")
}

func (m *RateLimiter) limiterFor(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if limiter, ok := m.clients[clientIP]; ok {
		limiter.lastSeen = now
		return limiter
	}

	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM),
		strict:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.strictRPM)), m.strictRPM),
		lastSeen: now,
	}
	m.clients[clientIP] = created
	m.gcLocked(now)
	return created
}

func (m *RateLimiter) gcLocked(now time.Time) {
	if len(m.clients) < 1000 {
		return
	}
	cutoff := now.Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// extractClientIP returns the peer address of r. X-Forwarded-For and
// X-Real-IP are only believed when the peer is inside a trusted prefix.
func extractClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r)
	if !isTrustedProxy(peer, trusted) {
		return peer
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}
	return r.RemoteAddr
}

func isTrustedProxy(host string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
		return ""
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
