package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
)

var errStoreUnavailable = errors.New("store is unreachable")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Sessions   SessionValidator
	Health     Pinger
	Auth       *AuthHandler
	Users      *UserHandler
	Attendance *AttendanceHandler
	Devices    *DeviceHandler
	Catalog    *CatalogHandler
	Schedules  *ScheduleHandler
	Requests   *RequestHandler

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	TrustedProxies   []netip.Prefix
	RequestTimeout   time.Duration
	Logger           *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	limiter := NewRateLimiter(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.TrustedProxies...)
	requireSession := RequireSession(cfg.Sessions, logger)
	optionalSession := OptionalSession(cfg.Sessions, logger)

	r := chi.NewRouter()
	r.Use(RequestLogger(logger, cfg.TrustedProxies...))
	r.Use(Recovery(logger))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(limiter.Handler)

	r.Get("/health", health(cfg.Health))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(Timeout(cfg.RequestTimeout))

		if h := cfg.Auth; h != nil {
			api.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", h.Login)
				auth.Post("/logout", h.Logout)
				auth.With(requireSession).Get("/me", h.Me)
			})
		}

		if h := cfg.Attendance; h != nil {
			api.Route("/attendance", func(att chi.Router) {
				att.Use(requireSession)
				att.Post("/checkin", h.CheckIn)
				att.Get("/worked-times", h.ListWorkedTimes)
				att.Put("/worked-times/{id}/note", h.UpdateNote)
			})
		}

		if h := cfg.Devices; h != nil {
			api.Route("/devices", func(dev chi.Router) {
				dev.Get("/code", h.CurrentCode)
				dev.With(requireSession).Get("/", h.List)
				dev.With(requireSession).Post("/", h.Register)
				dev.With(requireSession).Delete("/{id}", h.Delete)
			})
		}

		if h := cfg.Users; h != nil {
			api.Route("/users", func(users chi.Router) {
				users.With(optionalSession).Get("/", h.List)
				users.With(optionalSession).Get("/{id}", h.Get)
				users.With(requireSession).Post("/", h.Create)
				users.With(requireSession).Put("/{id}", h.Update)
				users.With(requireSession).Delete("/{id}", h.Delete)
				users.With(requireSession).Get("/{id}/logs", h.Logs)
			})
		}

		if h := cfg.Catalog; h != nil {
			api.Group(func(cat chi.Router) {
				cat.Use(requireSession)
				cat.Get("/roles", h.ListRoles)
				cat.Post("/roles", h.CreateRole)
				cat.Get("/request-types", h.ListRequestTypes)
				cat.Post("/request-types", h.CreateRequestType)
			})
		}

		if h := cfg.Schedules; h != nil {
			api.Route("/schedules", func(sch chi.Router) {
				sch.Use(requireSession)
				sch.Get("/", h.List)
				sch.Post("/", h.Create)
				sch.Get("/plan", h.Plan)
				sch.Put("/{id}/inactive", h.SetInactive)
				sch.Delete("/{id}", h.Delete)
			})
		}

		if h := cfg.Requests; h != nil {
			api.Route("/requests", func(req chi.Router) {
				req.Use(requireSession)
				req.Get("/", h.List)
				req.Post("/", h.Create)
				req.Get("/{id}", h.Get)
				req.Delete("/{id}", h.Delete)
				req.Post("/{id}/process", h.Process)
			})
		}
	})

	return r
}

func health(store Pinger) http.HandlerFunc {
	responder := newResponder(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, "UNAVAILABLE", errStoreUnavailable)
				return
			}
		}
		responder.writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"}, nil)
	}
}
