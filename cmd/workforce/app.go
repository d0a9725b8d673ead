package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/example/workforce/internal/application"
	"github.com/example/workforce/internal/checkin"
	"github.com/example/workforce/internal/config"
	httptransport "github.com/example/workforce/internal/http"
	"github.com/example/workforce/internal/maintenance"
	"github.com/example/workforce/internal/persistence"
)

// app holds the wired services behind the HTTP handler.
type app struct {
	handler     http.Handler
	auth        *application.AuthService
	rotator     *checkin.Rotator
	maintenance *maintenance.Scheduler
}

func newApp(ctx context.Context, cfg config.Config, store persistence.Store, logger *slog.Logger) (*app, error) {
	policy, err := application.ParseOnBehalfPolicy(cfg.OnBehalfPolicy)
	if err != nil {
		return nil, err
	}

	idGenerator := uuid.NewString
	hasher := application.NewArgon2Hasher()

	users := newUserRepositoryAdapter(store)
	credentials := newCredentialStoreAdapter(store)
	catalogRepo := newCatalogAdapter(store)

	audit := application.NewAuditTrail(newLogRepositoryAdapter(store), idGenerator, nil, logger)

	rotator := checkin.NewRotator(application.TokenGenerator(checkin.DefaultCodeLength), checkin.WithGrace(cfg.CheckinGrace))
	if err := rotator.Rotate(); err != nil {
		return nil, fmt.Errorf("issue initial check-in code: %w", err)
	}

	authService := application.NewAuthService(credentials, newSessionRepositoryAdapter(store), application.AuthServiceConfig{
		Hasher:     hasher,
		SessionTTL: cfg.SessionTTL,
		Audit:      audit,
		Logger:     logger,
	})
	userService := application.NewUserService(users, catalogRepo, hasher, idGenerator, nil, audit, logger)
	catalogService := application.NewCatalogService(catalogRepo, idGenerator, audit, logger)
	attendanceService := application.NewAttendanceService(newWorkedTimeRepositoryAdapter(store), rotator, store, idGenerator, nil, audit, logger)
	deviceService := application.NewDeviceService(newDeviceRepositoryAdapter(store), rotator, idGenerator, nil, audit, logger)
	scheduleService := application.NewScheduleService(newScheduleRepositoryAdapter(store), users, idGenerator, audit, logger)
	requestService := application.NewRequestService(newRequestRepositoryAdapter(store), users, catalogRepo, application.RequestServiceConfig{
		OnBehalf:    policy,
		IDGenerator: idGenerator,
		Audit:       audit,
		Logger:      logger,
	})

	if err := catalogService.SeedDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	if cfg.Bootstrap.Enabled() {
		created, err := userService.Bootstrap(ctx, cfg.Bootstrap.Name, cfg.Bootstrap.Username, cfg.Bootstrap.Password)
		if err != nil {
			return nil, fmt.Errorf("bootstrap manager: %w", err)
		}
		if created {
			logger.Info("bootstrap manager created", "username", cfg.Bootstrap.Username)
		}
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:         authService,
		Health:           store,
		Auth:             httptransport.NewAuthHandler(authService, logger),
		Users:            httptransport.NewUserHandler(userService, audit, logger),
		Attendance:       httptransport.NewAttendanceHandler(attendanceService, logger),
		Devices:          httptransport.NewDeviceHandler(deviceService, logger),
		Catalog:          httptransport.NewCatalogHandler(catalogService, logger),
		Schedules:        httptransport.NewScheduleHandler(scheduleService, logger),
		Requests:         httptransport.NewRequestHandler(requestService, logger),
		CORSOrigins:      cfg.CORSOrigins,
		TrustedProxies:   cfg.TrustedProxies,
		RateLimitRPM:     cfg.RateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		RequestTimeout:   cfg.RequestTimeout,
		Logger:           logger,
	})

	return &app{
		handler: handler,
		auth:    authService,
		rotator: rotator,
		maintenance: maintenance.NewScheduler(logger,
			maintenance.SessionSweepTask(authService, cfg.SessionSweepInterval),
			maintenance.CodeRotationTask(rotator, cfg.CheckinRotateInterval),
		),
	}, nil
}
