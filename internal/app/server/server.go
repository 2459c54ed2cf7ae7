package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"leavehr/internal/domain/attendance"
	"leavehr/internal/domain/audit"
	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/biometric"
	"leavehr/internal/domain/core"
	"leavehr/internal/domain/leave"
	"leavehr/internal/domain/notifications"
	"leavehr/internal/domain/reports"
	"leavehr/internal/platform/config"
	"leavehr/internal/platform/crypto"
	"leavehr/internal/platform/db"
	"leavehr/internal/platform/device"
	"leavehr/internal/platform/email"
	"leavehr/internal/platform/identity"
	"leavehr/internal/platform/jobs"
	"leavehr/internal/platform/metrics"
	"leavehr/internal/transport/http/api"
	attendancehandler "leavehr/internal/transport/http/handlers/attendance"
	audithandler "leavehr/internal/transport/http/handlers/audit"
	corehandler "leavehr/internal/transport/http/handlers/core"
	leavehandler "leavehr/internal/transport/http/handlers/leave"
	notificationshandler "leavehr/internal/transport/http/handlers/notifications"
	reportshandler "leavehr/internal/transport/http/handlers/reports"
	"leavehr/internal/transport/http/middleware"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config config.Config
	DB     *db.Pool
	Jobs   *jobs.Service
	Router http.Handler
}

// Components are the wired services behind the HTTP surface.
type Components struct {
	People        *core.Service
	Leave         *leave.Service
	Attendance    *attendance.Service
	Enrollment    *biometric.Service
	Notifications *notifications.Service
	Audit         *audit.Service
	Reports       *reports.Service
	Jobs          *jobs.Service
	Metrics       *metrics.Collector
	Identity      identity.Provider
	Ready         func(ctx context.Context) error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	components, err := wire(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &App{Config: cfg, DB: pool, Jobs: components.Jobs, Router: NewRouter(cfg, components)}, nil
}

func wire(cfg config.Config, pool *db.Pool) (Components, error) {
	collector := metrics.New()
	auditSvc := audit.New(pool)
	templates, err := crypto.New(cfg.TemplateEncryptionKey)
	if err != nil {
		return Components{}, err
	}
	if !templates.Configured() {
		slog.Warn("fingerprint templates are stored unencrypted; set TEMPLATE_ENCRYPTION_KEY")
	}
	employees := core.NewStore(pool)
	employees.Templates = templates
	people := core.NewService(employees)

	notes := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notes.From = cfg.EmailFrom
	notes.EmailEnabled = cfg.EmailEnabled

	leaveSvc := leave.NewService(leave.NewStore(pool), people, notes, auditSvc)

	var source device.Source = device.NewSimulatedSource(cfg.DeviceName)
	if cfg.DeviceMode == config.DeviceModeHTTP {
		source = device.NewHTTPSource(cfg.DeviceURL, cfg.DeviceTimeout)
	}
	enrollment := biometric.NewService(employees, source, auditSvc)

	comparator, err := biometric.NewComparator(cfg.Comparator)
	if err != nil {
		return Components{}, err
	}
	matcher := attendance.NewMatcher(comparator, cfg.MatchThreshold, cfg.MatchStrategy)
	attendanceStore := attendance.NewStore(pool)
	attendanceStore.Templates = templates
	attendanceSvc := attendance.NewService(attendanceStore, employees, matcher, enrollment, collector)

	jobsSvc := jobs.New(jobs.NewRunStore(pool), leaveSvc, cfg.LeaveAccrualInterval, cfg.CarryoverInterval)
	jobsSvc.Metrics = collector

	var provider identity.Provider = identity.NewJWTProvider(cfg.JWTSecret)
	if cfg.AuthMode == config.AuthModeRemote {
		provider = identity.NewRemoteProvider(cfg.AuthServiceURL, cfg.AuthTimeout)
	}

	return Components{
		People:        people,
		Leave:         leaveSvc,
		Attendance:    attendanceSvc,
		Enrollment:    enrollment,
		Notifications: notes,
		Audit:         auditSvc,
		Reports:       reports.NewService(reports.NewStore(pool)),
		Jobs:          jobsSvc,
		Metrics:       collector,
		Identity:      provider,
		Ready:         pool.Ping,
	}, nil
}

// NewRouter mounts every handler on one chi router. Components may be backed
// by any store implementation.
func NewRouter(cfg config.Config, c Components) http.Handler {
	if c.Metrics == nil {
		c.Metrics = metrics.New()
	}
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(c.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(c.Identity))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, map[string]string{"status": "ok"}, middleware.GetRequestID(r.Context()))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if c.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := c.Ready(ctx); err != nil {
				slog.Warn("readiness check failed", "err", err)
				api.Fail(w, http.StatusServiceUnavailable, "NOT_READY", "database not ready", middleware.GetRequestID(r.Context()))
				return
			}
		}
		api.Success(w, map[string]string{"status": "ready"}, middleware.GetRequestID(r.Context()))
	})
	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermSystemMetrics, perms)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, c.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	sensitivePerMinute := cfg.RateLimitPerMinute / 4
	if sensitivePerMinute < 1 {
		sensitivePerMinute = 1
	}
	general := middleware.NewLimiter(cfg.RateLimitPerMinute)
	sensitive := middleware.NewLimiter(sensitivePerMinute)
	kiosk := middleware.NewLimiter(cfg.KioskRateLimitPerMinute)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(general))
		r.Use(middleware.SensitiveMutationRateLimit(sensitive))

		corehandler.NewHandler(c.People, perms, auditorOf(c.Audit)).RegisterRoutes(r)

		var jobsRunner leavehandler.Jobs
		if c.Jobs != nil {
			jobsRunner = c.Jobs
		}
		leavehandler.NewHandler(c.Leave, c.People, perms, jobsRunner).RegisterRoutes(r)

		attendanceHandler := attendancehandler.NewHandler(c.Attendance, c.Enrollment, c.People, perms)
		attendanceHandler.KioskLimit = middleware.RateLimitBy(kiosk, middleware.IPKey)
		attendanceHandler.RegisterRoutes(r)

		if c.Notifications != nil {
			notificationshandler.NewHandler(c.Notifications).RegisterRoutes(r)
		}
		if c.Audit != nil {
			audithandler.NewHandler(c.Audit, perms).RegisterRoutes(r)
		}
		if c.Reports != nil {
			reportshandler.NewHandler(c.Reports, perms).RegisterRoutes(r)
		}
	})

	return router
}

func auditorOf(svc *audit.Service) corehandler.Auditor {
	if svc == nil {
		return nil
	}
	return svc
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a.Jobs != nil {
		a.Jobs.Start(ctx)
	}
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
