// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/comment-notifications/internal/comments"
	commentspostgres "github.com/bissquit/comment-notifications/internal/comments/postgres"
	"github.com/bissquit/comment-notifications/internal/config"
	"github.com/bissquit/comment-notifications/internal/content"
	contentpostgres "github.com/bissquit/comment-notifications/internal/content/postgres"
	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/identity"
	"github.com/bissquit/comment-notifications/internal/identity/jwt"
	identitypostgres "github.com/bissquit/comment-notifications/internal/identity/postgres"
	"github.com/bissquit/comment-notifications/internal/notifications"
	"github.com/bissquit/comment-notifications/internal/notifications/email"
	"github.com/bissquit/comment-notifications/internal/pkg/ctxlog"
	"github.com/bissquit/comment-notifications/internal/pkg/httputil"
	"github.com/bissquit/comment-notifications/internal/pkg/metrics"
	"github.com/bissquit/comment-notifications/internal/pkg/postgres"
	"github.com/bissquit/comment-notifications/internal/session"
	"github.com/bissquit/comment-notifications/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"
)

const dbMetricsInterval = 15 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         *session.RedisStore
	sessions      session.Store
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	app := &App{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := app.setupSessions(connectCtx); err != nil {
		db.Close()
		return nil, err
	}

	router, err := app.setupRouter()
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	app.metricsCancel = metricsCancel
	go metrics.CollectDBPoolMetrics(metricsCtx, db, dbMetricsInterval)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Sessions returns the session flag store.
func (a *App) Sessions() session.Store {
	return a.sessions
}

func (a *App) setupSessions(ctx context.Context) error {
	redisCfg := a.config.Session.Redis
	if redisCfg.Addr == "" {
		a.logger.Warn("session redis is not configured: session flags are kept in process memory")
		a.sessions = session.NewMemoryStore()
		return nil
	}

	store, err := session.NewRedisStore(ctx, session.RedisConfig{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	a.redis = store
	a.sessions = store
	return nil
}

func (a *App) closeStores() error {
	a.db.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	registry := content.NewRegistry()
	for typeName, table := range a.config.Content.Types {
		registry.Register(typeName, contentpostgres.NewTableResolver(a.db, table))
	}
	slog.Info("content types registered", "types", registry.Types())

	commentsService := comments.NewService(commentspostgres.NewRepository(a.db), registry, comments.Config{
		RequireModeration: a.config.Comments.RequireModeration,
	})

	identityRepo := identitypostgres.NewRepository(a.db)
	jwtAuth, err := jwt.NewAuthenticator(jwt.Config{
		Secret:              a.config.JWT.SecretKey,
		AccessTokenDuration: a.config.JWT.AccessTokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}
	identityService := identity.NewService(identityRepo, jwtAuth, a.config.Identity.AdminEmails)
	identityHandler := identity.NewHandler(identityService, identity.CookieSettings{
		Secure: a.config.Cookie.Secure,
		Domain: a.config.Cookie.Domain,
	})

	if err := a.setupNotifier(commentsService, registry); err != nil {
		return nil, err
	}
	commentsService.AddFormAlterer(notifications.CommentFormExtension{})

	subscriptions := notifications.NewSubscriptionService(commentsService, registry, a.sessions, notifications.SubscriptionConfig{
		BaseURL: a.config.Notifications.BaseURL,
		FlagTTL: a.config.Session.FlagTTL,
	})
	notificationsHandler := notifications.NewHandler(subscriptions, notifications.HandlerConfig{
		LoginURL: a.config.Notifications.LoginURL,
	})
	commentsHandler := comments.NewHandler(commentsService, identityService)

	sessionMiddleware := session.Middleware(session.CookieConfig{
		Name:   a.config.Session.CookieName,
		Secure: a.config.Cookie.Secure,
		Domain: a.config.Cookie.Domain,
	})

	r.Group(func(r chi.Router) {
		r.Use(httputil.OptionalAuthMiddleware(identityService))
		r.Use(sessionMiddleware)
		notificationsHandler.RegisterUnsubscribeRoutes(r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.OptionalAuthMiddleware(identityService))
			r.Use(sessionMiddleware)

			commentsHandler.RegisterRoutes(r)
			notificationsHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				commentsHandler.RegisterModerationRoutes(r)
			})
		})
	})

	return r, nil
}

// setupNotifier registers the new comment emails on the comment service.
func (a *App) setupNotifier(service *comments.Service, registry *content.Registry) error {
	cfg := a.config.Notifications

	slog.Info("notifications configured",
		"enabled", cfg.Enabled,
		"email_enabled", cfg.Email.Enabled,
	)

	if !cfg.Enabled {
		return nil
	}

	sender, err := email.NewSender(email.Config{
		Enabled:      cfg.Email.Enabled,
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUser:     cfg.Email.SMTPUser,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromAddress:  cfg.AdminEmail,
		Timeout:      cfg.Email.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}

	if !cfg.Email.Enabled {
		slog.Warn("email sender is disabled: comment notifications will not be sent")
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return fmt.Errorf("create notification renderer: %w", err)
	}

	lang, err := language.Parse(cfg.Language)
	if err != nil {
		return fmt.Errorf("parse notifications.language %q: %w", cfg.Language, err)
	}

	service.AddHook(notifications.NewCommentNotifier(service, registry, renderer, sender, notifications.NotifierConfig{
		AdminEmail: cfg.AdminEmail,
		BaseURL:    cfg.BaseURL,
		Language:   lang,
	}))

	return nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, "Session store unavailable")
			return
		}
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
