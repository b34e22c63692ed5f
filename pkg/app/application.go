package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slotbook/internal/health"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	"slotbook/pkg/contracts"
	kafkamiddleware "slotbook/pkg/kafka/middleware"
	"slotbook/pkg/middleware"
	"sync"
	"syscall"

	"github.com/go-chi/cors"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PublicPrefixes skip bearer authentication.
var PublicPrefixes = []string{"/api/v1/public/", "/api/v1/webhooks/"}

// Runner is a background loop that returns once ctx is cancelled.
type Runner func(ctx context.Context) error

type namedRunner struct {
	name string
	run  Runner
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	registry         *prometheus.Registry
	health           *health.HealthHandler
	authManager      *auth.Manager
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.RateLimiter
	handler          http.Handler
	kafkaMetrics     *kafkamiddleware.Metrics
	runners          []namedRunner
	closers          []func() error
}

func NewApplication(cfg *config.Config) *Application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := health.NewHealthHandler(cfg.Log)
	if cfg.Client.Mongo != nil {
		mongoClient := cfg.Client.Mongo
		healthHandler.AddCheck("mongo", func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		})
	}
	if cfg.Client.Postgres != nil {
		healthHandler.AddCheck("postgres", cfg.Client.Postgres.Ping)
	}

	return &Application{
		cfg:         cfg,
		registry:    registry,
		health:      healthHandler,
		authManager: auth.NewManager(cfg.AuthJWTSecret, cfg.AuthTokenTTL),
	}
}

// Registry is where services register their own collectors; it backs /metrics.
func (a *Application) Registry() *prometheus.Registry {
	return a.registry
}

func (a *Application) AuthManager() *auth.Manager {
	return a.authManager
}

// AddRunner registers a background loop started by Run and stopped on shutdown.
func (a *Application) AddRunner(name string, run Runner) {
	a.runners = append(a.runners, namedRunner{name: name, run: run})
}

// OnShutdown registers a closer invoked after the server and runners stopped.
func (a *Application) OnShutdown(closer func() error) {
	a.closers = append(a.closers, closer)
}

func (a *Application) SetApp(appHandlers ...contracts.Handler) {
	a.handler = a.buildHandler(appHandlers)
	a.setAppServer()
}

// Handler is the fully wrapped root handler. Valid after SetApp.
func (a *Application) Handler() http.Handler {
	return a.handler
}

func (a *Application) healthHTTPHandler() http.Handler {
	healthRouter := httprouter.New()
	a.health.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	return healthHTTPHandler
}

func (a *Application) appHTTPHandler(appHandlers []contracts.Handler) http.Handler {
	appRouter := httprouter.New()
	for _, h := range appHandlers {
		h.RegisterRoutes(appRouter)
	}

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ClientKey,
		a.cfg.Log,
	)
	httpMetrics := middleware.NewHTTPMetrics(a.registry, a.cfg.ServiceName)

	var appHandler http.Handler = appRouter
	appHandler = middleware.Idempotency(a.idempotencyStore)(appHandler)
	appHandler = middleware.Authentication(a.authManager, a.cfg.Log, PublicPrefixes...)(appHandler)
	appHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHandler)
	appHandler = middleware.RateLimit(a.rateLimiter)(appHandler)
	appHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHandler)
	appHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHandler)
	appHandler = middleware.Metrics(httpMetrics)(appHandler)
	appHandler = cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(appHandler)
	appHandler = middleware.RequestLogging(a.cfg.Log)(appHandler)
	appHandler = middleware.Recovery(a.cfg.Log)(appHandler)

	a.cfg.Log.Info("Application endpoints configured",
		"auth_enforced", a.authManager.Enabled(),
		"cors_origins", a.cfg.CORSAllowedOrigins,
	)
	return appHandler
}

func (a *Application) buildHandler(appHandlers []contracts.Handler) http.Handler {
	healthHandler := a.healthHTTPHandler()

	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler)
	mux.Handle("/ready", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	mux.Handle("/", a.appHTTPHandler(appHandlers))
	return mux
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runnersCtx, cancelRunners := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, r := range a.runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.cfg.Log.Info("Starting background runner", "runner", r.name)
			if err := r.run(runnersCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Background runner stopped with error", "runner", r.name, "error", err)
				return
			}
			a.cfg.Log.Info("Background runner stopped", "runner", r.name)
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			cancelRunners()
			wg.Wait()
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case <-ctx.Done():
		a.cfg.Log.Info("Shutdown signal received")
	}

	a.gracefulShutdown(cancelRunners, &wg)
}

func (a *Application) gracefulShutdown(cancelRunners context.CancelFunc, wg *sync.WaitGroup) {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	cancelRunners()
	wg.Wait()
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()

	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.cfg.Log.Error("Shutdown hook failed", "error", err)
		}
	}
	a.cfg.GracefulShutdown()

	a.cfg.Log.Info("Server stopped gracefully")
}
