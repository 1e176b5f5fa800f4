package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/restaurant-orders/internal/domain/order"
	"github.com/xenking/restaurant-orders/internal/handler"
	"github.com/xenking/restaurant-orders/internal/storage/postgres"
	"github.com/xenking/restaurant-orders/pkg/health"
	"github.com/xenking/restaurant-orders/pkg/httpmiddleware"
)

const serviceName = "restaurant-orders"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health checks.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("postgres_pool", time.Second, health.PoolSaturationCheck(
		func() health.PoolStat { return pool.Stat() },
		cfg.Health.PoolSaturation,
	))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.MaxGoroutines))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(cfg.Health.MaxGCPause))

	// Repositories.
	restaurantRepo := postgres.NewRestaurantRepository(pool)
	menuRepo := postgres.NewMenuRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	orderService, err := order.NewService(restaurantRepo, menuRepo, orderRepo,
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithPageSize(cfg.Orders.DefaultPageSize, cfg.Orders.MaxPageSize),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	// HTTP: health endpoints + API routes on one router.
	h := handler.NewHandler(orderService)
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument(serviceName, m),
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r, securityHandler)
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           r,
	}

	healthSvc.Start(ctx, cfg.Health.Interval)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: flip readiness, let load balancers drain, then stop.
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		if ctx.Err() != nil {
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		defer healthSvc.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
