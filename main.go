package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"exchange-market/internal/api"
	"exchange-market/internal/auth"
	"exchange-market/internal/domain"
	"exchange-market/internal/infrastructure/repository"
	"exchange-market/internal/lifecycle"
	"exchange-market/internal/views"
	"exchange-market/pkg/config"
	"exchange-market/pkg/container"
	"exchange-market/pkg/database"
	"exchange-market/pkg/events"
	"exchange-market/pkg/health"
	"exchange-market/pkg/logging"
	"exchange-market/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	c := container.New()

	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(c.Provide(config.Load, true))
	must(c.Provide(func(cfg *config.Config) (*logging.Logger, error) {
		return logging.NewLogger(logging.LogConfig{
			Level:  logging.ParseLevel(cfg.LogLevel),
			Format: cfg.LogFormat,
			Output: cfg.LogOutput,
		})
	}, true))
	must(c.Provide(database.NewWithConfig, true))
	must(c.Provide(repository.NewSQLRepository, true))
	must(c.Provide(func(r *repository.SQLRepository) domain.Repository { return r }, true))
	must(c.Provide(repository.NewSQLUnitOfWorkFactory, true))
	must(c.Provide(func(f *repository.SQLUnitOfWorkFactory) domain.UnitOfWorkFactory { return f }, true))
	must(c.Provide(func(cfg *config.Config) *redis.Client {
		if cfg.RedisAddr == "" {
			return nil
		}
		return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	}, true))
	must(c.Provide(func(cfg *config.Config, rdb *redis.Client, repo domain.Repository, log *logging.Logger) lifecycle.ViewCounter {
		if rdb == nil {
			return views.NewSQLCounter(repo, log)
		}
		return views.NewRedisCounter(rdb, repo, cfg.ViewFlushInterval, log)
	}, true))
	must(c.Provide(func(db *database.DB) events.Store { return events.NewSQLStore(db) }, true))
	must(c.Provide(func(st events.Store) events.Recorder { return st }, true))
	must(c.Provide(lifecycle.NewOrchestrator, true))
	must(c.Provide(func(cfg *config.Config) *auth.Middleware {
		return auth.NewMiddleware(cfg.JWTSecret)
	}, true))
	must(c.Provide(api.NewServer, true))

	return c.Invoke(serve)
}

func serve(cfg *config.Config, log *logging.Logger, db *database.DB, srv *api.Server,
	authMw *auth.Middleware, counter lifecycle.ViewCounter, rdb *redis.Client) error {
	defer log.Close()
	appLog := log.WithComponent("main")

	router := srv.Router(authMw)
	if cfg.MetricsEnabled {
		router.Handle(cfg.MetricsPath, metrics.Handler()).Methods(http.MethodGet)
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Liveness on a side port so probes never contend with API traffic.
	hm := health.NewManager()
	hm.Register(health.NewCheckFunc("database", db.PingContext))
	if rdb != nil {
		hm.Register(health.NewCheckFunc("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	healthMux := http.NewServeMux()
	healthMux.Handle(cfg.HealthCheckPath, hm.Handler())
	healthSrv := &http.Server{Addr: ":" + cfg.HealthCheckPort, Handler: healthMux}

	errCh := make(chan error, 2)
	go func() {
		appLog.Info("http server starting", logging.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		appLog.Info("shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		appLog.Error("http shutdown", err)
	}
	_ = healthSrv.Shutdown(ctx)

	if rc, ok := counter.(*views.RedisCounter); ok {
		rc.Close()
	}
	if err := db.Close(); err != nil {
		appLog.Error("database close", err)
	}
	appLog.Info("stopped")
	return nil
}
