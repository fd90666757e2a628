package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/dental-clinic-booking/internal/api"
	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/config"
	"github.com/hackgods/dental-clinic-booking/internal/db"
	"github.com/hackgods/dental-clinic-booking/internal/logging"
	"github.com/hackgods/dental-clinic-booking/internal/observability/metrics"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
	redisclient "github.com/hackgods/dental-clinic-booking/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	entry := logger.WithComponent("api-server")
	entry.WithField("env", cfg.Env).WithField("http_port", cfg.HTTPPort).Info("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	cancelPg()
	if err != nil {
		entry.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()
	entry.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		entry.WithError(err).Fatal("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			entry.WithError(err).Warn("error closing redis")
		}
	}()
	entry.Info("connected to Redis")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	appointmentRepo := appointment.NewPgRepository(pgPool)
	patients := patient.NewService(patient.NewPgRepository(pgPool), appointmentRepo, logger)
	appointments := appointment.NewService(
		appointmentRepo,
		redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL),
		patients,
		logger,
		bookingMetrics,
	)

	router := api.NewRouter(api.RouterConfig{
		Appointments:       appointments,
		Patients:           patients,
		Postgres:           pgPool,
		Redis:              api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		Logger:             logger,
		Metrics:            bookingMetrics,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Clock:              patients.Now,
		Env:                cfg.Env,
		Version:            version,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		entry.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil {
			entry.WithError(err).Error("http server failed")
		}
	}

	entry.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Error("graceful shutdown failed")
	}
}
