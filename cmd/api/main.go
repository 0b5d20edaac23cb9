package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/adapters/auth"
	server "frontdesk/internal/adapters/http_server"
	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/adapters/push"
	redisad "frontdesk/internal/adapters/redis"
	"frontdesk/internal/app"
	"frontdesk/internal/billing"
	"frontdesk/internal/shared"
	mysqlrepo "frontdesk/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		// reference data falls back to the database on every miss
		log.Warn().Err(err).Msg("redis unreachable, cache disabled until it recovers")
	}
	tokens := auth.New(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	hub := push.NewHub()
	gate := billing.NewGraceGate(cfg.GracePeriodMinutes)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:      app.NewQueryService(repo, cache, cfg.CacheTTL),
		B:      app.NewBookingService(repo, hub, gate),
		A:      app.NewAuthService(repo, tokens),
		Tokens: tokens,
		Hub:    hub,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Int("grace_minutes", cfg.GracePeriodMinutes).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
