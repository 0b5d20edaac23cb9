package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"frontdesk/internal/adapters/hotelapi"
	server "frontdesk/internal/adapters/http_server"
	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/adapters/push"
	redisad "frontdesk/internal/adapters/redis"
	"frontdesk/internal/billing"
	"frontdesk/internal/console"
	"frontdesk/internal/domain"
	"frontdesk/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "console")

	log.Info().
		Str("api", cfg.APIBase).
		Str("token_store", cfg.TokenStore).
		Int("prefetch_workers", cfg.PrefetchWorkers).
		Msg("console starting")

	store := tokenStore(ctx, cfg)
	client, err := hotelapi.New(cfg.APIBase, cfg.APIRPS, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize hotel API client")
	}

	sess := client.Session()
	sess.OnLogout(func() {
		log.Error().Msg("session lost, log in again")
		cancel()
	})
	if _, err := sess.Restore(ctx); err != nil {
		if _, err := sess.Login(ctx, cfg.ConsoleUser, cfg.ConsolePassword); err != nil {
			log.Fatal().Err(err).Msg("login failed")
		}
	}
	log.Info().Int64("hotel_id", sess.HotelID()).Msg("session ready")

	sub, err := push.NewSubscriber(cfg.APIBase, sess)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize push subscriber")
	}
	syncer := console.NewSynchronizer(client, func(ctx context.Context) (console.EventStream, error) {
		st, err := sub.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return st, nil
	})
	if err := syncer.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial snapshot failed, waiting for the push channel")
	}

	rates := console.NewRateCatalog(client, cfg.PrefetchWorkers)
	if types, err := client.RoomTypes(ctx); err != nil {
		log.Warn().Err(err).Msg("room types unavailable, rates load on demand")
	} else {
		ids := make([]int64, 0, len(types))
		for _, t := range types {
			ids = append(ids, t.ID)
		}
		rates.Prefetch(ctx, ids)
	}

	ctl := console.NewController(client, syncer, rates, billing.NewGraceGate(cfg.GracePeriodMinutes))
	defer ctl.Close()

	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
	srv.MountConsole(&server.ConsoleHandlers{C: ctl})
	httpSrv := &http.Server{Addr: cfg.ConsoleAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncer.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.ConsoleAddr).Msg("console listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrAuth) {
			log.Error().Msg("session expired")
			return
		}
		log.Error().Err(err).Msg("console stopped with error")
		return
	}
	log.Info().Msg("console stopped")
}

// tokenStore keeps the session in redis so a restarted console skips the login.
func tokenStore(ctx context.Context, cfg shared.Config) domain.TokenStore {
	if cfg.TokenStore != "redis" {
		return hotelapi.NewMemoryStore()
	}
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, session kept in memory")
		return hotelapi.NewMemoryStore()
	}
	return redisad.NewTokenStore(rc.Client(), cfg.ConsoleUser)
}
