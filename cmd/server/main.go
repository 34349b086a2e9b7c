package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habb.tech/allo/internal/auth"
	"habb.tech/allo/internal/config"
	"habb.tech/allo/internal/crm"
	"habb.tech/allo/internal/httpapi"
	"habb.tech/allo/internal/obs"
	"habb.tech/allo/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := obs.NewLogger("error", false)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := obs.NewLogger(cfg.LogLevel, cfg.IsDevelopment())

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatal().Err(err).Msg("token service")
	}

	authSvc := auth.NewService(store, tokens, log)
	crmSvc := crm.NewService(pg.NewCustomerStore(store), store.Audit(), log)
	resolver := auth.NewResolver(tokens, store.Users(), auth.FallbackConfig{
		Enabled: cfg.FallbackIdentityEnabled,
		Email:   cfg.FallbackIdentityEmail,
	}, log)

	api := httpapi.New(authSvc, crmSvc, resolver, httpapi.ReadyProbe{DB: store.DB()}, log, httpapi.Options{
		Version:      version,
		CookieSecure: cfg.CookieSecure,
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("version", version).Str("addr", srv.Addr).Msg("starting allo-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("stopped")
}
