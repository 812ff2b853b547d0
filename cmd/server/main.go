package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/activity"
	router "github.com/avoronin/Huddle/internal/adapters/http"
	signaladapter "github.com/avoronin/Huddle/internal/adapters/signal"
	"github.com/avoronin/Huddle/internal/app"
	"github.com/avoronin/Huddle/internal/config"
	"github.com/avoronin/Huddle/internal/identity"
	"github.com/avoronin/Huddle/internal/persistence/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	storage, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error().Err(err).Msg("storage close")
		}
	}()

	reg := app.NewRegistry(app.NewMemPresence())
	relay := app.NewRelay(reg)
	gate := app.NewGate(storage, relay)
	resolver := identity.NewResolver(cfg.Secret)

	ctl := &signaladapter.Controller{
		Reg:        reg,
		Relay:      relay,
		Gate:       gate,
		Meetings:   storage,
		Ident:      resolver,
		Activity:   activity.NewSQLiteLog(storage.DB()),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}

	meetings := &router.MeetingHandlers{
		Store: storage,
		Gate:  gate,
		Ident: resolver,
	}

	r := router.SetupRouter(ctx, cfg, ctl, meetings)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
