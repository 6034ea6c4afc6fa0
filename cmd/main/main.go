package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"listing-match/internal/config"
	"listing-match/internal/match/service"
	"listing-match/internal/match/textnorm"
	"listing-match/internal/store"
	serverhttp "listing-match/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	profile, tables, err := config.LoadProfile(cfg.MatchProfile, cfg.ReferenceRetailer)
	if err != nil {
		logger.Fatal().Err(err).Str("profile", cfg.MatchProfile).Msg("match profile")
	}

	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open store")
	}
	defer db.Close()

	orch, err := service.New(logger, profile, textnorm.New(tables), db, db, service.Options{
		Workers:      cfg.Workers,
		BlockTimeout: cfg.BlockTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("matcher")
	}

	r := serverhttp.NewRouter(cfg, logger, serverhttp.Deps{Matcher: orch, Catalog: db, DB: db})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().
		Str("addr", cfg.Addr()).
		Str("profile", profile.Version).
		Str("reference_retailer", profile.ReferenceRetailer).
		Str("db", cfg.DBPath).
		Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info().Msg("bye")
}
