package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/scythe504/skribblr-sync/internal/config"
	"github.com/scythe504/skribblr-sync/internal/game"
	"github.com/scythe504/skribblr-sync/internal/logging"
	"github.com/scythe504/skribblr-sync/internal/server"
	"github.com/scythe504/skribblr-sync/internal/words"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logging.New("info", os.Stdout)
		log.Fatal().Err(err).Msg("[main] invalid configuration")
	}
	log := logging.New(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeWords, err := openWords(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("[main] could not open word bank")
	}
	defer closeWords()

	settings := game.DefaultSettings()
	settings.RoundDuration = cfg.RoundDuration
	settings.MaxPlayers = cfg.MaxPlayers
	settings.GuessRate = cfg.GuessRate
	settings.GuessBurst = cfg.GuessBurst
	settings.CheckOrigin = server.CheckOrigin(cfg.AllowedOrigin)

	manager := game.NewManager(src, settings, log)
	srv := server.New(manager, cfg.AllowedOrigin, log).NewHTTPServer(cfg)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("[main] listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("[main] server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	manager.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[main] graceful shutdown failed")
	}
}

// openWords opens the configured word bank. A Postgres bank is seeded from
// WORDS_CSV when both are set.
func openWords(ctx context.Context, cfg config.Config, log zerolog.Logger) (words.Source, func(), error) {
	src, closeFn, err := words.Open(ctx, cfg.DatabaseURL, cfg.WordsCSV, log)
	if err != nil {
		return nil, nil, err
	}
	pg, ok := src.(*words.PostgresSource)
	if !ok || cfg.WordsCSV == "" {
		return src, closeFn, nil
	}

	entries, err := words.ReadCSVFile(cfg.WordsCSV, log)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if err := pg.Seed(ctx, entries); err != nil {
		closeFn()
		return nil, nil, err
	}
	log.Info().Int("words", len(entries)).Msg("[openWords] seeded postgres word bank")
	return src, closeFn, nil
}
