// TablutPlay - A Tablut game server with a built-in bot
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/tablutplay/internal/config"
	"github.com/hailam/tablutplay/internal/engine"
	"github.com/hailam/tablutplay/internal/game"
	"github.com/hailam/tablutplay/internal/server"
	"github.com/hailam/tablutplay/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Str("ns", "proc").Str("ev", "config_error").Msg("invalid configuration")
	}

	logger := cfg.NewLogger(os.Stderr)
	log.Logger = logger

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Str("ns", "proc").Str("ev", "exit_error").Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	procLog := logger.With().Str("ns", "proc").Logger()

	storeLog := logger.Level(max(logger.GetLevel(), zerolog.WarnLevel))
	opts, err := cfg.StorageOptions(&storeLog)
	if err != nil {
		return err
	}
	store, err := storage.Open(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	eng := engine.NewRandomEngine()
	eng.SetLogger(logger.With().Str("ns", "bot").Logger())
	eng.SetThreads(runtime.NumCPU())

	hub := server.NewHub(logger)
	svc := game.NewService(store, eng,
		game.WithEvents(hub),
		game.WithLogger(logger),
		game.WithDefaultDifficulty(cfg.DefaultDifficulty),
	)
	srv := server.New(svc, store, hub, server.Options{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		procLog.Info().
			Str("ev", "listen").
			Str("addr", httpSrv.Addr).
			Bool("inMemory", opts.InMemory).
			Str("dir", opts.Dir).
			Msg("server listening")
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	procLog.Info().Str("ev", "shutdown").Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	procLog.Info().Str("ev", "stopped").Msg("server stopped")
	return nil
}
