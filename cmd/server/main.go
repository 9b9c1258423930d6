// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/pongai/internal/auth"
	"github.com/jason-s-yu/pongai/internal/cache"
	"github.com/jason-s-yu/pongai/internal/config"
	"github.com/jason-s-yu/pongai/internal/database"
	"github.com/jason-s-yu/pongai/internal/evaluator"
	"github.com/jason-s-yu/pongai/internal/game"
	"github.com/jason-s-yu/pongai/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := &config.Server{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Server) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pongai-server",
		Short:   "Serves Pong.AI games over HTTP and WebSocket.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			config.ApplyEnv(cmd.Flags())
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cfg.Flags(cmd.Flags())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func run(ctx context.Context, cfg *config.Server) error {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := auth.Init(cfg.TokenLifetime()); err != nil {
		return err
	}

	var publisher game.ActionPublisher
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		pub := cache.NewPublisher(rdb, cfg.RedisQueue)
		defer pub.Close()
		publisher = pub
		logger.Infof("Publishing game actions to redis %s list %s", cfg.RedisAddr, pub.Queue())
	}

	var store *database.Store
	if cfg.DatabaseURL != "" {
		var err error
		store, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	gs := handlers.NewGameServer(logger, func() *game.Session {
		return game.NewSession(game.SessionConfig{
			Evaluator:          evaluator.NewMock(),
			Rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
			TotalRounds:        cfg.TotalRounds,
			DefaultPlayerCount: cfg.DefaultPlayerCount,
			TurnDuration:       cfg.TurnTimeout,
			Publisher:          publisher,
		})
	})
	gs.DefaultPlayerCount = cfg.DefaultPlayerCount
	gs.PublicURL = cfg.PublicURL
	gs.OriginPatterns = cfg.AllowedOrigins
	if store != nil {
		gs.Recorder = store
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(gs, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
