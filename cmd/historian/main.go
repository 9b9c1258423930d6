// cmd/historian/main.go is an asynchronous historian service that pops game
// actions from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/pongai/internal/cache"
	"github.com/jason-s-yu/pongai/internal/config"
	"github.com/jason-s-yu/pongai/internal/database"
	"github.com/jason-s-yu/pongai/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	cfg := &config.Historian{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Historian) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pongai-historian",
		Short: "Persists queued game actions and marks idle games abandoned.",
		Args:  cobra.NoArgs,
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

func run(ctx context.Context, cfg *config.Historian) error {
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	consumer := cache.NewConsumer(rdb, cfg.RedisQueue)
	defer consumer.Close()

	store, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	log.Infof("Consuming %s from redis %s", cfg.RedisQueue, cfg.RedisAddr)
	historian.NewService(consumer, store, historian.Config{
		BatchSize:       cfg.BatchSize,
		FlushDelay:      cfg.FlushDelay,
		Inactivity:      cfg.Inactivity,
		InactivityCheck: cfg.InactivityCheck,
	}).Run(ctx)
	return nil
}
