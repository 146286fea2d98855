// Command triggerd runs the trigger evaluation scheduler as a daemon.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/watchgrid/triggerd/internal/conf"
	"github.com/watchgrid/triggerd/internal/datastore/entities"
	"github.com/watchgrid/triggerd/internal/datastore/repository"
	"github.com/watchgrid/triggerd/internal/lifecycle"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "triggerd",
		Short:         "Trigger condition engine and notification lifecycle manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	settings, err := conf.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := newLogger(settings.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := gorm.Open(sqlite.Open(settings.Database.Path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&entities.Trigger{}, &entities.Endpoint{}, &entities.Notification{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	registry := prometheus.NewRegistry()
	scheduler, _, _ := lifecycle.Initialize(
		repository.NewTriggerRepository(db),
		repository.NewNotificationRepository(db),
		lifecycle.NewHTTPActivityResolver(settings.ActivityAPI.URL, nil),
		lifecycle.Options{
			ScoreThreshold: settings.ScoreThreshold,
			ScanInterval:   settings.ScanInterval.Std(),
			SnapshotTTL:    settings.SnapshotTTL.Std(),
			Registry:       registry,
		},
		log,
	)

	if settings.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(settings.Metrics.Addr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("triggerd started", zap.String("database", settings.Database.Path))
	scheduler.Run(ctx)
	log.Info("triggerd stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
