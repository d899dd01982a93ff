package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goatapp/adyen-terminal-api/internal/config"
	"github.com/goatapp/adyen-terminal-api/internal/logger"
	"github.com/goatapp/adyen-terminal-api/internal/sim"
	"github.com/goatapp/adyen-terminal-api/internal/version"
	"github.com/spf13/cobra"
)

// Simulated POI terminal serving the secured message endpoint
func main() {
	cmd := &cobra.Command{
		Use:   "terminal-sim",
		Short: "Simulated POI terminal",
		Long:  `terminal-sim serves the secured /nexo endpoint so clients can run full exchanges without a physical terminal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewSimConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("KEY_IDENTIFIER", cfg.KeyIdentifier),
		slog.Uint64("KEY_VERSION", uint64(cfg.KeyVersion)),
		slog.String("POI_ID", cfg.POIID),
	)

	server, err := sim.NewServer(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create simulated terminal", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		appLogger.Error("Simulated terminal failed", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("Simulated terminal stopped")
	return nil
}
