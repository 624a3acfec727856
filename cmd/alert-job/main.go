// Command alert-job runs one sweep-and-alert pass and exits, for cron-driven deployments.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/config"
	"github.com/sefapa/sgpd/internal/container"
	"github.com/sefapa/sgpd/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The one-shot run replaces the in-process scheduler
	containerCfg := cfg.ToContainerConfig()
	containerCfg.Scheduler.Enabled = false

	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	result, runErr := c.DailyJob().Run(ctx)

	if err := c.Close(); err != nil {
		logger.Error("Container close failed", zap.Error(err))
	}

	if result != nil {
		fields := []zap.Field{}
		if result.Sweep != nil {
			fields = append(fields,
				zap.Int("opened", result.Sweep.Opened),
				zap.Int("marked_overdue", result.Sweep.MarkedOverdue),
				zap.Int("sweep_failures", len(result.Sweep.Failed)))
		}
		if result.Alert != nil {
			fields = append(fields, zap.Any("alert", result.Alert))
		}
		logger.Info("Daily job result", fields...)
	}

	if runErr != nil {
		logger.Error("Daily job failed", zap.Error(runErr))
		logger.Sync()
		os.Exit(1)
	}
}
