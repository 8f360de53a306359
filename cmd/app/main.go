package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	PrintVersion()

	cfg := loadConfig()
	logger, level := initLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetricsServer(cfg.MetricsAddr, logger)

	if err := runPlugin(ctx, cfg, level, logger); err != nil {
		logger.Fatal("plugin_stopped", zap.Error(err))
	}
}
