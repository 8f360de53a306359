package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/health"
	"github.com/shuliakovsky/esplora-bcli/pkg/networks"
	"github.com/shuliakovsky/esplora-bcli/pkg/plugin"
)

func runPlugin(ctx context.Context, cfg config, level zap.AtomicLevel, logger *zap.Logger) error {
	hosts := networks.DefaultHosts
	if cfg.HostsFile != "" {
		h, err := networks.LoadHosts(cfg.HostsFile, logger)
		if err != nil {
			logger.Warn("hosts_file_ignored", zap.String("file", cfg.HostsFile), zap.Error(err))
		} else {
			hosts = h
		}
	}

	p := plugin.New(logger,
		plugin.WithHosts(hosts),
		plugin.WithLevel(level),
		plugin.WithChecker(health.New(30*time.Second, logger)),
	)
	return p.Run(ctx, os.Stdin, os.Stdout)
}
