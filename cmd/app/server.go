package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/metrics"
)

// startMetricsServer exposes /metrics when an address is configured.
func startMetricsServer(addr string, logger *zap.Logger) {
	metrics.Init()
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	go func() {
		logger.Info("Listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_down", zap.Error(err))
		}
	}()
}
