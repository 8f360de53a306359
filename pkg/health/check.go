package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/metrics"
)

// Getter is satisfied by *explorer.Client.
type Getter interface {
	Get(ctx context.Context, path string) ([]byte, error)
	URL(path string) string
}

type Checker struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

func New(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Checker{Timeout: timeout, Logger: logger}
}

// === Esplora ===
// Probe asks the explorer for its tip height once and records the result in
// esplora_explorer_up. It returns whether the explorer answered and the latency.
func (c *Checker) Probe(ctx context.Context, ex Getter) (bool, int64) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	body, err := ex.Get(ctx, "/blocks/tip/height")
	if err != nil {
		metrics.ExplorerUp.Set(0)
		c.Logger.Warn("explorer_probe_failed",
			zap.String("url", ex.URL("/blocks/tip/height")),
			zap.Error(err),
		)
		return false, 0
	}
	ping := time.Since(start).Milliseconds()
	metrics.ExplorerUp.Set(1)
	c.Logger.Info("explorer_probe_ok",
		zap.ByteString("tip", body),
		zap.Int64("ping_ms", ping),
	)
	return true, ping
}
