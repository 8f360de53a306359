package explorer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/metrics"
	"github.com/shuliakovsky/esplora-bcli/pkg/secrets"
)

const DefaultRetryInterval = time.Second

// Client performs explorer calls relative to a fixed endpoint. It keeps no
// per-call state and is safe for concurrent use.
type Client struct {
	cfg           Config
	proxy         ProxyConfig
	http          *http.Client
	logger        *zap.Logger
	retryInterval time.Duration
}

type Option func(*Client)

// WithRetryInterval changes the pause between attempts (1s by default).
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

func New(cfg Config, p ProxyConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	if p.AlwaysUse && !p.Enabled {
		return nil, ErrProxyRequired
	}
	hc, err := newHTTPClient(cfg, p)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:           cfg,
		proxy:         p,
		http:          hc,
		logger:        logger,
		retryInterval: DefaultRetryInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Config() Config { return c.cfg }

// URL joins the endpoint and an explorer path such as "/blocks/tip/height".
func (c *Client) URL(path string) string {
	return strings.TrimRight(c.cfg.Endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	url := c.URL(path)
	route := routeOf(path)
	safeURL := secrets.RedactURL(url)

	var out []byte
	attempt := 0
	op := func() error {
		attempt++
		metrics.ExplorerAttempts.WithLabelValues(route).Inc()
		b, err := c.once(ctx, method, url, safeURL, body)
		if err != nil {
			return err
		}
		out = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), uint64(c.cfg.Retries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("explorer_request_retry",
			zap.String("method", method),
			zap.String("url", safeURL),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		metrics.ExplorerRequests.WithLabelValues(route, outcomeOf(err)).Inc()
		c.logger.Warn("explorer_request_failed",
			zap.String("method", method),
			zap.String("url", safeURL),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.ExplorerRequests.WithLabelValues(route, "ok").Inc()
	return out, nil
}

// once runs a single attempt. Transport errors are returned as is so the
// backoff policy retries them; everything else is permanent.
func (c *Client) once(ctx context.Context, method, url, safeURL string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "text/plain")
	}

	var started time.Time
	if c.cfg.Verbose {
		started = LogRequest(c.logger, method, safeURL, body)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s %s: %v", ErrTransport, method, safeURL, ctx.Err()))
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, safeURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: read body: %v", ErrTransport, method, safeURL, err)
	}
	if c.cfg.Verbose {
		LogResponse(c.logger, safeURL, resp.StatusCode, respBody, started)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(&StatusError{
			Method: method,
			URL:    safeURL,
			Code:   resp.StatusCode,
			Body:   Snippet(respBody),
		})
	}
	return respBody, nil
}

func outcomeOf(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

// routeOf collapses an explorer path into a low-cardinality metrics label.
func routeOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "block-height":
		return "/block-height/:height"
	case len(parts) == 3 && parts[0] == "blocks":
		return "/" + strings.Join(parts, "/")
	case len(parts) == 3 && parts[0] == "block" && parts[2] == "raw":
		return "/block/:hash/raw"
	case len(parts) == 1 && (parts[0] == "fee-estimates" || parts[0] == "tx"):
		return "/" + parts[0]
	case len(parts) == 2 && parts[0] == "tx":
		return "/tx/:txid"
	case len(parts) == 4 && parts[0] == "tx" && parts[2] == "outspend":
		return "/tx/:txid/outspend/:vout"
	default:
		return "other"
	}
}
