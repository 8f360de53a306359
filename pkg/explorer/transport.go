package explorer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/proxy"
)

const (
	dialTimeout         = 30 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	attemptTimeout      = 60 * time.Second
)

func newHTTPClient(cfg Config, p ProxyConfig) (*http.Client, error) {
	base := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		// never pick up HTTP(S)_PROXY from the environment
		Proxy:               nil,
		DialContext:         base.DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	if p.Enabled {
		// Hostnames are handed to the proxy unresolved, so .onion hosts work and
		// no DNS query leaves the tunnel.
		dialer, err := proxy.SOCKS5("tcp", p.Addr(), nil, base)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		} else {
			tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	if cfg.CAFile != "" || cfg.CAPath != "" {
		pool, err := loadCertPool(cfg.CAFile, cfg.CAPath)
		if err != nil {
			return nil, err
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	return &http.Client{Transport: tr, Timeout: attemptTimeout}, nil
}

func loadCertPool(file, dir string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	loaded := 0

	if file != "" {
		pem, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("cainfo: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("cainfo: no certificates in %s", file)
		}
		loaded++
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("capath: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			pem, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			if pool.AppendCertsFromPEM(pem) {
				loaded++
			}
		}
	}

	if loaded == 0 {
		return nil, fmt.Errorf("capath: no certificates found in %s", dir)
	}
	return pool, nil
}
