package explorer

import (
	"net"
	"strconv"
)

const (
	DefaultRetries   = 4
	DefaultProxyPort = 9050
)

// Config is the backend configuration. It is built once during plugin init and
// never modified afterwards.
type Config struct {
	Endpoint string // base URL including the API suffix, e.g. https://blockstream.info/api
	CAFile   string // CA bundle, replaces the system roots when set
	CAPath   string // directory of PEM certificates
	Verbose  bool
	Retries  uint // additional attempts on transport failure
}

// ProxyConfig describes the SOCKS5 proxy lightningd was started with.
// Enabled is already false when the proxy has been disabled for this plugin.
type ProxyConfig struct {
	Enabled   bool
	Host      string
	Port      int
	TorV3     bool
	AlwaysUse bool
}

func (p ProxyConfig) Addr() string {
	port := p.Port
	if port == 0 {
		port = DefaultProxyPort
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}
