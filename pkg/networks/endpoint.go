package networks

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedNetwork = errors.New("unsupported network")

// Resolve builds the explorer base URL for a lightningd network name.
// The result only depends on its arguments; callers resolve once at init.
func Resolve(network string, proxyEnabled, torV3 bool) (string, error) {
	return DefaultHosts.Resolve(network, proxyEnabled, torV3)
}

func (h Hosts) Resolve(network string, proxyEnabled, torV3 bool) (string, error) {
	suffix, ok := apiSuffix[network]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}

	host := h.Clearnet
	if proxyEnabled {
		if torV3 {
			host = h.OnionV3
		} else {
			host = h.OnionV2
		}
	}
	if host == "" {
		return "", fmt.Errorf("no explorer host configured for network %q", network)
	}
	return strings.TrimRight(host, "/") + suffix, nil
}
