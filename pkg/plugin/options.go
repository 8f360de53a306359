package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shuliakovsky/esplora-bcli/pkg/backend"
	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
	"github.com/shuliakovsky/esplora-bcli/pkg/networks"
)

const (
	optEndpoint     = "esplora-api-endpoint"
	optCAInfo       = "esplora-cainfo"
	optCAPath       = "esplora-capath"
	optVerbose      = "esplora-verbose"
	optRetries      = "esplora-retries"
	optDisableProxy = "esplora-disable-proxy"
	optTorV3        = "esplora-torv3"
	optFeePolicy    = "esplora-fee-policy"
)

var manifestOptions = []Option{
	{Name: optEndpoint, Type: "string", Default: "", Description: "Esplora API base URL (overrides the network default)"},
	{Name: optCAInfo, Type: "string", Default: "", Description: "CA bundle used to verify the explorer's certificate"},
	{Name: optCAPath, Type: "string", Default: "", Description: "Directory of CA certificates used to verify the explorer"},
	{Name: optVerbose, Type: "bool", Default: false, Description: "Log every explorer request and response"},
	{Name: optRetries, Type: "int", Default: explorer.DefaultRetries, Description: "Retries on explorer connection failures"},
	{Name: optDisableProxy, Type: "bool", Default: false, Description: "Do not use lightningd's proxy for explorer calls"},
	{Name: optTorV3, Type: "bool", Default: false, Description: "Use the v3 onion explorer when a proxy is in use"},
	{Name: optFeePolicy, Type: "string", Default: "fallback", Description: "Missing fee estimates: 'fallback' or 'strict'"},
}

// Settings is everything init derives from options and configuration.
type Settings struct {
	Explorer  explorer.Config
	Proxy     explorer.ProxyConfig
	FeePolicy backend.FeePolicy
	Network   string
	// EndpointErr is set when no endpoint could be resolved for Network.
	EndpointErr error
}

// BuildSettings resolves the explorer configuration once, at init.
func BuildSettings(p InitParams, hosts networks.Hosts) (Settings, error) {
	var (
		s   Settings
		err error
	)
	o := options(p.Options)

	if s.Explorer.CAFile, err = o.str(optCAInfo); err != nil {
		return s, err
	}
	if s.Explorer.CAPath, err = o.str(optCAPath); err != nil {
		return s, err
	}
	if s.Explorer.Verbose, err = o.boolean(optVerbose); err != nil {
		return s, err
	}
	retries, err := o.u32(optRetries, explorer.DefaultRetries)
	if err != nil {
		return s, err
	}
	s.Explorer.Retries = uint(retries)

	policy, err := o.str(optFeePolicy)
	if err != nil {
		return s, err
	}
	if s.FeePolicy, err = backend.ParseFeePolicy(policy); err != nil {
		return s, fmt.Errorf("%s: %w", optFeePolicy, err)
	}

	disable, err := o.boolean(optDisableProxy)
	if err != nil {
		return s, err
	}
	torV3, err := o.boolean(optTorV3)
	if err != nil {
		return s, err
	}

	conf := p.Configuration
	s.Network = conf.Network
	s.Proxy = explorer.ProxyConfig{
		TorV3:     torV3 || conf.TorV3Enabled,
		AlwaysUse: conf.AlwaysUseProxy,
	}
	if conf.Proxy != nil && conf.Proxy.Address != "" && !disable {
		s.Proxy.Enabled = true
		s.Proxy.Host = conf.Proxy.Address
		s.Proxy.Port = conf.Proxy.Port
	}

	endpoint, err := o.str(optEndpoint)
	if err != nil {
		return s, err
	}
	if endpoint == "" {
		endpoint, s.EndpointErr = hosts.Resolve(conf.Network, s.Proxy.Enabled, s.Proxy.TorV3)
	}
	s.Explorer.Endpoint = endpoint
	return s, nil
}

type options map[string]json.RawMessage

func (o options) present(name string) (json.RawMessage, bool) {
	v, ok := o[name]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

func (o options) str(name string) (string, error) {
	raw, ok := o.present(name)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", optionErr(name, "should be a string")
	}
	return s, nil
}

// lightningd may pass bool and int options either typed or as strings.
func (o options) boolean(name string) (bool, error) {
	raw, ok := o.present(name)
	if !ok {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
	}
	return false, optionErr(name, "should be a boolean")
}

func (o options) u32(name string, def uint32) (uint32, error) {
	raw, ok := o.present(name)
	if !ok {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, optionErr(name, "should be an integer")
		}
		s = n.String()
	}
	v, err := backend.ParseU32(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

var errOption = errors.New("invalid option")

func optionErr(name, reason string) error {
	return fmt.Errorf("%w %s: %s", errOption, name, reason)
}
