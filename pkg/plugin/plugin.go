package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shuliakovsky/esplora-bcli/pkg/backend"
	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
	"github.com/shuliakovsky/esplora-bcli/pkg/health"
	"github.com/shuliakovsky/esplora-bcli/pkg/networks"
)

// Plugin speaks the lightningd plugin protocol on a reader/writer pair and
// routes the bcli methods to a Backend.
type Plugin struct {
	logger      *zap.Logger
	level       *zap.AtomicLevel
	hosts       networks.Hosts
	checker     *health.Checker
	explorerOps []explorer.Option

	out   io.Writer
	outMu sync.Mutex
	wg    sync.WaitGroup

	// Set once by the first init; later inits leave it untouched.
	backend atomic.Pointer[backend.Backend]
}

type PluginOption func(*Plugin)

// WithHosts replaces the explorer hosts used to resolve the endpoint.
func WithHosts(h networks.Hosts) PluginOption { return func(p *Plugin) { p.hosts = h } }

// WithLevel lets esplora-verbose lower the log level to debug.
func WithLevel(l zap.AtomicLevel) PluginOption { return func(p *Plugin) { p.level = &l } }

// WithChecker runs a startup probe against the explorer after init.
func WithChecker(c *health.Checker) PluginOption { return func(p *Plugin) { p.checker = c } }

func WithExplorerOptions(opts ...explorer.Option) PluginOption {
	return func(p *Plugin) { p.explorerOps = append(p.explorerOps, opts...) }
}

func New(logger *zap.Logger, opts ...PluginOption) *Plugin {
	p := &Plugin{logger: logger, hosts: networks.DefaultHosts}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run reads requests from in until EOF and writes replies to out. Calls are
// answered concurrently; Run returns once every in-flight call has replied.
func (p *Plugin) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p.out = out
	defer p.wg.Wait()

	dec := json.NewDecoder(in)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("plugin_stdin_closed")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		switch req.Method {
		case "getmanifest", "init":
			p.dispatch(ctx, req)
		default:
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.dispatch(ctx, req)
			}()
		}
	}
}

func (p *Plugin) dispatch(ctx context.Context, req Request) {
	callID := uuid.NewString()
	log := p.logger.With(zap.String("call_id", callID), zap.String("method", req.Method))
	start := time.Now()

	var (
		result any
		rpcErr *Error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("plugin_call_panic", zap.Any("panic", r), zap.Stack("stack"))
				rpcErr = &Error{Code: CodeInternal, Message: fmt.Sprintf("%s: internal error", req.Method)}
			}
		}()
		result, rpcErr = p.handle(ctx, log, req)
	}()

	if req.IsNotification() {
		log.Debug("plugin_notification", zap.Duration("took", time.Since(start)))
		return
	}
	if rpcErr != nil {
		log.Warn("plugin_call_failed",
			zap.Int("code", rpcErr.Code),
			zap.String("error", rpcErr.Message),
			zap.Duration("took", time.Since(start)),
		)
	} else {
		log.Debug("plugin_call_ok", zap.Duration("took", time.Since(start)))
	}
	p.reply(log, Response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr})
}

func (p *Plugin) handle(ctx context.Context, log *zap.Logger, req Request) (any, *Error) {
	switch req.Method {
	case "":
		return nil, &Error{Code: CodeInvalidRequest, Message: "missing method"}
	case "getmanifest":
		return p.manifest(), nil
	case "init":
		return p.initialize(ctx, log, req.Params), nil
	}

	call, err := backend.DecodeCall(req.Method, req.Params)
	if err != nil {
		if errors.Is(err, backend.ErrUnknownMethod) {
			return nil, &Error{Code: CodeMethodNotFound, Message: err.Error()}
		}
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	b := p.backend.Load()
	if b == nil {
		return nil, &Error{Code: CodeBackendFailed, Message: fmt.Sprintf("%s: plugin not initialized", req.Method)}
	}

	res, err := b.Handle(ctx, call)
	if err != nil {
		var pe *backend.ParamError
		if errors.As(err, &pe) {
			return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
		}
		return nil, &Error{Code: CodeBackendFailed, Message: err.Error()}
	}
	return res, nil
}

func (p *Plugin) manifest() Manifest {
	m := Manifest{Options: manifestOptions, Dynamic: false}
	for _, info := range backend.Methods {
		m.RPCMethods = append(m.RPCMethods, RPCMethod{
			Name:        string(info.Name),
			Usage:       info.Usage,
			Description: info.Description,
		})
	}
	return m
}

// initialize answers {} or, when the plugin cannot work with the given
// configuration, {"disable": reason} so lightningd unloads it cleanly.
// The endpoint is resolved by the first successful init only.
func (p *Plugin) initialize(ctx context.Context, log *zap.Logger, params json.RawMessage) map[string]any {
	if p.backend.Load() != nil {
		log.Warn("plugin_already_initialized")
		return map[string]any{}
	}

	var ip InitParams
	if err := json.Unmarshal(params, &ip); err != nil {
		return disable(log, fmt.Errorf("bad init params: %w", err))
	}

	s, err := BuildSettings(ip, p.hosts)
	if err != nil {
		return disable(log, err)
	}
	if s.EndpointErr != nil {
		log.Warn("plugin_network_unsupported",
			zap.String("network", s.Network),
			zap.Error(s.EndpointErr),
		)
	}
	if s.Explorer.Verbose && p.level != nil {
		p.level.SetLevel(zapcore.DebugLevel)
	}

	ex, err := explorer.New(s.Explorer, s.Proxy, p.logger, p.explorerOps...)
	if err != nil {
		return disable(log, err)
	}
	if !p.backend.CompareAndSwap(nil, backend.New(ex, s.FeePolicy, p.logger)) {
		log.Warn("plugin_already_initialized")
		return map[string]any{}
	}

	log.Info("plugin_init",
		zap.String("network", s.Network),
		zap.String("endpoint", s.Explorer.Endpoint),
		zap.Bool("proxy", s.Proxy.Enabled),
		zap.Bool("torv3", s.Proxy.TorV3),
		zap.Uint("retries", s.Explorer.Retries),
		zap.String("fee_policy", s.FeePolicy.String()),
	)

	if p.checker != nil && s.Explorer.Endpoint != "" {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.checker.Probe(ctx, ex)
		}()
	}
	return map[string]any{}
}

func disable(log *zap.Logger, err error) map[string]any {
	log.Error("plugin_disabled", zap.Error(err))
	return map[string]any{"disable": err.Error()}
}

func (p *Plugin) reply(log *zap.Logger, resp Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		log.Error("plugin_reply_encode_failed", zap.Error(err))
		b, _ = json.Marshal(Response{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &Error{Code: CodeInternal, Message: "reply encoding failed"},
		})
	}
	b = append(b, '\n', '\n')

	p.outMu.Lock()
	defer p.outMu.Unlock()
	if _, err := p.out.Write(b); err != nil {
		log.Error("plugin_reply_write_failed", zap.Error(err))
	}
}
