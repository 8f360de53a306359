package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/shuliakovsky/esplora-bcli/pkg/backend"
	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
	"github.com/shuliakovsky/esplora-bcli/pkg/health"
	"github.com/shuliakovsky/esplora-bcli/pkg/networks"
)

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

func newTestPlugin(t *testing.T, opts ...PluginOption) *Plugin {
	t.Helper()
	opts = append([]PluginOption{WithExplorerOptions(explorer.WithRetryInterval(time.Millisecond))}, opts...)
	return New(zaptest.NewLogger(t), opts...)
}

// runPlugin feeds reqs to the plugin and returns the replies keyed by id.
func runPlugin(t *testing.T, p *Plugin, reqs ...string) map[string]testResponse {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, p.Run(testContext(t), strings.NewReader(strings.Join(reqs, "\n")), &out))

	res := map[string]testResponse{}
	dec := json.NewDecoder(&out)
	for {
		var r testResponse
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.Equal(t, "2.0", r.JSONRPC)
		res[string(r.ID)] = r
	}
	return res
}

func initRequest(id int, options, configuration string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"init","params":{"options":%s,"configuration":%s}}`,
		id, options, configuration)
}

func call(id int, method, params string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":%s}`, id, method, params)
}

func fakeExplorer(t *testing.T) *httptest.Server {
	t.Helper()
	hash := chaincfg.TestNet3Params.GenesisHash.String()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/block-height/0", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(hash))
	})
	mux.HandleFunc("/api/blocks/tip/height", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("2500000"))
	})
	mux.HandleFunc("/api/block/"+hash+"/raw", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{0xde, 0xad})
	})
	mux.HandleFunc("/api/fee-estimates", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"144":1,"5":2,"3":3,"2":4}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetManifest(t *testing.T) {
	res := runPlugin(t, newTestPlugin(t), `{"jsonrpc":"2.0","id":1,"method":"getmanifest","params":{}}`)

	var m Manifest
	require.NoError(t, json.Unmarshal(res["1"].Result, &m))
	require.False(t, m.Dynamic)

	var names []string
	for _, r := range m.RPCMethods {
		names = append(names, r.Name)
	}
	require.ElementsMatch(t, []string{
		"getchaininfo", "getrawblockbyheight", "estimatefees", "sendrawtransaction", "getutxout",
	}, names)

	opts := map[string]Option{}
	for _, o := range m.Options {
		opts[o.Name] = o
	}
	require.Contains(t, opts, "esplora-api-endpoint")
	require.Equal(t, "int", opts["esplora-retries"].Type)
	require.EqualValues(t, 4, opts["esplora-retries"].Default)
}

func TestInitAndCalls(t *testing.T) {
	srv := fakeExplorer(t)
	opts := fmt.Sprintf(`{"esplora-api-endpoint":%q,"esplora-retries":0}`, srv.URL+"/api")

	res := runPlugin(t, newTestPlugin(t, WithChecker(health.New(time.Second, zaptest.NewLogger(t)))),
		initRequest(1, opts, `{"network":"testnet"}`),
		call(2, "getchaininfo", `{}`),
		call(3, "getrawblockbyheight", `[0]`),
		call(4, "estimatefees", `[]`),
		call(5, "getrawblockbyheight", `{"height":"-3"}`),
		call(6, "getblockhash", `[]`),
		call(7, "getrawblockbyheight", `{"height":7}`),
	)
	require.Len(t, res, 7)

	require.JSONEq(t, `{}`, string(res["1"].Result))
	require.JSONEq(t, `{"chain":"test","headercount":2500000,"blockcount":2500000,"ibd":false}`, string(res["2"].Result))
	require.JSONEq(t, `{"blockhash":"`+chaincfg.TestNet3Params.GenesisHash.String()+`","block":"dead"}`, string(res["3"].Result))
	require.JSONEq(t, `{"opening":200,"mutual_close":200,"unilateral_close":400,"delayed_to_us":200,
		"htlc_resolution":300,"penalty":300,"min_acceptable":50,"max_acceptable":4000}`, string(res["4"].Result))

	require.NotNil(t, res["5"].Error)
	require.Equal(t, CodeInvalidParams, res["5"].Error.Code)
	require.NotNil(t, res["6"].Error)
	require.Equal(t, CodeMethodNotFound, res["6"].Error.Code)
	require.JSONEq(t, `{"blockhash":null,"block":null}`, string(res["7"].Result))
}

func TestSecondInitKeepsEndpoint(t *testing.T) {
	first := fakeExplorer(t)
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer second.Close()

	endpoint := func(srv *httptest.Server) string {
		return fmt.Sprintf(`{"esplora-api-endpoint":%q,"esplora-retries":0}`, srv.URL+"/api")
	}
	reqs := []string{initRequest(1, endpoint(first), `{"network":"testnet"}`)}
	for i := 0; i < 10; i++ {
		reqs = append(reqs,
			call(100+i, "getchaininfo", `{}`),
			initRequest(200+i, endpoint(second), `{"network":"bitcoin"}`),
		)
	}
	reqs = append(reqs, call(2, "getchaininfo", `{}`))

	res := runPlugin(t, newTestPlugin(t), reqs...)
	require.Len(t, res, 22)
	for id, r := range res {
		require.Nil(t, r.Error, id)
	}
	for i := 0; i < 10; i++ {
		require.JSONEq(t, `{}`, string(res[fmt.Sprint(200+i)].Result))
		require.Contains(t, string(res[fmt.Sprint(100+i)].Result), `"chain":"test"`)
	}
	require.JSONEq(t, `{"chain":"test","headercount":2500000,"blockcount":2500000,"ibd":false}`, string(res["2"].Result))
}

func TestCallBeforeInit(t *testing.T) {
	res := runPlugin(t, newTestPlugin(t), call(1, "getchaininfo", `{}`))
	require.NotNil(t, res["1"].Error)
	require.Equal(t, CodeBackendFailed, res["1"].Error.Code)
}

func TestInit_AlwaysUseProxyWithoutProxy(t *testing.T) {
	res := runPlugin(t, newTestPlugin(t),
		initRequest(1, `{}`, `{"network":"bitcoin","always_use_proxy":true}`))

	var out map[string]string
	require.NoError(t, json.Unmarshal(res["1"].Result, &out))
	require.Contains(t, out["disable"], "always_use_proxy")
}

func TestInit_BadOption(t *testing.T) {
	res := runPlugin(t, newTestPlugin(t),
		initRequest(1, `{"esplora-fee-policy":"lenient"}`, `{"network":"bitcoin"}`))

	var out map[string]string
	require.NoError(t, json.Unmarshal(res["1"].Result, &out))
	require.Contains(t, out["disable"], "esplora-fee-policy")
}

func TestInit_UnsupportedNetwork(t *testing.T) {
	res := runPlugin(t, newTestPlugin(t),
		initRequest(1, `{}`, `{"network":"signet"}`),
		call(2, "estimatefees", `{}`),
	)
	require.JSONEq(t, `{}`, string(res["1"].Result))
	require.NotNil(t, res["2"].Error)
	require.Equal(t, CodeBackendFailed, res["2"].Error.Code)
	require.Contains(t, res["2"].Error.Message, explorer.ErrNoEndpoint.Error())
}

func TestInit_VerboseLowersLevel(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	runPlugin(t, newTestPlugin(t, WithLevel(level)),
		initRequest(1, `{"esplora-verbose":true}`, `{"network":"signet"}`))
	require.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestNotificationGetsNoReply(t *testing.T) {
	res := runPlugin(t, newTestPlugin(t), `{"jsonrpc":"2.0","method":"shutdown","params":{}}`)
	require.Empty(t, res)
}

func TestHandlerPanicIsReported(t *testing.T) {
	p := newTestPlugin(t)
	p.backend.Store(backend.New(nil, backend.FeePolicyFallback, zaptest.NewLogger(t)))

	res := runPlugin(t, p, call(9, "getchaininfo", `{}`))
	require.NotNil(t, res["9"].Error)
	require.Equal(t, CodeInternal, res["9"].Error.Code)
}

func TestRun_MalformedInput(t *testing.T) {
	var out bytes.Buffer
	err := newTestPlugin(t).Run(testContext(t), strings.NewReader(`{"jsonrpc":`), &out)
	require.Error(t, err)
}

func TestBuildSettings(t *testing.T) {
	tor := `"proxy":{"type":"ipv4","address":"127.0.0.1","port":9150}`
	tests := []struct {
		name     string
		options  string
		conf     string
		endpoint string
		proxy    bool
	}{
		{name: "clearnet", options: `{}`, conf: `{"network":"bitcoin"}`, endpoint: "https://blockstream.info/api"},
		{name: "testnet", options: `{}`, conf: `{"network":"testnet"}`, endpoint: "https://blockstream.info/testnet/api"},
		{name: "onion v2", options: `{}`, conf: `{"network":"liquid",` + tor + `}`, endpoint: networks.DefaultHosts.OnionV2 + "/liquid/api", proxy: true},
		{name: "onion v3 option", options: `{"esplora-torv3":"true"}`, conf: `{"network":"bitcoin",` + tor + `}`, endpoint: networks.DefaultHosts.OnionV3 + "/api", proxy: true},
		{name: "onion v3 config", options: `{}`, conf: `{"network":"bitcoin","torv3-enabled":true,` + tor + `}`, endpoint: networks.DefaultHosts.OnionV3 + "/api", proxy: true},
		{name: "proxy disabled", options: `{"esplora-disable-proxy":true}`, conf: `{"network":"bitcoin",` + tor + `}`, endpoint: "https://blockstream.info/api"},
		{name: "explicit endpoint", options: `{"esplora-api-endpoint":"http://localhost:3000"}`, conf: `{"network":"regtest"}`, endpoint: "http://localhost:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ip InitParams
			require.NoError(t, json.Unmarshal([]byte(`{"options":`+tt.options+`,"configuration":`+tt.conf+`}`), &ip))

			s, err := BuildSettings(ip, networks.DefaultHosts)
			require.NoError(t, err)
			require.NoError(t, s.EndpointErr)
			require.Equal(t, tt.endpoint, s.Explorer.Endpoint)
			require.Equal(t, tt.proxy, s.Proxy.Enabled)
			if tt.proxy {
				require.Equal(t, "127.0.0.1:9150", s.Proxy.Addr())
			}
		})
	}
}

func TestBuildSettings_Options(t *testing.T) {
	var ip InitParams
	require.NoError(t, json.Unmarshal([]byte(`{"options":{
		"esplora-retries":"2",
		"esplora-verbose":"false",
		"esplora-cainfo":"/etc/ssl/bundle.pem",
		"esplora-fee-policy":"strict"
	},"configuration":{"network":"signet"}}`), &ip))

	s, err := BuildSettings(ip, networks.DefaultHosts)
	require.NoError(t, err)
	require.EqualValues(t, 2, s.Explorer.Retries)
	require.False(t, s.Explorer.Verbose)
	require.Equal(t, "/etc/ssl/bundle.pem", s.Explorer.CAFile)
	require.Equal(t, backend.FeePolicyStrict, s.FeePolicy)
	require.ErrorIs(t, s.EndpointErr, networks.ErrUnsupportedNetwork)
	require.Empty(t, s.Explorer.Endpoint)

	ip.Options = map[string]json.RawMessage{}
	s, err = BuildSettings(ip, networks.DefaultHosts)
	require.NoError(t, err)
	require.EqualValues(t, explorer.DefaultRetries, s.Explorer.Retries)

	ip.Options = map[string]json.RawMessage{"esplora-retries": json.RawMessage(`-1`)}
	_, err = BuildSettings(ip, networks.DefaultHosts)
	require.Error(t, err)
}
