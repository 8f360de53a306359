package plugin

import "encoding/json"

// JSON-RPC 2.0 framing used between lightningd and its plugins.

const (
	CodeBackendFailed  = 400
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports a request that expects no reply.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

type Option struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
}

type RPCMethod struct {
	Name        string `json:"name"`
	Usage       string `json:"usage"`
	Description string `json:"description"`
}

type Manifest struct {
	Options    []Option    `json:"options"`
	RPCMethods []RPCMethod `json:"rpcmethods"`
	Dynamic    bool        `json:"dynamic"`
}

// InitParams is the payload of the "init" call.
type InitParams struct {
	Options       map[string]json.RawMessage `json:"options"`
	Configuration Configuration              `json:"configuration"`
}

type Configuration struct {
	LightningDir   string     `json:"lightning-dir"`
	RPCFile        string     `json:"rpc-file"`
	Network        string     `json:"network"`
	Proxy          *ProxyAddr `json:"proxy,omitempty"`
	AlwaysUseProxy bool       `json:"always_use_proxy"`
	TorV3Enabled   bool       `json:"torv3-enabled"`
}

type ProxyAddr struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}
