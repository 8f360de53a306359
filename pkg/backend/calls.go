package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Method is one of the five bcli methods lightningd calls on a chain backend.
type Method string

const (
	MethodGetChainInfo        Method = "getchaininfo"
	MethodGetRawBlockByHeight Method = "getrawblockbyheight"
	MethodEstimateFees        Method = "estimatefees"
	MethodSendRawTransaction  Method = "sendrawtransaction"
	MethodGetUtxOut           Method = "getutxout"
)

type MethodInfo struct {
	Name        Method
	Params      []string // positional order; optional params are listed last
	Required    int
	Usage       string
	Description string
}

var Methods = []MethodInfo{
	{
		Name:        MethodGetRawBlockByHeight,
		Params:      []string{"height"},
		Required:    1,
		Usage:       "height",
		Description: "Get the bitcoin block at a given height",
	},
	{
		Name:        MethodGetChainInfo,
		Description: "Get the chain id, the header count, the block count, and whether this is IBD.",
	},
	{
		Name:        MethodEstimateFees,
		Description: "Get the Bitcoin feerate in sat/kilo-vbyte.",
	},
	{
		Name:        MethodSendRawTransaction,
		Params:      []string{"tx", "allowhighfees"},
		Required:    1,
		Usage:       "tx [allowhighfees]",
		Description: "Send a raw transaction to the Bitcoin network.",
	},
	{
		Name:        MethodGetUtxOut,
		Params:      []string{"txid", "vout"},
		Required:    2,
		Usage:       "txid vout",
		Description: "Get information about an output, identified by a {txid} and a {vout}",
	},
}

func lookup(name string) (MethodInfo, bool) {
	for _, m := range Methods {
		if string(m.Name) == name {
			return m, true
		}
	}
	return MethodInfo{}, false
}

// Call is a decoded request for one of the five methods. The set is closed:
// only the request types below implement it.
type Call interface {
	Method() Method
	call()
}

type GetChainInfoRequest struct{}

type GetRawBlockByHeightRequest struct {
	Height uint32
}

type EstimateFeesRequest struct{}

type SendRawTransactionRequest struct {
	Tx string
	// Accepted for compatibility with bitcoind; Esplora has no equivalent.
	AllowHighFees bool
}

type GetUtxOutRequest struct {
	TxID string
	Vout uint32
}

func (GetChainInfoRequest) Method() Method        { return MethodGetChainInfo }
func (GetRawBlockByHeightRequest) Method() Method { return MethodGetRawBlockByHeight }
func (EstimateFeesRequest) Method() Method        { return MethodEstimateFees }
func (SendRawTransactionRequest) Method() Method  { return MethodSendRawTransaction }
func (GetUtxOutRequest) Method() Method           { return MethodGetUtxOut }

func (GetChainInfoRequest) call()        {}
func (GetRawBlockByHeightRequest) call() {}
func (EstimateFeesRequest) call()        {}
func (SendRawTransactionRequest) call()  {}
func (GetUtxOutRequest) call()           {}

var ErrUnknownMethod = errors.New("unknown method")

// ParamError means the host sent parameters the method cannot accept.
type ParamError struct {
	Method Method
	Param  string
	Err    error
}

func (e *ParamError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s: invalid '%s': %v", e.Method, e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// DecodeCall turns a method name and its JSON-RPC params (object or array)
// into a typed Call.
func DecodeCall(method string, params json.RawMessage) (Call, error) {
	info, ok := lookup(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	named, err := namedParams(info, params)
	if err != nil {
		return nil, err
	}

	switch info.Name {
	case MethodGetChainInfo:
		return GetChainInfoRequest{}, nil
	case MethodEstimateFees:
		return EstimateFeesRequest{}, nil
	case MethodGetRawBlockByHeight:
		h, err := u32Param(named["height"])
		if err != nil {
			return nil, &ParamError{Method: info.Name, Param: "height", Err: err}
		}
		return GetRawBlockByHeightRequest{Height: h}, nil
	case MethodSendRawTransaction:
		var req SendRawTransactionRequest
		if err := json.Unmarshal(named["tx"], &req.Tx); err != nil {
			return nil, &ParamError{Method: info.Name, Param: "tx", Err: errors.New("should be a string")}
		}
		if raw, ok := named["allowhighfees"]; ok && !isNull(raw) {
			if err := json.Unmarshal(raw, &req.AllowHighFees); err != nil {
				return nil, &ParamError{Method: info.Name, Param: "allowhighfees", Err: errors.New("should be a boolean")}
			}
		}
		return req, nil
	case MethodGetUtxOut:
		var req GetUtxOutRequest
		if err := json.Unmarshal(named["txid"], &req.TxID); err != nil {
			return nil, &ParamError{Method: info.Name, Param: "txid", Err: errors.New("should be a string")}
		}
		v, err := u32Param(named["vout"])
		if err != nil {
			return nil, &ParamError{Method: info.Name, Param: "vout", Err: err}
		}
		req.Vout = v
		return req, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
}

func namedParams(info MethodInfo, params json.RawMessage) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(params)

	switch {
	case len(trimmed) == 0 || isNull(trimmed):
	case trimmed[0] == '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, &ParamError{Method: info.Name, Err: err}
		}
		if len(arr) > len(info.Params) {
			return nil, &ParamError{Method: info.Name, Err: fmt.Errorf("too many parameters: got %d, expected at most %d", len(arr), len(info.Params))}
		}
		for i, v := range arr {
			out[info.Params[i]] = v
		}
	case trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, &ParamError{Method: info.Name, Err: err}
		}
		for k := range out {
			if !contains(info.Params, k) {
				return nil, &ParamError{Method: info.Name, Param: k, Err: errors.New("unknown parameter")}
			}
		}
	default:
		return nil, &ParamError{Method: info.Name, Err: errors.New("params must be an object or an array")}
	}

	for _, name := range info.Params[:info.Required] {
		if v, ok := out[name]; !ok || isNull(v) {
			return nil, &ParamError{Method: info.Name, Param: name, Err: errors.New("missing required parameter")}
		}
	}
	return out, nil
}

// u32Param accepts a JSON number or a numeric string, as lightningd has sent both.
func u32Param(raw json.RawMessage) (uint32, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return 0, errors.New("should be an integer")
		}
		s = n.String()
	}
	return ParseU32(s)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FormatVout renders an output index the way it appears in explorer paths.
func FormatVout(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
