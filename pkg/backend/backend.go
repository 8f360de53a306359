package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/metrics"
)

// Explorer is the subset of the explorer client the handlers need.
type Explorer interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
	URL(path string) string
}

// Backend answers bcli calls from an Esplora explorer. It holds no mutable
// state; one Backend serves concurrent calls.
type Backend struct {
	explorer  Explorer
	feePolicy FeePolicy
	logger    *zap.Logger
}

func New(ex Explorer, policy FeePolicy, logger *zap.Logger) *Backend {
	return &Backend{explorer: ex, feePolicy: policy, logger: logger}
}

// Handle runs a call to completion. The returned value is one of the *Response
// types of this package and is ready to be JSON-encoded as the reply result.
func (b *Backend) Handle(ctx context.Context, call Call) (any, error) {
	var (
		res any
		err error
	)
	switch c := call.(type) {
	case GetChainInfoRequest:
		res, err = b.GetChainInfo(ctx)
	case GetRawBlockByHeightRequest:
		res, err = b.GetRawBlockByHeight(ctx, c)
	case EstimateFeesRequest:
		res, err = b.EstimateFees(ctx)
	case SendRawTransactionRequest:
		res, err = b.SendRawTransaction(ctx, c)
	case GetUtxOutRequest:
		res, err = b.GetUtxOut(ctx, c)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownMethod, call)
	}

	method := "unknown"
	if call != nil {
		method = string(call.Method())
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.MethodCalls.WithLabelValues(method, outcome).Inc()
	return res, err
}

func requestErr(method Method, url string, err error) error {
	return fmt.Errorf("%s: request error on %s: %w", method, url, err)
}
