package backend

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
)

type SendRawTransactionResponse struct {
	Success bool   `json:"success"`
	ErrMsg  string `json:"errmsg"`
}

// SendRawTransaction broadcasts a hex transaction. It never returns an error:
// failures are reported in the response so lightningd can log and retry.
func (b *Backend) SendRawTransaction(ctx context.Context, req SendRawTransactionRequest) (*SendRawTransactionResponse, error) {
	const m = MethodSendRawTransaction

	tx := strings.TrimSpace(req.Tx)
	if _, err := hex.DecodeString(tx); err != nil || tx == "" {
		if err == nil {
			err = fmt.Errorf("empty transaction")
		}
		return &SendRawTransactionResponse{
			Success: false,
			ErrMsg:  fmt.Sprintf("%s: invalid tx (%s): %v", m, explorer.Snippet([]byte(tx)), err),
		}, nil
	}

	path := "/tx"
	txid, err := b.explorer.Post(ctx, path, []byte(tx))
	if err != nil {
		msg := fmt.Sprintf("%s: invalid tx (%s)? on (%s)?: %v", m, explorer.Snippet([]byte(tx)), b.explorer.URL(path), err)
		b.logger.Warn("sendrawtransaction_failed", zap.Error(err))
		return &SendRawTransactionResponse{Success: false, ErrMsg: msg}, nil
	}

	b.logger.Info("sendrawtransaction_ok",
		zap.String("txid", strings.TrimSpace(string(txid))),
		zap.Bool("allowhighfees", req.AllowHighFees),
	)
	return &SendRawTransactionResponse{Success: true, ErrMsg: ""}, nil
}
