package backend

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
)

// UtxOutResponse has both fields null for a spent output.
type UtxOutResponse struct {
	Amount *btcutil.Amount `json:"amount"`
	Script *string         `json:"script"`
}

// GetUtxOut checks the spend status of txid:vout and, when unspent, reads the
// output's amount and script from the transaction.
func (b *Backend) GetUtxOut(ctx context.Context, req GetUtxOutRequest) (*UtxOutResponse, error) {
	const m = MethodGetUtxOut

	if len(req.TxID) != chainhash.MaxHashStringSize {
		return nil, &ParamError{Method: m, Param: "txid", Err: fmt.Errorf("expected %d hex chars", chainhash.MaxHashStringSize)}
	}
	if _, err := chainhash.NewHashFromStr(req.TxID); err != nil {
		return nil, &ParamError{Method: m, Param: "txid", Err: err}
	}

	statusPath := fmt.Sprintf("/tx/%s/outspend/%s", req.TxID, FormatVout(req.Vout))
	statusBody, err := b.explorer.Get(ctx, statusPath)
	if err != nil {
		return nil, requestErr(m, b.explorer.URL(statusPath), err)
	}
	spent, err := explorer.DecodeOutspend(statusBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	// bitcoind reports a spent txout as absent rather than failing
	if spent {
		return &UtxOutResponse{}, nil
	}

	txPath := fmt.Sprintf("/tx/%s", req.TxID)
	txBody, err := b.explorer.Get(ctx, txPath)
	if err != nil {
		return nil, requestErr(m, b.explorer.URL(txPath), err)
	}
	value, script, err := explorer.DecodeTxOutput(txBody, req.Vout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	if value > math.MaxInt64 {
		return nil, fmt.Errorf("%s: vout[%d] value %d out of range", m, req.Vout, value)
	}

	amount := btcutil.Amount(value)
	scriptHex := hex.EncodeToString(script)
	return &UtxOutResponse{Amount: &amount, Script: &scriptHex}, nil
}
