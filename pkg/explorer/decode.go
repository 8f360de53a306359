package explorer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Response shapes of the Esplora REST API. Pointer fields distinguish a missing
// field from a zero value.

type Outspend struct {
	Spent *bool `json:"spent"`
}

type TxOut struct {
	Value        *uint64 `json:"value"`
	ScriptPubKey *string `json:"scriptpubkey"`
}

type Tx struct {
	TxID string  `json:"txid"`
	Vout []TxOut `json:"vout"`
}

// FeeEstimates maps a confirmation target ("144") to a fee rate in sat/vB.
// Numbers are kept as text so no precision is lost before conversion.
type FeeEstimates map[string]json.Number

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return parseErr(te.Field, body, err)
		}
		return parseErr("", body, err)
	}
	return nil
}

// DecodeOutspend returns the required "spent" flag of /tx/{txid}/outspend/{vout}.
func DecodeOutspend(body []byte) (bool, error) {
	var o Outspend
	if err := decode(body, &o); err != nil {
		return false, err
	}
	if o.Spent == nil {
		return false, parseErr("spent", body, nil)
	}
	return *o.Spent, nil
}

// DecodeTxOutput extracts vout[index] of a /tx/{txid} response. Both value and
// scriptpubkey are required and the script must be valid hex.
func DecodeTxOutput(body []byte, index uint32) (uint64, []byte, error) {
	var tx Tx
	if err := decode(body, &tx); err != nil {
		return 0, nil, err
	}
	if tx.Vout == nil {
		return 0, nil, parseErr("vout", body, nil)
	}
	if uint64(index) >= uint64(len(tx.Vout)) {
		return 0, nil, parseErr(fmt.Sprintf("vout[%d]", index), body, nil)
	}
	out := tx.Vout[index]
	if out.Value == nil {
		return 0, nil, parseErr(fmt.Sprintf("vout[%d] value", index), body, nil)
	}
	if out.ScriptPubKey == nil {
		return 0, nil, parseErr(fmt.Sprintf("vout[%d] scriptpubkey", index), body, nil)
	}
	script, err := hex.DecodeString(*out.ScriptPubKey)
	if err != nil {
		return 0, nil, parseErr(fmt.Sprintf("vout[%d] scriptpubkey", index), body, fmt.Errorf("invalid hex: %w", err))
	}
	return *out.Value, script, nil
}

func DecodeFeeEstimates(body []byte) (FeeEstimates, error) {
	var fe FeeEstimates
	if err := decode(body, &fe); err != nil {
		return nil, err
	}
	if fe == nil {
		return nil, parseErr("fee estimates", body, nil)
	}
	return fe, nil
}

// ParseBlockHash validates a plain-text block hash body (64 hex chars).
func ParseBlockHash(body []byte) (string, error) {
	s := string(bytes.TrimSpace(body))
	if len(s) != chainhash.MaxHashStringSize {
		return "", parseErr("blockhash", body, fmt.Errorf("expected %d hex chars, got %d", chainhash.MaxHashStringSize, len(s)))
	}
	if _, err := chainhash.NewHashFromStr(s); err != nil {
		return "", parseErr("blockhash", body, err)
	}
	return s, nil
}
