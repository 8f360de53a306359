package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
)

// FeerateTargets are the confirmation targets queried, in order:
// slow, normal, urgent, very urgent.
var FeerateTargets = [4]int{144, 5, 3, 2}

const (
	slow = iota
	normal
	urgent
	veryUrgent
)

// FeePolicy decides what happens when the explorer has no estimate for a target.
type FeePolicy int

const (
	// FeePolicyFallback reuses the previous target's converted rate (0 for the
	// first target) and only fails when no target has an estimate.
	FeePolicyFallback FeePolicy = iota
	// FeePolicyStrict answers with every field null as soon as one target is missing.
	FeePolicyStrict
)

func ParseFeePolicy(s string) (FeePolicy, error) {
	switch s {
	case "", "fallback":
		return FeePolicyFallback, nil
	case "strict":
		return FeePolicyStrict, nil
	}
	return 0, fmt.Errorf("unknown fee policy %q (want fallback or strict)", s)
}

func (p FeePolicy) String() string {
	if p == FeePolicyStrict {
		return "strict"
	}
	return "fallback"
}

// FeeRatesResponse fields are null only under FeePolicyStrict.
type FeeRatesResponse struct {
	Opening         *uint64 `json:"opening"`
	MutualClose     *uint64 `json:"mutual_close"`
	UnilateralClose *uint64 `json:"unilateral_close"`
	DelayedToUs     *uint64 `json:"delayed_to_us"`
	HTLCResolution  *uint64 `json:"htlc_resolution"`
	Penalty         *uint64 `json:"penalty"`
	MinAcceptable   *uint64 `json:"min_acceptable"`
	MaxAcceptable   *uint64 `json:"max_acceptable"`
}

var errNegativeFeerate = errors.New("negative feerate")

// ToMillionths converts a decimal feerate into an integer scaled by 10^6.
// Digits past the sixth decimal are dropped.
func ToMillionths(n json.Number) (uint64, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errNegativeFeerate
	}
	m := d.Shift(6).Truncate(0).BigInt()
	if !m.IsUint64() {
		return 0, fmt.Errorf("feerate %s overflows", n)
	}
	return m.Uint64(), nil
}

// ConvertFeerate turns an explorer sat/vB estimate into the per-kilo unit
// lightningd expects: millionths divided by 10^4.
func ConvertFeerate(n json.Number) (uint64, error) {
	m, err := ToMillionths(n)
	if err != nil {
		return 0, err
	}
	return m / 10000, nil
}

func (b *Backend) EstimateFees(ctx context.Context) (*FeeRatesResponse, error) {
	const m = MethodEstimateFees

	path := "/fee-estimates"
	body, err := b.explorer.Get(ctx, path)
	if err != nil {
		return nil, requestErr(m, b.explorer.URL(path), err)
	}
	estimates, err := explorer.DecodeFeeEstimates(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}

	var rates [4]uint64
	found := 0
	for i, target := range FeerateTargets {
		raw, ok := estimates[strconv.Itoa(target)]
		var (
			rate    uint64
			convErr error
		)
		if ok {
			rate, convErr = ConvertFeerate(raw)
		}
		if !ok || convErr != nil {
			b.logger.Info("feerate_missing",
				zap.Int("target", target),
				zap.String("policy", b.feePolicy.String()),
				zap.String("body", explorer.Snippet(body)),
				zap.Error(convErr),
			)
			if b.feePolicy == FeePolicyStrict {
				return &FeeRatesResponse{}, nil
			}
			if i > 0 {
				rates[i] = rates[i-1]
			}
			continue
		}
		rates[i] = rate
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("%s: had no feerate for any target (%s)", m, explorer.Snippet(body))
	}

	return feeRates(rates), nil
}

// feeRates derives the lightningd fields. min/max multipliers match lightningd's
// floor handling and its default max multiplier of 10.
func feeRates(r [4]uint64) *FeeRatesResponse {
	u := func(v uint64) *uint64 { return &v }
	return &FeeRatesResponse{
		Opening:         u(r[normal]),
		MutualClose:     u(r[normal]),
		UnilateralClose: u(r[veryUrgent]),
		DelayedToUs:     u(r[normal]),
		HTLCResolution:  u(r[urgent]),
		Penalty:         u(r[urgent]),
		MinAcceptable:   u(r[slow] / 2),
		MaxAcceptable:   u(r[veryUrgent] * 10),
	}
}
