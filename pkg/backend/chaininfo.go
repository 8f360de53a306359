package backend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/networks"
)

type ChainInfoResponse struct {
	Chain       string `json:"chain"`
	HeaderCount uint32 `json:"headercount"`
	BlockCount  uint32 `json:"blockcount"`
	IBD         bool   `json:"ibd"`
}

// GetChainInfo reports the chain from its genesis hash and the tip height.
// The explorer is assumed synced: headers equal blocks and ibd is false.
func (b *Backend) GetChainInfo(ctx context.Context) (*ChainInfoResponse, error) {
	const m = MethodGetChainInfo

	genesisPath := "/block-height/0"
	genesisBody, err := b.explorer.Get(ctx, genesisPath)
	if err != nil {
		return nil, requestErr(m, b.explorer.URL(genesisPath), err)
	}
	genesis := strings.TrimSpace(string(genesisBody))

	tipPath := "/blocks/tip/height"
	tipBody, err := b.explorer.Get(ctx, tipPath)
	if err != nil {
		return nil, requestErr(m, b.explorer.URL(tipPath), err)
	}

	height, err := parseHeightBody(tipBody)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid height conversion on %s (error: %w)", m, strings.TrimSpace(string(tipBody)), err)
	}

	chain, err := networks.Identify(genesis)
	if err != nil {
		return nil, fmt.Errorf("%s: %w %s", m, err, genesis)
	}

	b.logger.Debug("getchaininfo",
		zap.String("chain", chain),
		zap.Uint32("height", height),
	)
	return &ChainInfoResponse{
		Chain:       chain,
		HeaderCount: height,
		BlockCount:  height,
		IBD:         false,
	}, nil
}
