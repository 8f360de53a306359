package backend

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/shuliakovsky/esplora-bcli/pkg/explorer"
)

// RawBlockResponse has both fields null when the block is not available.
type RawBlockResponse struct {
	BlockHash *string `json:"blockhash"`
	Block     *string `json:"block"`
}

func blockNotFound() *RawBlockResponse { return &RawBlockResponse{} }

// GetRawBlockByHeight fetches the hash at a height and then the raw block.
// A failure of either request means "not found yet", not an error: lightningd
// polls heights past the tip.
func (b *Backend) GetRawBlockByHeight(ctx context.Context, req GetRawBlockByHeightRequest) (*RawBlockResponse, error) {
	const m = MethodGetRawBlockByHeight

	hashPath := fmt.Sprintf("/block-height/%d", req.Height)
	hashBody, err := b.explorer.Get(ctx, hashPath)
	if err != nil {
		b.logger.Debug("block_hash_not_found", zap.Uint32("height", req.Height), zap.Error(err))
		return blockNotFound(), nil
	}
	hash, err := explorer.ParseBlockHash(hashBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}

	blockPath := fmt.Sprintf("/block/%s/raw", hash)
	raw, err := b.explorer.Get(ctx, blockPath)
	if err != nil {
		b.logger.Info("raw_block_unavailable",
			zap.Uint32("height", req.Height),
			zap.String("blockhash", hash),
			zap.Error(err),
		)
		return blockNotFound(), nil
	}

	block := hex.EncodeToString(raw)
	return &RawBlockResponse{BlockHash: &hash, Block: &block}, nil
}
