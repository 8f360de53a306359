package networks

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg"
)

const (
	ChainMain    = "main"
	ChainTest    = "test"
	ChainRegtest = "regtest"
	ChainLiquid  = "liquidv1"
)

const liquidGenesisHash = "1466275836220db2944ca059a3a10ef6fd2ea684b0688d2c379296888a206003"

var ErrUnknownChain = errors.New("no chain found for genesis block")

// ChainGenesisTable maps a genesis block hash (display order, lower-case hex) to a chain id.
var ChainGenesisTable = map[string]string{
	chaincfg.MainNetParams.GenesisHash.String():       ChainMain,
	chaincfg.TestNet3Params.GenesisHash.String():      ChainTest,
	chaincfg.RegressionNetParams.GenesisHash.String(): ChainRegtest,
	liquidGenesisHash:                                 ChainLiquid,
}

// Identify returns the chain id for a genesis hash. Matching is exact.
func Identify(genesisHash string) (string, error) {
	if chain, ok := ChainGenesisTable[genesisHash]; ok {
		return chain, nil
	}
	return "", ErrUnknownChain
}
