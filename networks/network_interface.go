package networks

import (
	"time"

	"github.com/tranvictor/abiscope/util/explorers"
)

type Network interface {
	GetName() string
	GetChainID() uint64
	GetAlternativeNames() []string
	GetNativeTokenSymbol() string
	GetNativeTokenDecimal() uint64
	GetBlockTime() time.Duration

	GetNodeVariableName() string
	GetDefaultNodes() map[string]string

	GetBlockExplorerAPIKeyVariableName() string
	GetBlockExplorerAPIURL() string
	// Explorer builds the block explorer client of the network.
	Explorer(apiKey string, opts ...explorers.Option) explorers.BlockExplorer

	MarshalJSON() ([]byte, error)
}
