package networks

import (
	"github.com/tranvictor/abiscope/util/explorers"
)

// GenericOptimismNetworkConfig has the same fields as the Etherscan
// config; only the explorer behind BlockExplorerAPIURL differs.
type GenericOptimismNetworkConfig = GenericEtherscanNetworkConfig

// GenericOptimismNetwork is a network whose official explorer runs
// Blockscout, as most rollups do.
type GenericOptimismNetwork struct {
	*GenericEtherscanNetwork
}

// NewGenericOptimismNetwork keeps the config as is, there is no default
// Blockscout instance.
func NewGenericOptimismNetwork(config GenericOptimismNetworkConfig) *GenericOptimismNetwork {
	return &GenericOptimismNetwork{&GenericEtherscanNetwork{config: config}}
}

func (gn *GenericOptimismNetwork) Explorer(apiKey string, opts ...explorers.Option) explorers.BlockExplorer {
	return explorers.NewOptimisticRollupExplorer(gn.config.BlockExplorerAPIURL, apiKey, opts...)
}
