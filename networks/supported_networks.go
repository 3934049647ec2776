package networks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const etherscanV2 = "https://api.etherscan.io/v2"

var (
	EthereumMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "mainnet",
		AlternativeNames:   []string{"ethereum"},
		ChainID:            1,
		NativeTokenSymbol:  "ETH",
		NativeTokenDecimal: 18,
		BlockTime:          12,
		NodeVariableName:   "ETHEREUM_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"mainnet-llamarpc": "https://eth.llamarpc.com",
		},
	})
	BSCMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "bsc",
		AlternativeNames:   []string{"bnb"},
		ChainID:            56,
		NativeTokenSymbol:  "BNB",
		NativeTokenDecimal: 18,
		BlockTime:          3,
		NodeVariableName:   "BSC_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"binance": "https://bsc-dataseed.binance.org",
		},
	})
	Matic Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "matic",
		AlternativeNames:   []string{"polygon"},
		ChainID:            137,
		NativeTokenSymbol:  "POL",
		NativeTokenDecimal: 18,
		BlockTime:          2,
		NodeVariableName:   "MATIC_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"polygon": "https://polygon-rpc.com",
		},
	})
	ArbitrumMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "arbitrum",
		ChainID:            42161,
		NativeTokenSymbol:  "ETH",
		NativeTokenDecimal: 18,
		BlockTime:          1,
		NodeVariableName:   "ARBITRUM_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"arbitrum": "https://arb1.arbitrum.io/rpc",
		},
	})
	OptimismMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "optimism",
		ChainID:            10,
		NativeTokenSymbol:  "ETH",
		NativeTokenDecimal: 18,
		BlockTime:          2,
		NodeVariableName:   "OPTIMISM_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"mainnet-optimism": "https://mainnet.optimism.io",
		},
	})
	BaseMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "base",
		ChainID:            8453,
		NativeTokenSymbol:  "ETH",
		NativeTokenDecimal: 18,
		BlockTime:          2,
		NodeVariableName:   "BASE_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"base": "https://mainnet.base.org",
		},
	})
	Avalanche Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "avalanche",
		AlternativeNames:   []string{"avax"},
		ChainID:            43114,
		NativeTokenSymbol:  "AVAX",
		NativeTokenDecimal: 18,
		BlockTime:          2,
		NodeVariableName:   "AVALANCHE_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"avax": "https://api.avax.network/ext/bc/C/rpc",
		},
	})
	LineaMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "linea",
		ChainID:            59144,
		NativeTokenSymbol:  "ETH",
		NativeTokenDecimal: 18,
		BlockTime:          2,
		NodeVariableName:   "LINEA_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"linea": "https://rpc.linea.build",
		},
	})
	ScrollMainnet Network = NewGenericEtherscanNetwork(GenericEtherscanNetworkConfig{
		Name:               "scroll",
		ChainID:            534352,
		NativeTokenSymbol:  "ETH",
		NativeTokenDecimal: 18,
		BlockTime:          3,
		NodeVariableName:   "SCROLL_MAINNET_NODE",
		DefaultNodes: map[string]string{
			"scroll": "https://rpc.scroll.io",
		},
	})
	PolygonZkevmMainnet Network = NewGenericOptimismNetwork(GenericOptimismNetworkConfig{
		Name:                            "polygon-zkevm",
		ChainID:                         1101,
		NativeTokenSymbol:               "ETH",
		NativeTokenDecimal:              18,
		BlockTime:                       3,
		NodeVariableName:                "POLYGON_ZKEVM_MAINNET_NODE",
		DefaultNodes:                    map[string]string{"polygon": "https://zkevm-rpc.com"},
		BlockExplorerAPIKeyVariableName: "POLYGON_ZKEVM_BLOCKSCOUT_API_KEY",
		BlockExplorerAPIURL:             "https://zkevm.blockscout.com/api/v2",
	})
)

// Insert more Network implementation here to support
// more chains
var supportedNetworks = []Network{
	EthereumMainnet,
	BSCMainnet,
	Matic,
	ArbitrumMainnet,
	OptimismMainnet,
	BaseMainnet,
	Avalanche,
	LineaMainnet,
	ScrollMainnet,
	PolygonZkevmMainnet,
}

var ErrNetworkNotFound = errors.New("network not found")

// Registry resolves networks by name, alternative name or chain id.
type Registry struct {
	networks     map[string]Network
	networksByID map[uint64]Network
}

func NewRegistry() *Registry {
	r := &Registry{map[string]Network{}, map[uint64]Network{}}
	for _, n := range supportedNetworks {
		if err := r.Add(n); err != nil {
			panic(err)
		}
	}
	return r
}

// Add registers n. Names are unique; a chain id registered twice is
// taken over by the newer network.
func (r *Registry) Add(n Network) error {
	names := append([]string{n.GetName()}, n.GetAlternativeNames()...)
	for _, name := range names {
		if existing, found := r.networks[strings.ToLower(name)]; found && existing.GetChainID() != n.GetChainID() {
			return fmt.Errorf("network with name or alternative name of '%s' already exists", name)
		}
	}
	for _, name := range names {
		r.networks[strings.ToLower(name)] = n
	}
	r.networksByID[n.GetChainID()] = n
	return nil
}

func (r *Registry) GetNetwork(name string) (Network, error) {
	res, found := r.networks[strings.ToLower(strings.TrimSpace(name))]
	if !found {
		return nil, fmt.Errorf("network name '%s': %w", name, ErrNetworkNotFound)
	}
	return res, nil
}

func (r *Registry) GetNetworkByID(id uint64) (Network, error) {
	res, found := r.networksByID[id]
	if !found {
		return nil, fmt.Errorf("network id %d: %w", id, ErrNetworkNotFound)
	}
	return res, nil
}

func (r *Registry) GetSupportedNetworkNames() []string {
	res := make([]string, 0, len(r.networks))
	for name := range r.networks {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// LoadCustomNetworks registers every *.json network config under dir.
// Broken files are skipped with a warning.
func (r *Registry) LoadCustomNetworks(dir string, logger *zap.Logger) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to glob json files in %s: %w", dir, err)
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", file, err)
		}
		n, err := NewNetworkFromJSON(content)
		if err != nil {
			logger.Warn("ignoring custom network", zap.String("file", file), zap.Error(err))
			continue
		}
		if err := r.Add(n); err != nil {
			logger.Warn("ignoring custom network", zap.String("file", file), zap.Error(err))
		}
	}
	return nil
}

// NewNetworkFromJSON reads a GenericEtherscanNetworkConfig. Configs whose
// explorer url ends in /api/v2 are Blockscout instances.
func NewNetworkFromJSON(content []byte) (Network, error) {
	config := GenericEtherscanNetworkConfig{}
	if err := json.Unmarshal(content, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal network config: %w", err)
	}
	if config.Name == "" || config.ChainID == 0 {
		return nil, fmt.Errorf("network config needs a name and a chain id")
	}
	if strings.HasSuffix(strings.TrimSuffix(config.BlockExplorerAPIURL, "/"), "/api/v2") {
		return NewGenericOptimismNetwork(config), nil
	}
	return NewGenericEtherscanNetwork(config), nil
}
