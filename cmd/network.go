package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tranvictor/abiscope/networks"
	"github.com/tranvictor/abiscope/util"
)

var (
	NetworkConfig string
	NetworkForce  bool
)

var addNetworkCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new network to the supported networks list locally",
	Long: `--config takes a network config json file path OR a json string in the following format:
	{
		"name": "network_name",
		"alternative_names": ["alternative_name_1", "alternative_name_2"],
		"chain_id": 1,
		"native_token_symbol": "ETH",
		"native_token_decimal": 18,
		"block_time": 12,
		"node_variable_name": "NETWORK_NAME_NODE",
		"default_nodes": {
			"node_name_1": "node_url_1"
		},
		"block_explorer_api_key_variable_name": "ETHERSCAN_API_KEY",
		"block_explorer_api_url": "https://api.etherscan.io/v2"
	}
An explorer url ending in /api/v2 is treated as a Blockscout instance.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		content, err := readNetworkConfig(NetworkConfig)
		if err != nil {
			return err
		}
		newNetwork, err := networks.NewNetworkFromJSON(content)
		if err != nil {
			return fmt.Errorf("the provided json is not a valid network config: %w", err)
		}

		for _, name := range append([]string{newNetwork.GetName()}, newNetwork.GetAlternativeNames()...) {
			if _, err := s.Networks.GetNetwork(name); err == nil && !NetworkForce {
				return fmt.Errorf("network with name %s already exists, use --force to replace it", name)
			}
		}

		dir := s.Config.NetworksDir()
		if dir == "" {
			return errors.New("no cache directory to save the network to")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		data, err := json.MarshalIndent(newNetwork, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(dir, newNetwork.GetName()+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		s.UI.Success("Network %s with chain ID %d saved to %s", newNetwork.GetName(), newNetwork.GetChainID(), path)
		return nil
	},
}

func readNetworkConfig(config string) ([]byte, error) {
	config = strings.TrimSpace(config)
	switch {
	case config == "":
		return nil, errors.New("--config is required")
	case strings.HasPrefix(config, "{"):
		return []byte(config), nil
	}
	content, err := os.ReadFile(config)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the provided json file: %w", err)
	}
	return content, nil
}

var listNetworkCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all of supported networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		seen := map[uint64]bool{}
		list := []networks.Network{}
		for _, name := range s.Networks.GetSupportedNetworkNames() {
			n, _ := s.Networks.GetNetwork(name)
			if seen[n.GetChainID()] {
				continue
			}
			seen[n.GetChainID()] = true
			list = append(list, n)
		}
		if printJSON(list) {
			return nil
		}
		rows := [][]string{}
		for _, n := range list {
			nodes := []string{}
			for key, node := range util.GetNodes(n, "") {
				nodes = append(nodes, key+": "+node)
			}
			rows = append(rows, []string{
				n.GetName(),
				fmt.Sprintf("%d", n.GetChainID()),
				n.GetBlockExplorerAPIURL(),
				strings.Join(nodes, ", "),
			})
		}
		s.UI.Table([]string{"Name", "Chain ID", "Explorer", "Nodes"}, rows)
		s.UI.Info("Custom networks are read from %s", s.Config.NetworksDir())
		return nil
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage the networks abiscope can read",
}

func init() {
	addNetworkCmd.Flags().StringVarP(&NetworkConfig, "config", "c", "", "Path to the network config json file, or the json itself")
	addNetworkCmd.Flags().BoolVarP(&NetworkForce, "force", "f", false, "Replace a network with the same name")

	networkCmd.AddCommand(listNetworkCmd)
	networkCmd.AddCommand(addNetworkCmd)
	rootCmd.AddCommand(networkCmd)
}
