package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	abicommon "github.com/tranvictor/abiscope/common"
	"github.com/tranvictor/abiscope/util/reader"
)

type contractInfo struct {
	Address        string   `json:"address"`
	Name           string   `json:"name,omitempty"`
	Verified       bool     `json:"verified"`
	Interfaces     []string `json:"supported_interfaces,omitempty"`
	Implementation string   `json:"implementation,omitempty"`
	Symbol         string   `json:"symbol,omitempty"`
	Decimals       *uint8   `json:"decimals,omitempty"`
	TotalSupply    string   `json:"total_supply,omitempty"`
}

var contractCmd = &cobra.Command{
	Use:   "contract <address>",
	Short: "Show what is known about a contract",
	Long: `Show a contract's name, whether its interface is verified, the token
standards it declares with their metadata and, for EIP-1967 proxies, the
implementation it delegates to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%q is not an address", args[0])
		}
		address := common.HexToAddress(args[0])

		stop := s.UI.Spinner("reading contract")
		d, err := s.Analysis.Descriptor(cmd.Context(), address)
		if err != nil {
			stop()
			return err
		}
		info := contractInfo{
			Address:  address.Hex(),
			Name:     d.Name,
			Verified: d.Verified(),
		}
		for _, standard := range d.SupportedInterfaces {
			info.Interfaces = append(info.Interfaces, string(standard))
		}
		impl, err := s.Reader.ImplementationOf(cmd.Context(), address)
		switch {
		case err == nil:
			info.Implementation = impl.Hex()
		case !errors.Is(err, reader.ErrNotProxy):
			s.UI.Warn("Couldn't read proxy slots: %s", err)
		}
		stop()

		rows := [][2]string{
			{"Address", info.Address},
			{"Name", info.Name},
			{"Verified", fmt.Sprintf("%t", info.Verified)},
		}
		if info.Implementation != "" {
			rows = append(rows, [2]string{"Implementation", info.Implementation})
		}
		if d.Token != nil {
			info.Symbol = d.Token.Symbol
			decimals := d.Token.Decimals
			info.Decimals = &decimals
			rows = append(rows,
				[2]string{"Standard", string(d.Token.Standard)},
				[2]string{"Symbol", d.Token.Symbol},
				[2]string{"Decimals", fmt.Sprintf("%d", d.Token.Decimals)},
			)
			if d.Token.TotalSupply != nil {
				info.TotalSupply = d.Token.TotalSupply.String()
				rows = append(rows, [2]string{"Total supply", abicommon.TokenAmount(d.Token.TotalSupply, d.Token.Decimals, d.Token.Symbol)})
			}
		}
		if printJSON(info) {
			return nil
		}
		s.UI.KeyValue(rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contractCmd)
}
