package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/util"
)

var abiCmd = &cobra.Command{
	Use:   "abi <address> [query]",
	Short: "List the functions and events of a contract",
	Long: `Show the entries of a contract's interface with their selectors and
topics. With a query only the entries fuzzy matching it are listed, best
match first.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%q is not an address", args[0])
		}
		stop := s.UI.Spinner("resolving interface")
		d, err := s.Analysis.Descriptor(cmd.Context(), common.HexToAddress(args[0]))
		stop()
		if err != nil {
			return err
		}
		if !d.HasInterface() {
			return fmt.Errorf("%s: %w", d, contract.ErrInterfaceUnresolved)
		}
		query := ""
		if len(args) == 2 {
			query = strings.TrimSpace(args[1])
		}
		entries := d.Interface.Search(query)
		if printJSON(entries) {
			return nil
		}
		s.UI.Section(d.String())
		if len(entries) == 0 {
			return errors.New("no entry matches the query")
		}
		util.DisplayEntries(s.UI, entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(abiCmd)
}
