package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/sigdb"
	"github.com/tranvictor/abiscope/util"
)

var flagSigIndexed int

var sigCmd = &cobra.Command{
	Use:   "sig <selector|topic|name>",
	Short: "Look up text signatures",
	Long: `Resolve a 4 byte function selector or a 32 byte event topic to its
text signature, or search the local signature index by name.

Every signature resolved remotely is added to the local index so later
lookups and searches work offline.`,
	Example: `  abiscope sig 0xa9059cbb
  abiscope sig 0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef --indexed 2
  abiscope sig transfer`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		input := strings.TrimSpace(args[0])

		var (
			entries []contract.Entry
			err     error
		)
		switch {
		case util.IsSelector(input):
			var selector [4]byte
			copy(selector[:], hexutil.MustDecode(withHexPrefix(input)))
			entries, err = resolved(s.Resolver.ResolveFunction(cmd.Context(), selector))
		case util.IsTopic(input):
			entries, err = resolved(s.Resolver.ResolveEvent(cmd.Context(), common.HexToHash(input), flagSigIndexed))
		default:
			var hits []sigdb.Signature
			if hits, err = s.Index.Search(input, 20); err != nil {
				return err
			}
			if printJSON(hits) {
				return nil
			}
			if len(hits) == 0 {
				return fmt.Errorf("no signature in the local index matches %q", input)
			}
			rows := [][]string{}
			for _, h := range hits {
				rows = append(rows, []string{string(h.Kind), h.Text, h.Hash})
			}
			s.UI.Table([]string{"Kind", "Signature", "Selector"}, rows)
			return nil
		}
		if err != nil {
			return err
		}
		if printJSON(entries) {
			return nil
		}
		util.DisplayEntries(s.UI, entries)
		return nil
	},
}

func resolved(iface *contract.Interface, err error) ([]contract.Entry, error) {
	if err != nil {
		return nil, err
	}
	return iface.Entries(), nil
}

func init() {
	sigCmd.Flags().IntVarP(&flagSigIndexed, "indexed", "i", 0, "number of indexed event parameters, the log's topic count minus one")
	rootCmd.AddCommand(sigCmd)
}
