package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/abiscope/db"
)

var whoisCmd = &cobra.Command{
	Use:   "whois <address|name>",
	Short: "Look up the address book",
	Long: `Print the name an address has in the address book, or the addresses
whose name fuzzy matches the query. The address book is addresses.json in
the cache directory, a JSON object of address to name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		if common.IsHexAddress(args[0]) {
			name, found := s.Addresses.GetName(args[0])
			if !found {
				return fmt.Errorf("%s is not in the address book", args[0])
			}
			entry := db.AddressDesc{Address: common.HexToAddress(args[0]).Hex(), Desc: name}
			s.UI.KeyValue([][2]string{{entry.Address, entry.Desc}})
			printJSON(entry)
			return nil
		}

		matches := s.Addresses.Search(args[0], 10)
		if len(matches) == 0 {
			return fmt.Errorf("no address matches %q", args[0])
		}
		rows := make([][]string, 0, len(matches))
		for _, m := range matches {
			rows = append(rows, []string{m.Address, m.Desc})
		}
		s.UI.Table([]string{"Address", "Name"}, rows)
		printJSON(matches)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoisCmd)
}
