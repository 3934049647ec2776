package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	abicommon "github.com/tranvictor/abiscope/common"
	"github.com/tranvictor/abiscope/util"
)

var txCmd = &cobra.Command{
	Use:     "tx <hash>...",
	Aliases: []string{"info"},
	Short:   "Analyze and show all information about txs",
	Long: `Decode the call and every event log of one or more transactions. Tx
hashes are scanned from the arguments so they can be pasted with
surrounding text, e.g. an explorer url.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		txs := util.ScanForTxs(strings.Join(args, " "))
		if len(txs) == 0 {
			return fmt.Errorf("couldn't find any tx hash in the params")
		}

		results := []*util.TxDisplay{}
		for _, t := range txs {
			hash := common.HexToHash(t)
			s.Logger.Debug("analyzing tx", zap.Stringer("hash", hash))

			var (
				tx      *types.Transaction
				pending bool
				receipt *types.Receipt
			)
			stop := s.UI.Spinner(fmt.Sprintf("reading %s", hash.Hex()))
			err, _ := abicommon.RunParallel(cmd.Context(),
				func(ctx context.Context) (err error) {
					tx, pending, err = s.Reader.TransactionByHash(ctx, hash)
					return err
				},
				// a pending tx has no receipt yet
				func(ctx context.Context) error {
					var err error
					if receipt, err = s.Reader.TransactionReceipt(ctx, hash); err != nil {
						s.Logger.Debug("no receipt", zap.Stringer("hash", hash), zap.Error(err))
					}
					return nil
				},
			)
			if err != nil {
				stop()
				s.UI.Error("Couldn't read %s: %s", hash.Hex(), err)
				continue
			}
			if pending {
				receipt = nil
			}
			result := s.Analyzer.Analyze(cmd.Context(), tx, receipt)
			stop()

			results = append(results, util.DisplayTxResult(s.UI, result, s.Network))
		}
		printJSON(results)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(txCmd)
}
