package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	abicommon "github.com/tranvictor/abiscope/common"
	"github.com/tranvictor/abiscope/msig"
	"github.com/tranvictor/abiscope/util"
)

type msigInfo struct {
	Address       string                    `json:"address"`
	TxID          string                    `json:"txid"`
	Required      int64                     `json:"required"`
	Owners        []string                  `json:"owners"`
	Executed      bool                      `json:"executed"`
	Confirmations []string                  `json:"confirmations"`
	Call          *util.FunctionCallDisplay `json:"call"`
}

var msigCmd = &cobra.Command{
	Use:   "msig <address> <txid>",
	Short: "Show and decode a Gnosis multisig submission",
	Long: `Read submission txid from the Gnosis multisig wallet at address and
decode the call it carries against the destination's interface.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%q is not an address", args[0])
		}
		txid, ok := new(big.Int).SetString(args[1], 0)
		if !ok || txid.Sign() < 0 {
			return fmt.Errorf("%q is not a transaction id", args[1])
		}
		backend, err := s.Reader.Backend()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		wallet, err := msig.NewMultisigContract(ctx, common.HexToAddress(args[0]), backend, s.Factory)
		if err != nil {
			return err
		}

		stop := s.UI.Spinner("reading multisig")
		var (
			tx       *msig.Transaction
			owners   []common.Address
			required int64
		)
		err, _ = abicommon.RunParallel(ctx,
			func(ctx context.Context) (err error) {
				tx, err = wallet.TransactionInfo(ctx, txid)
				return err
			},
			func(ctx context.Context) (err error) {
				owners, err = wallet.Owners(ctx)
				return err
			},
			func(ctx context.Context) (err error) {
				required, err = wallet.VoteRequirement(ctx)
				return err
			},
		)
		stop()
		if err != nil {
			return err
		}

		info := msigInfo{
			Address:  wallet.Address.Hex(),
			TxID:     txid.String(),
			Required: required,
			Executed: tx.Executed,
		}
		for _, o := range owners {
			info.Owners = append(info.Owners, o.Hex())
		}
		for _, c := range tx.Confirmations {
			info.Confirmations = append(info.Confirmations, c.Hex())
		}

		s.UI.Section(fmt.Sprintf("Multisig %s #%s", info.Address, info.TxID))
		s.UI.KeyValue([][2]string{
			{"Owners", fmt.Sprintf("%d", len(owners))},
			{"Required", fmt.Sprintf("%d", required)},
			{"Executed", fmt.Sprintf("%t", tx.Executed)},
			{"Confirmations", fmt.Sprintf("%d/%d %s", len(tx.Confirmations), required, strings.Join(info.Confirmations, ", "))},
		})

		fc := s.Analyzer.AnalyzeFunctionCall(ctx, tx.Value, tx.Destination, tx.Data)
		info.Call = util.DisplayFunctionCall(s.UI, fc, s.Network)
		printJSON(info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(msigCmd)
}
