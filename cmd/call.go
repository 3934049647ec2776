package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	abicommon "github.com/tranvictor/abiscope/common"
	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/util"
)

var flagCallValue string

var callCmd = &cobra.Command{
	Use:   "call <address> <data>",
	Short: "Decode call data sent to a contract",
	Long: `Decode call data against the interface of the contract at address.
Inner calls carried by multisig submissions are decoded too.

When the contract's interface is unknown the selector is looked up in the
signature databases, in which case parameter names are not available.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%q is not an address", args[0])
		}
		data, err := hexutil.Decode(withHexPrefix(args[1]))
		if err != nil {
			return fmt.Errorf("couldn't read call data: %w", err)
		}
		value := big.NewInt(0)
		if flagCallValue != "" {
			if value, err = abicommon.FloatStringToBig(flagCallValue, s.Network.GetNativeTokenDecimal()); err != nil {
				return err
			}
		}

		stop := s.UI.Spinner("decoding call")
		fc := s.Analyzer.AnalyzeFunctionCall(cmd.Context(), value, common.HexToAddress(args[0]), data)
		stop()

		d := util.DisplayFunctionCall(s.UI, fc, s.Network)
		printJSON(d)
		// decoding failures are part of the output, anything else is not
		if fc.Error != nil && !contract.IsDecodeError(fc.Error) {
			return fc.Error
		}
		return nil
	},
}

func withHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s
	}
	return "0x" + s
}

func init() {
	callCmd.Flags().StringVarP(&flagCallValue, "value", "v", "", "native token amount sent with the call, e.g. 0.5")
	rootCmd.AddCommand(callCmd)
}
