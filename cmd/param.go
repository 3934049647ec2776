package cmd

import (
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/tranvictor/abiscope/paramcodec"
)

type paramResult struct {
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	Canonical string `json:"canonical"`
	Encoded   string `json:"encoded"`
}

var paramCmd = &cobra.Command{
	Use:   "param <type> <text>",
	Short: "Validate a parameter value and show its abi encoding",
	Long: `Parse text as a value of an abi type and print it back in canonical
form together with its abi encoding.

Supported types are uint256, address, bool, string and fixed or variable
length arrays of them. Arrays are written as [a, b, c]; string array
elements are double quoted.`,
	Example: `  abiscope param uint256 1000000000000000000
  abiscope param 'address[2]' '[0x6B175474E89094C44Da98b954EedeAC495271d0F, 0x4838B106FCe9647Bdf1E7877BF73cE8B0BAD5f97]'
  abiscope param 'string[]' '["a", "b,c"]'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		result, err := encodeParam(args[0], args[1])
		if err != nil {
			return err
		}
		if printJSON(result) {
			return nil
		}
		s.UI.KeyValue([][2]string{
			{"Type", result.Type},
			{"Kind", result.Kind},
			{"Value", result.Canonical},
			{"Encoded", result.Encoded},
		})
		return nil
	},
}

func encodeParam(typeTag, text string) (*paramResult, error) {
	kind := paramcodec.Classify(typeTag)
	value, err := paramcodec.ParseType(typeTag, text)
	if err != nil {
		return nil, err
	}
	canonical, err := paramcodec.Format(kind, value)
	if err != nil {
		return nil, err
	}
	canonicalType, _ := paramcodec.CanonicalType(typeTag)
	t, err := abi.NewType(canonicalType, "", nil)
	if err != nil {
		return nil, err
	}
	packed, err := abi.Arguments{{Type: t}}.Pack(toPackable(t, value))
	if err != nil {
		return nil, err
	}
	return &paramResult{
		Type:      t.String(),
		Kind:      kind.String(),
		Canonical: canonical,
		Encoded:   hexutil.Encode(packed),
	}, nil
}

func init() {
	rootCmd.AddCommand(paramCmd)
}

// toPackable turns the slice parsed for a fixed size array into the Go
// array go-ethereum packs for it.
func toPackable(t abi.Type, value any) any {
	if t.T != abi.ArrayTy {
		return value
	}
	src := reflect.ValueOf(value)
	dst := reflect.New(t.GetType()).Elem()
	for i := 0; i < src.Len() && i < dst.Len(); i++ {
		dst.Index(i).Set(src.Index(i))
	}
	return dst.Interface()
}
