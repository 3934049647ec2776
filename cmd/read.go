package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/paramcodec"
	"github.com/tranvictor/abiscope/util"
)

var readCmd = &cobra.Command{
	Use:   "read <address> <method> [param]...",
	Short: "Call a view function and decode what it returns",
	Long: `Call a constant function of a contract and show its return values.
Each param is parsed with the rules of the param command against the
matching input type of the method.`,
	Example: `  abiscope read 0x6B175474E89094C44Da98b954EedeAC495271d0F balanceOf 0x4838B106FCe9647Bdf1E7877BF73cE8B0BAD5f97`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := session(cmd)
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("%q is not an address", args[0])
		}
		d, err := s.Analysis.Descriptor(cmd.Context(), common.HexToAddress(args[0]))
		if err != nil {
			return err
		}
		if !d.HasInterface() {
			return fmt.Errorf("%s: %w", d, contract.ErrInterfaceUnresolved)
		}
		method, err := findMethod(d.Interface.ABI(), args[1])
		if err != nil {
			return err
		}
		params, err := parseInputs(method, args[2:])
		if err != nil {
			return err
		}

		backend, err := s.Reader.Backend()
		if err != nil {
			return err
		}
		callable, err := d.Callable(cmd.Context(), backend)
		if err != nil {
			return err
		}
		s.Logger.Debug("calling", zap.String("method", method.Sig), zap.Stringer("contract", d.Address))
		stop := s.UI.Spinner(fmt.Sprintf("calling %s", method.Sig))
		out, err := callable.Call(cmd.Context(), method.Name, params...)
		stop()
		if err != nil {
			return err
		}

		returned := contract.ReturnArguments(method, out)
		if printJSON(returned) {
			return nil
		}
		s.UI.Section(method.Sig)
		util.DisplayParams(s.UI, returned)
		return nil
	},
}

// findMethod accepts a method name or a full signature, which is needed
// to pick one overload.
func findMethod(a abi.ABI, query string) (*abi.Method, error) {
	query = strings.TrimSpace(query)
	candidates := []abi.Method{}
	for _, m := range a.Methods {
		if m.Sig == query {
			return &m, nil
		}
		if m.RawName == query {
			candidates = append(candidates, m)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no method %q", query)
	case 1:
		return &candidates[0], nil
	}
	sigs := []string{}
	for _, m := range candidates {
		sigs = append(sigs, m.Sig)
	}
	return nil, fmt.Errorf("%q is overloaded, use one of: %s", query, strings.Join(sigs, ", "))
}

func parseInputs(method *abi.Method, texts []string) ([]any, error) {
	if len(texts) != len(method.Inputs) {
		return nil, fmt.Errorf("%s takes %d params, got %d", method.Sig, len(method.Inputs), len(texts))
	}
	params := make([]any, 0, len(texts))
	for i, input := range method.Inputs {
		value, err := paramcodec.ParseType(input.Type.String(), texts[i])
		if err != nil {
			return nil, fmt.Errorf("param %d (%s): %w", i, input.Name, err)
		}
		params = append(params, toPackable(input.Type, value))
	}
	return params, nil
}

func init() {
	rootCmd.AddCommand(readCmd)
}
