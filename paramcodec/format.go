package paramcodec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Format renders a value produced by Parse back into canonical text that
// Parse accepts again: integers lose leading zeros, addresses are checksum
// cased and booleans are lower case.
func Format(kind Kind, value any) (string, error) {
	switch kind {
	case Uint256:
		v, ok := value.(*big.Int)
		if !ok || v == nil {
			return "", fmt.Errorf("%s value must be *big.Int, got %T", kind, value)
		}
		return v.String(), nil
	case Address:
		v, ok := value.(common.Address)
		if !ok {
			return "", fmt.Errorf("%s value must be common.Address, got %T", kind, value)
		}
		return v.Hex(), nil
	case Bool:
		v, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("%s value must be bool, got %T", kind, value)
		}
		return fmt.Sprintf("%t", v), nil
	case String:
		v, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("%s value must be string, got %T", kind, value)
		}
		return v, nil
	case StringArray:
		v, ok := value.([]string)
		if !ok {
			return "", fmt.Errorf("%s value must be []string, got %T", kind, value)
		}
		if len(v) == 0 {
			return "[]", nil
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	case Uint256Array, AddressArray, BoolArray:
		return formatArray(kind, value)
	}
	return "", fmt.Errorf("unsupported kind %s", kind)
}

func formatArray(kind Kind, value any) (string, error) {
	var elems []any
	switch v := value.(type) {
	case []*big.Int:
		for _, e := range v {
			elems = append(elems, e)
		}
	case []common.Address:
		for _, e := range v {
			elems = append(elems, e)
		}
	case []bool:
		for _, e := range v {
			elems = append(elems, e)
		}
	default:
		return "", fmt.Errorf("unexpected %s value of type %T", kind, value)
	}

	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		s, err := Format(kind.Elem(), e)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}
