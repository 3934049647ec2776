package contract

import (
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DecodedArgument is one decoded parameter. Value holds the go-ethereum
// value; Text is its rendering with arrays flattened one element per
// string. Tuples and arrays of tuples are described by Components instead.
type DecodedArgument struct {
	Name       string
	Type       string
	Indexed    bool
	Value      any
	Text       []string
	Components []DecodedArgument
}

func newDecodedArgument(name string, t abi.Type, indexed bool, value any) DecodedArgument {
	arg := DecodedArgument{
		Name:    name,
		Type:    t.String(),
		Indexed: indexed,
		Value:   value,
	}
	switch {
	case t.T == abi.TupleTy:
		arg.Components = tupleArguments(t, value)
	case (t.T == abi.SliceTy || t.T == abi.ArrayTy) && t.Elem.T == abi.TupleTy:
		realVal := reflect.ValueOf(value)
		for i := 0; i < realVal.Len(); i++ {
			arg.Components = append(arg.Components, newDecodedArgument(
				fmt.Sprintf("%s[%d]", name, i), *t.Elem, false, realVal.Index(i).Interface(),
			))
		}
	default:
		arg.Text = renderValues(t, value)
	}
	return arg
}

// hashedArgument describes an indexed parameter of a dynamic type. The log
// only carries the keccak hash of such values.
func hashedArgument(name string, t abi.Type, topic common.Hash) DecodedArgument {
	return DecodedArgument{
		Name:    name,
		Type:    t.String(),
		Indexed: true,
		Value:   topic,
		Text:    []string{topic.Hex()},
	}
}

func tupleArguments(t abi.Type, value any) []DecodedArgument {
	result := []DecodedArgument{}
	realVal := reflect.Indirect(reflect.ValueOf(value))
	for i, field := range t.TupleElems {
		result = append(result, newDecodedArgument(
			t.TupleRawNames[i], *field, false, realVal.Field(i).Interface(),
		))
	}
	return result
}

func renderValues(t abi.Type, value any) []string {
	switch t.T {
	case abi.SliceTy, abi.ArrayTy:
		realVal := reflect.ValueOf(value)
		result := []string{}
		for i := 0; i < realVal.Len(); i++ {
			result = append(result, renderValues(*t.Elem, realVal.Index(i).Interface())...)
		}
		return result
	default:
		return []string{renderValue(t, value)}
	}
}

func renderValue(t abi.Type, value any) string {
	switch t.T {
	case abi.StringTy:
		return value.(string)
	case abi.IntTy, abi.UintTy:
		return fmt.Sprintf("%d", value)
	case abi.BoolTy:
		return fmt.Sprintf("%t", value.(bool))
	case abi.AddressTy:
		return value.(common.Address).Hex()
	case abi.HashTy:
		return value.(common.Hash).Hex()
	case abi.BytesTy:
		return hexutil.Encode(value.([]byte))
	case abi.FixedBytesTy, abi.FunctionTy:
		realVal := reflect.ValueOf(value)
		word := make([]byte, realVal.Len())
		reflect.Copy(reflect.ValueOf(word), realVal)
		return hexutil.Encode(word)
	}
	return fmt.Sprintf("%v", value)
}

// ReturnArguments describes the values a call to m returned. Unnamed
// outputs are named by position.
func ReturnArguments(m *abi.Method, values []any) []DecodedArgument {
	result := make([]DecodedArgument, 0, len(values))
	for i, output := range m.Outputs {
		if i >= len(values) {
			break
		}
		name := output.Name
		if name == "" {
			name = fmt.Sprintf("[%d]", i)
		}
		result = append(result, newDecodedArgument(name, output.Type, false, values[i]))
	}
	return result
}
