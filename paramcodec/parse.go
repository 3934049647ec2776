package paramcodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// maxIntegerDigits bounds integer input before it reaches big.Int.
const maxIntegerDigits = 256

var integerPattern = regexp.MustCompile(`^[0-9]{1,256}$`)

// ErrInvalidParameterInput is matched by every error Parse returns.
var ErrInvalidParameterInput = errors.New("invalid parameter input")

type Reason int

const (
	ReasonMalformed Reason = iota
	ReasonEmpty
	ReasonLength
	ReasonUnsupported
)

func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty input"
	case ReasonLength:
		return "wrong array length"
	case ReasonUnsupported:
		return "unsupported kind"
	}
	return "malformed input"
}

// InvalidInputError is the typed failure of Parse. Type is the canonical
// type tag when the input was parsed through ParseType, which keeps the
// length of fixed size arrays.
type InvalidInputError struct {
	Kind   Kind
	Type   string
	Input  string
	Reason Reason
	Detail string
}

func (e *InvalidInputError) Error() string {
	typ := e.Type
	if typ == "" {
		typ = e.Kind.String()
	}
	if e.Detail != "" {
		return fmt.Sprintf("invalid %s input %q: %s: %s", typ, e.Input, e.Reason, e.Detail)
	}
	return fmt.Sprintf("invalid %s input %q: %s", typ, e.Input, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidParameterInput
}

func invalid(kind Kind, input string, reason Reason, detail string) error {
	return &InvalidInputError{Kind: kind, Input: input, Reason: reason, Detail: detail}
}

// ParseType classifies typeTag and parses text against it, enforcing the
// length of fixed size arrays.
func ParseType(typeTag string, text string) (any, error) {
	kind := Classify(typeTag)
	expected := AnyLength
	if n, ok := ExpectedArrayLength(typeTag); ok {
		expected = n
	}
	value, err := Parse(kind, text, expected)
	var invalidInput *InvalidInputError
	if errors.As(err, &invalidInput) {
		invalidInput.Type, _ = CanonicalType(typeTag)
	}
	return value, err
}

// Parse converts text into a value of the given kind. The returned values
// are the Go types go-ethereum packs for the corresponding ABI types:
// *big.Int, common.Address, bool, string and slices of them.
//
// expectedLength only applies to array kinds; pass AnyLength when the array
// has no fixed size. The empty literal "[]" is only accepted with AnyLength.
func Parse(kind Kind, text string, expectedLength int) (any, error) {
	switch kind {
	case Uint256:
		return parseInteger(text)
	case Address:
		return parseAddress(text)
	case Bool:
		return parseBool(text)
	case String:
		return text, nil
	case Uint256Array, AddressArray, BoolArray:
		return parseArray(kind, text, expectedLength)
	case StringArray:
		return parseStringArray(text, expectedLength)
	}
	return nil, invalid(kind, text, ReasonUnsupported, "")
}

func parseInteger(text string) (*big.Int, error) {
	if text == "" {
		return nil, invalid(Uint256, text, ReasonEmpty, "")
	}
	if len(text) > maxIntegerDigits || !integerPattern.MatchString(text) {
		return nil, invalid(Uint256, text, ReasonMalformed, "expected up to 256 decimal digits")
	}
	result, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, invalid(Uint256, text, ReasonMalformed, "")
	}
	return result, nil
}

func parseAddress(text string) (common.Address, error) {
	if text == "" {
		return common.Address{}, invalid(Address, text, ReasonEmpty, "")
	}
	if !common.IsHexAddress(text) {
		return common.Address{}, invalid(Address, text, ReasonMalformed, "expected 20 hex encoded bytes")
	}
	return common.HexToAddress(text), nil
}

func parseBool(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, invalid(Bool, text, ReasonEmpty, "")
	}
	return false, invalid(Bool, text, ReasonMalformed, `bool value must be "true" or "false"`)
}

// arrayBody strips the surrounding brackets. isEmpty is true for "[]" and
// for brackets holding only spaces.
func arrayBody(kind Kind, text string) (body string, isEmpty bool, err error) {
	if text == "" {
		return "", false, invalid(kind, text, ReasonEmpty, "")
	}
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return "", false, invalid(kind, text, ReasonMalformed, "array must be wrapped by [ ]")
	}
	body = text[1 : len(text)-1]
	return body, strings.TrimSpace(body) == "", nil
}

func checkLength(kind Kind, text string, got int, expectedLength int) error {
	if expectedLength != AnyLength && got != expectedLength {
		return invalid(kind, text, ReasonLength, fmt.Sprintf("expected %d elements, got %d", expectedLength, got))
	}
	return nil
}

func emptyArray(kind Kind) any {
	switch kind {
	case Uint256Array:
		return []*big.Int{}
	case AddressArray:
		return []common.Address{}
	case BoolArray:
		return []bool{}
	}
	return []string{}
}

func parseArray(kind Kind, text string, expectedLength int) (any, error) {
	body, isEmpty, err := arrayBody(kind, text)
	if err != nil {
		return nil, err
	}
	if isEmpty {
		if expectedLength != AnyLength {
			return nil, invalid(kind, text, ReasonLength, "empty array literal with a required length")
		}
		return emptyArray(kind), nil
	}

	elems := strings.Split(body, ",")
	if err := checkLength(kind, text, len(elems), expectedLength); err != nil {
		return nil, err
	}

	var (
		ints  []*big.Int
		addrs []common.Address
		bools []bool
	)
	for i, raw := range elems {
		elem := strings.Trim(raw, " ")
		value, err := Parse(kind.Elem(), elem, AnyLength)
		if err != nil {
			return nil, invalid(kind, text, ReasonMalformed, fmt.Sprintf("element %d: %s", i, err))
		}
		switch v := value.(type) {
		case *big.Int:
			ints = append(ints, v)
		case common.Address:
			addrs = append(addrs, v)
		case bool:
			bools = append(bools, v)
		}
	}

	switch kind {
	case Uint256Array:
		return ints, nil
	case AddressArray:
		return addrs, nil
	}
	return bools, nil
}

// parseStringArray decodes the whole literal as a JSON array because string
// elements may carry commas and brackets themselves.
func parseStringArray(text string, expectedLength int) ([]string, error) {
	_, isEmpty, err := arrayBody(StringArray, text)
	if err != nil {
		return nil, err
	}
	if isEmpty {
		if expectedLength != AnyLength {
			return nil, invalid(StringArray, text, ReasonLength, "empty array literal with a required length")
		}
		return []string{}, nil
	}

	var elems []any
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, invalid(StringArray, text, ReasonMalformed, err.Error())
	}
	result := make([]string, 0, len(elems))
	for i, e := range elems {
		s, ok := e.(string)
		if !ok {
			return nil, invalid(StringArray, text, ReasonMalformed, fmt.Sprintf("element %d is not a string", i))
		}
		result = append(result, s)
	}
	if err := checkLength(StringArray, text, len(result), expectedLength); err != nil {
		return nil, err
	}
	return result, nil
}
