package contract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// CanonicalSignature renders name(type1,type2,...) with tuple components
// flattened into their parenthesized type list. Array suffixes are kept,
// so a tuple[] parameter becomes (uint256,address)[].
func CanonicalSignature(name string, params []abi.ArgumentMarshaling) string {
	return name + "(" + strings.Join(canonicalTypes(params), ",") + ")"
}

func canonicalTypes(params []abi.ArgumentMarshaling) []string {
	types := make([]string, 0, len(params))
	for _, p := range params {
		types = append(types, canonicalType(p))
	}
	return types
}

func canonicalType(p abi.ArgumentMarshaling) string {
	if strings.HasPrefix(p.Type, "tuple") {
		suffix := strings.TrimPrefix(p.Type, "tuple")
		return "(" + strings.Join(canonicalTypes(p.Components), ",") + ")" + suffix
	}
	return p.Type
}

// splitTypeList splits a comma separated type list at the top level only,
// leaving commas nested in parentheses untouched.
func splitTypeList(input string) ([]string, error) {
	var (
		result       []string
		currentToken strings.Builder
		depth        int
	)
	for _, char := range input {
		switch char {
		case '(':
			depth++
			currentToken.WriteRune(char)
		case ')':
			if depth == 0 {
				return nil, fmt.Errorf("invalid type list %q: unbalanced )", input)
			}
			depth--
			currentToken.WriteRune(char)
		case ',':
			if depth > 0 {
				currentToken.WriteRune(char)
			} else {
				result = append(result, currentToken.String())
				currentToken.Reset()
			}
		default:
			currentToken.WriteRune(char)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("invalid type list %q: unbalanced (", input)
	}
	if currentToken.Len() > 0 || len(result) > 0 {
		result = append(result, currentToken.String())
	}
	return result, nil
}

// parseParams turns "address,(uint256,bool)[]" into marshaling arguments.
// Tuple components are named field0..fieldN since abi.NewType needs names
// to build the Go struct it unpacks into.
func parseParams(list string) ([]abi.ArgumentMarshaling, error) {
	types, err := splitTypeList(list)
	if err != nil {
		return nil, err
	}
	params := make([]abi.ArgumentMarshaling, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("empty type in %q", list)
		}
		if !strings.HasPrefix(t, "(") {
			params = append(params, abi.ArgumentMarshaling{Type: t})
			continue
		}
		closing := strings.LastIndex(t, ")")
		components, err := parseParams(t[1:closing])
		if err != nil {
			return nil, err
		}
		for i := range components {
			components[i].Name = fmt.Sprintf("field%d", i)
		}
		params = append(params, abi.ArgumentMarshaling{
			Type:       "tuple" + t[closing+1:],
			Components: components,
		})
	}
	return params, nil
}

func parseTextSignature(text string) (name string, params []abi.ArgumentMarshaling, err error) {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "(")
	if open < 0 || !strings.HasSuffix(text, ")") {
		return "", nil, fmt.Errorf("invalid signature %q", text)
	}
	name = text[:open]
	if !identifierPattern.MatchString(name) {
		return "", nil, fmt.Errorf("invalid name in signature %q", text)
	}
	params, err = parseParams(text[open+1 : len(text)-1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid signature %q: %w", text, err)
	}
	return name, params, nil
}

// ParseFunctionSignature builds a single function interface from a text
// signature such as "transfer(address,uint256)".
func ParseFunctionSignature(text string) (*Interface, error) {
	name, params, err := parseTextSignature(text)
	if err != nil {
		return nil, err
	}
	return NewInterface([]Entry{{
		Kind:            KindFunction,
		Name:            name,
		Inputs:          params,
		StateMutability: "nonpayable",
	}})
}

// ParseEventSignature builds a single event interface from a text
// signature. Text signatures carry no indexed flags so the first indexed
// parameters are marked as indexed.
func ParseEventSignature(text string, indexed int) (*Interface, error) {
	name, params, err := parseTextSignature(text)
	if err != nil {
		return nil, err
	}
	if indexed < 0 || indexed > len(params) {
		return nil, fmt.Errorf("event %s has %d parameters, can't index %d", name, len(params), indexed)
	}
	for i := 0; i < indexed; i++ {
		params[i].Indexed = true
	}
	return NewInterface([]Entry{{
		Kind:   KindEvent,
		Name:   name,
		Inputs: params,
	}})
}
