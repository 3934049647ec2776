// Package paramcodec converts human entered parameter text into strictly
// validated EVM values and back. Only a closed set of kinds is supported:
// uint256, address, bool, string and fixed or variable length arrays of
// each of them.
package paramcodec

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Unsupported Kind = iota
	Uint256
	Address
	Bool
	String
	Uint256Array
	AddressArray
	BoolArray
	StringArray
)

// AnyLength tells Parse that an array kind has no required length.
const AnyLength = -1

var baseKinds = map[string]Kind{
	"uint":    Uint256,
	"uint256": Uint256,
	"address": Address,
	"bool":    Bool,
	"string":  String,
}

var arrayOf = map[Kind]Kind{
	Uint256: Uint256Array,
	Address: AddressArray,
	Bool:    BoolArray,
	String:  StringArray,
}

func (k Kind) IsArray() bool {
	switch k {
	case Uint256Array, AddressArray, BoolArray, StringArray:
		return true
	}
	return false
}

// Elem returns the element kind of an array kind, or k itself for scalars.
func (k Kind) Elem() Kind {
	switch k {
	case Uint256Array:
		return Uint256
	case AddressArray:
		return Address
	case BoolArray:
		return Bool
	case StringArray:
		return String
	}
	return k
}

func (k Kind) String() string {
	switch k {
	case Uint256:
		return "uint256"
	case Address:
		return "address"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Uint256Array, AddressArray, BoolArray, StringArray:
		return k.Elem().String() + "[]"
	}
	return "unsupported"
}

// splitArraySuffix splits "uint256[3]" into ("uint256", "3", true) and
// "uint256[]" into ("uint256", "", true).
func splitArraySuffix(typeTag string) (base string, length string, isArray bool) {
	if !strings.HasSuffix(typeTag, "]") {
		return typeTag, "", false
	}
	open := strings.LastIndex(typeTag, "[")
	if open < 0 {
		return typeTag, "", false
	}
	return typeTag[:open], typeTag[open+1 : len(typeTag)-1], true
}

func isDecimalLiteral(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Classify maps an ABI type tag to a supported Kind. Multi dimensional
// arrays, tuples, bytes and non 256 bit integers are Unsupported.
func Classify(typeTag string) Kind {
	typeTag = strings.TrimSpace(typeTag)
	base, length, isArray := splitArraySuffix(typeTag)
	kind, found := baseKinds[base]
	if !found {
		return Unsupported
	}
	if !isArray {
		return kind
	}
	if length != "" && !isDecimalLiteral(length) {
		return Unsupported
	}
	return arrayOf[kind]
}

// CanonicalType spells out a supported type tag the way the ABI does:
// "uint" becomes "uint256" and the array suffix is kept, so "uint[3]" is
// "uint256[3]". The second return value is false for unsupported tags.
func CanonicalType(typeTag string) (string, bool) {
	typeTag = strings.TrimSpace(typeTag)
	kind := Classify(typeTag)
	if kind == Unsupported {
		return "", false
	}
	_, length, isArray := splitArraySuffix(typeTag)
	if !isArray {
		return kind.String(), true
	}
	return kind.Elem().String() + "[" + length + "]", true
}

// ExpectedArrayLength returns N for a "T[N]" type tag. The second return
// value is false for variable length arrays and for non array tags.
func ExpectedArrayLength(typeTag string) (int, bool) {
	_, length, isArray := splitArraySuffix(strings.TrimSpace(typeTag))
	if !isArray || !isDecimalLiteral(length) {
		return 0, false
	}
	n, err := strconv.Atoi(length)
	if err != nil {
		return 0, false
	}
	return n, true
}
