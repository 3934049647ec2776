package common

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ReadableNumber groups the digits of long integers, e.g.
// 1234567 (1￺234￺567). Every third group is marked with ‸.
func ReadableNumber(value string) string {
	if len(value) <= 4 {
		return value
	}

	digits := []string{}
	for i := range value {
		digits = append([]string{string(value[len(value)-1-i])}, digits...)
		if (i+1)%3 == 0 && i < len(value)-1 {
			if (i+1)%9 == 0 {
				digits = append([]string{"‸"}, digits...)
			} else {
				digits = append([]string{"￺"}, digits...)
			}
		}
	}
	return fmt.Sprintf("%s (%s)", value, strings.Join(digits, ""))
}

// TokenAmount shows a raw token amount with its human readable value.
func TokenAmount(raw *big.Int, decimals uint8, symbol string) string {
	human := BigToFloatString(raw, uint64(decimals))
	if symbol != "" {
		return fmt.Sprintf("%s (%s %s)", raw.String(), human, symbol)
	}
	return fmt.Sprintf("%s (%s)", raw.String(), human)
}

// PlainAddress formats an address with its name when one is known.
func PlainAddress(addr common.Address, name string) string {
	if name == "" {
		return addr.Hex()
	}
	return fmt.Sprintf("%s (%s)", addr.Hex(), name)
}
