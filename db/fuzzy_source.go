package db

import (
	"fmt"
	"strings"
)

type AddressDesc struct {
	Address string `json:"address"`
	Desc    string `json:"name"`
}

type FuzzySource []AddressDesc

func (self FuzzySource) Len() int {
	return len(self)
}

func (self FuzzySource) String(i int) string {
	return fmt.Sprintf("%s_%s", strings.ReplaceAll(self[i].Desc, " ", "_"), self[i].Address)
}
