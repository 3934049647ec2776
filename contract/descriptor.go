package contract

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type Standard string

const (
	StandardERC20   Standard = "erc20"
	StandardERC721  Standard = "erc721"
	StandardERC1155 Standard = "erc1155"
	// StandardNone is accepted as input but never stored.
	StandardNone Standard = "none"
)

// ParseStandard is case insensitive.
func ParseStandard(tag string) (Standard, error) {
	switch s := Standard(strings.ToLower(strings.TrimSpace(tag))); s {
	case StandardERC20, StandardERC721, StandardERC1155, StandardNone:
		return s, nil
	}
	return "", fmt.Errorf("unknown standard interface tag %q", tag)
}

func (s Standard) IsToken() bool {
	return s == StandardERC20 || s == StandardERC721 || s == StandardERC1155
}

type CreationInfo struct {
	Creator     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	Timestamp   time.Time
}

type TokenMetadata struct {
	Standard    Standard
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
}

// Descriptor is everything known about one contract. It is read only while
// decoding; the verified flag is the one mutable field and callers must
// serialize MarkVerified against concurrent use.
type Descriptor struct {
	Address common.Address
	Name    string
	// Interface is nil when the interface is unknown, which is different
	// from an interface without entries.
	Interface           *Interface
	SupportedInterfaces []Standard
	Creation            *CreationInfo
	Token               *TokenMetadata

	verified bool

	resolver    SignatureResolver
	signer      SignerProvider
	logger      *zap.Logger
	metrics     *Metrics
	concurrency int
}

func (d *Descriptor) HasInterface() bool {
	return d.Interface != nil
}

// Verified is true only when the interface came from an explicit ABI or
// compiler metadata.
func (d *Descriptor) Verified() bool {
	return d.verified
}

func (d *Descriptor) MarkVerified() {
	d.verified = true
}

func (d *Descriptor) Supports(s Standard) bool {
	for _, supported := range d.SupportedInterfaces {
		if supported == s {
			return true
		}
	}
	return false
}

func (d *Descriptor) String() string {
	if d.Name == "" {
		return d.Address.Hex()
	}
	return fmt.Sprintf("%s (%s)", d.Address.Hex(), d.Name)
}
