package contract

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// SignatureResolver looks up single entry interfaces for selectors and
// topics a contract's own interface doesn't know about. Both methods return
// ErrSignatureNotFound when nothing matches.
//
// indexed is the number of indexed parameters the log carries, that is
// len(topics)-1, since text signatures don't say which parameters are
// indexed.
type SignatureResolver interface {
	ResolveFunction(ctx context.Context, selector [4]byte) (*Interface, error)
	ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*Interface, error)
}

// SignerProvider hands out transaction options for a live binding.
type SignerProvider interface {
	TransactOpts(ctx context.Context, contract common.Address) (*bind.TransactOpts, error)
}

// TokenMetadataSource is consulted once per Build for contracts that
// declare a token standard.
type TokenMetadataSource interface {
	TokenMetadata(ctx context.Context, address common.Address, standard Standard) (*TokenMetadata, error)
}
