package reader

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EthereumNode is one JSON-RPC endpoint. EthReader asks all of its nodes
// and takes the first answer.
type EthereumNode interface {
	NodeName() string
	NodeURL() string
	CodeAt(ctx context.Context, address common.Address, atBlock *big.Int) ([]byte, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, atBlock *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, address common.Address, slot common.Hash, atBlock *big.Int) ([]byte, error)
}
