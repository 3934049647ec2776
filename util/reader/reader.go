package reader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrNoNodes = errors.New("no nodes configured")

type EthReader struct {
	nodes map[string]EthereumNode
}

// NewEthReaderGeneric takes node name to RPC url.
func NewEthReaderGeneric(nodes map[string]string) *EthReader {
	ns := map[string]EthereumNode{}
	for name, url := range nodes {
		ns[name] = NewOneNodeReader(name, url)
	}
	return NewEthReaderWithNodes(ns)
}

func NewEthReaderWithNodes(nodes map[string]EthereumNode) *EthReader {
	return &EthReader{nodes: nodes}
}

// Node returns one configured node, the first by name.
func (er *EthReader) Node() (EthereumNode, error) {
	if len(er.nodes) == 0 {
		return nil, ErrNoNodes
	}
	names := make([]string, 0, len(er.nodes))
	for name := range er.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return er.nodes[names[0]], nil
}

type backendNode interface {
	EthClient() (*ethclient.Client, error)
}

// Backend dials the first node, by name, that can serve contract
// bindings.
func (er *EthReader) Backend() (bind.ContractBackend, error) {
	names := make([]string, 0, len(er.nodes))
	for name := range er.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if node, ok := er.nodes[name].(backendNode); ok {
			client, err := node.EthClient()
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	return nil, ErrNoNodes
}

func wrapError(e error, name string) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, e)
}

type nodeResult[T any] struct {
	Value T
	Error error
}

// firstOf asks every node concurrently and returns the first successful
// answer. The remaining calls are cancelled.
func firstOf[T any](ctx context.Context, nodes map[string]EthereumNode, call func(context.Context, EthereumNode) (T, error)) (T, error) {
	var zero T
	if len(nodes) == 0 {
		return zero, ErrNoNodes
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resCh := make(chan nodeResult[T], len(nodes))
	for _, n := range nodes {
		go func() {
			v, err := call(ctx, n)
			resCh <- nodeResult[T]{Value: v, Error: wrapError(err, n.NodeName())}
		}()
	}
	errs := []error{}
	for i := 0; i < len(nodes); i++ {
		result := <-resCh
		if result.Error == nil {
			return result.Value, nil
		}
		errs = append(errs, result.Error)
	}
	return zero, fmt.Errorf("couldn't read from any nodes: %w", errors.Join(errs...))
}

func (er *EthReader) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	return firstOf(ctx, er.nodes, func(ctx context.Context, n EthereumNode) ([]byte, error) {
		return n.CodeAt(ctx, address, nil)
	})
}

type txByHash struct {
	tx        *types.Transaction
	isPending bool
}

func (er *EthReader) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	res, err := firstOf(ctx, er.nodes, func(ctx context.Context, n EthereumNode) (txByHash, error) {
		tx, isPending, err := n.TransactionByHash(ctx, hash)
		return txByHash{tx, isPending}, err
	})
	return res.tx, res.isPending, err
}

func (er *EthReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return firstOf(ctx, er.nodes, func(ctx context.Context, n EthereumNode) (*types.Receipt, error) {
		return n.TransactionReceipt(ctx, hash)
	})
}

func (er *EthReader) CallContract(ctx context.Context, msg ethereum.CallMsg, atBlock *big.Int) ([]byte, error) {
	return firstOf(ctx, er.nodes, func(ctx context.Context, n EthereumNode) ([]byte, error) {
		return n.CallContract(ctx, msg, atBlock)
	})
}

func (er *EthReader) StorageAt(ctx context.Context, address common.Address, slot common.Hash, atBlock *big.Int) ([]byte, error) {
	return firstOf(ctx, er.nodes, func(ctx context.Context, n EthereumNode) ([]byte, error) {
		return n.StorageAt(ctx, address, slot, atBlock)
	})
}

// bytes32(uint256(keccak256(label)) - 1)
func eip1967Slot(label string) common.Hash {
	slot := new(big.Int).Sub(crypto.Keccak256Hash([]byte(label)).Big(), big.NewInt(1))
	return common.BigToHash(slot)
}

var (
	implementationSlot = eip1967Slot("eip1967.proxy.implementation")
	beaconSlot         = eip1967Slot("eip1967.proxy.beacon")
	zeppelinosSlot     = crypto.Keccak256Hash([]byte("org.zeppelinos.proxy.implementation"))
	maticSlot          = eip1967Slot("matic.network.proxy.implementation")
)

var ErrNotProxy = errors.New("not a known proxy contract")

// ImplementationOf follows the EIP-1967 implementation and beacon slots
// and the older zeppelinos and matic slots.
func (er *EthReader) ImplementationOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	addr, err := er.addressAt(ctx, proxy, implementationSlot)
	if err != nil || addr != (common.Address{}) {
		return addr, err
	}

	beacon, err := er.addressAt(ctx, proxy, beaconSlot)
	if err != nil {
		return common.Address{}, err
	}
	if beacon != (common.Address{}) {
		return er.beaconImplementation(ctx, beacon)
	}

	for _, slot := range []common.Hash{zeppelinosSlot, maticSlot} {
		addr, err := er.addressAt(ctx, proxy, slot)
		if err != nil || addr != (common.Address{}) {
			return addr, err
		}
	}
	return common.Address{}, ErrNotProxy
}

func (er *EthReader) addressAt(ctx context.Context, contract common.Address, slot common.Hash) (common.Address, error) {
	data, err := er.StorageAt(ctx, contract, slot, nil)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}

func (er *EthReader) beaconImplementation(ctx context.Context, beacon common.Address) (common.Address, error) {
	out, err := er.CallContract(ctx, ethereum.CallMsg{
		To:   &beacon,
		Data: crypto.Keccak256([]byte("implementation()"))[:4],
	}, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) < 32 {
		return common.Address{}, fmt.Errorf("beacon %s returned %d bytes", beacon.Hex(), len(out))
	}
	return common.BytesToAddress(out[:32]), nil
}
