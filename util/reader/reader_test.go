package reader

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tranvictor/abiscope/contract"
)

type fakeNode struct {
	name    string
	err     error
	calls   map[[4]byte][]byte
	storage map[common.Hash]common.Hash
}

func (n *fakeNode) NodeName() string { return n.name }
func (n *fakeNode) NodeURL() string  { return "fake://" + n.name }

func (n *fakeNode) CodeAt(ctx context.Context, address common.Address, atBlock *big.Int) ([]byte, error) {
	return []byte{0x60}, n.err
}

func (n *fakeNode) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if n.err != nil {
		return nil, false, n.err
	}
	return types.NewTx(&types.LegacyTx{Nonce: 7}), false, nil
}

func (n *fakeNode) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if n.err != nil {
		return nil, n.err
	}
	return &types.Receipt{TxHash: hash, Status: 1}, nil
}

func (n *fakeNode) CallContract(ctx context.Context, msg ethereum.CallMsg, atBlock *big.Int) ([]byte, error) {
	if n.err != nil {
		return nil, n.err
	}
	var sel [4]byte
	copy(sel[:], msg.Data)
	out, found := n.calls[sel]
	if !found {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (n *fakeNode) StorageAt(ctx context.Context, address common.Address, slot common.Hash, atBlock *big.Int) ([]byte, error) {
	if n.err != nil {
		return nil, n.err
	}
	return n.storage[slot].Bytes(), nil
}

func packOutput(t *testing.T, method string, values ...any) []byte {
	t.Helper()
	out, err := erc20().Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %s", method, err)
	}
	return out
}

var token = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

func TestFirstSuccessfulNodeWins(t *testing.T) {
	er := NewEthReaderWithNodes(map[string]EthereumNode{
		"down": &fakeNode{name: "down", err: errors.New("connection refused")},
		"up":   &fakeNode{name: "up"},
	})
	receipt, err := er.TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if receipt.Status != 1 {
		t.Errorf("want the receipt from the healthy node")
	}
	tx, isPending, err := er.TransactionByHash(context.Background(), common.HexToHash("0x01"))
	if err != nil || isPending || tx.Nonce() != 7 {
		t.Errorf("want mined tx with nonce 7, got %v %t %v", tx, isPending, err)
	}
}

func TestAllNodesFail(t *testing.T) {
	er := NewEthReaderWithNodes(map[string]EthereumNode{
		"a": &fakeNode{name: "a", err: errors.New("timeout")},
		"b": &fakeNode{name: "b", err: errors.New("refused")},
	})
	_, err := er.GetCode(context.Background(), token)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"a: timeout", "b: refused"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}

	if _, err := NewEthReaderWithNodes(nil).GetCode(context.Background(), token); !errors.Is(err, ErrNoNodes) {
		t.Errorf("want ErrNoNodes, got %v", err)
	}
}

func TestERC20Metadata(t *testing.T) {
	a := erc20()
	node := &fakeNode{name: "n", calls: map[[4]byte][]byte{
		[4]byte(a.Methods["symbol"].ID):      packOutput(t, "symbol", "DAI"),
		[4]byte(a.Methods["decimals"].ID):    packOutput(t, "decimals", uint8(18)),
		[4]byte(a.Methods["totalSupply"].ID): packOutput(t, "totalSupply", big.NewInt(1000)),
	}}
	er := NewEthReaderWithNodes(map[string]EthereumNode{"n": node})

	meta, err := er.TokenMetadata(context.Background(), token, contract.StandardERC20)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if meta.Symbol != "DAI" || meta.Decimals != 18 || meta.TotalSupply.Int64() != 1000 {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestBytes32Symbol(t *testing.T) {
	a := erc20()
	var mkr [32]byte
	copy(mkr[:], "MKR")
	node := &fakeNode{name: "n", calls: map[[4]byte][]byte{
		[4]byte(a.Methods["symbol"].ID): mkr[:],
	}}
	er := NewEthReaderWithNodes(map[string]EthereumNode{"n": node})

	meta, err := er.TokenMetadata(context.Background(), token, contract.StandardERC721)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if meta.Symbol != "MKR" {
		t.Errorf("want MKR, got %q", meta.Symbol)
	}
	if meta.TotalSupply != nil {
		t.Errorf("non enumerable collection should have no total supply")
	}
}

func TestERC20MetadataFailure(t *testing.T) {
	er := NewEthReaderWithNodes(map[string]EthereumNode{"n": &fakeNode{name: "n"}})
	if _, err := er.TokenMetadata(context.Background(), token, contract.StandardERC20); err == nil {
		t.Errorf("expected error for a contract without symbol")
	}
	meta, err := er.TokenMetadata(context.Background(), token, contract.StandardERC1155)
	if err != nil || meta.Symbol != "" {
		t.Errorf("erc1155 metadata is optional, got %+v %v", meta, err)
	}
	if _, err := er.TokenMetadata(context.Background(), token, contract.StandardNone); err == nil {
		t.Errorf("expected error for a non token standard")
	}
}

func TestImplementationOf(t *testing.T) {
	impl := common.HexToAddress("0x43506849D7C04F9138D1A2050bbF3A0c054402dd")
	direct := &fakeNode{name: "n", storage: map[common.Hash]common.Hash{
		implementationSlot: common.BytesToHash(impl.Bytes()),
	}}
	got, err := NewEthReaderWithNodes(map[string]EthereumNode{"n": direct}).ImplementationOf(context.Background(), token)
	if err != nil || got != impl {
		t.Errorf("want %s, got %s (%v)", impl.Hex(), got.Hex(), err)
	}

	beacon := common.HexToAddress("0x00000000000000000000000000000000000000be")
	viaBeacon := &fakeNode{
		name:    "n",
		storage: map[common.Hash]common.Hash{beaconSlot: common.BytesToHash(beacon.Bytes())},
		calls: map[[4]byte][]byte{
			{0x5c, 0x60, 0xda, 0x1b}: common.BytesToHash(impl.Bytes()).Bytes(),
		},
	}
	got, err = NewEthReaderWithNodes(map[string]EthereumNode{"n": viaBeacon}).ImplementationOf(context.Background(), token)
	if err != nil || got != impl {
		t.Errorf("want %s via beacon, got %s (%v)", impl.Hex(), got.Hex(), err)
	}

	plain := &fakeNode{name: "n"}
	if _, err := NewEthReaderWithNodes(map[string]EthereumNode{"n": plain}).ImplementationOf(context.Background(), token); !errors.Is(err, ErrNotProxy) {
		t.Errorf("want ErrNotProxy, got %v", err)
	}
}
