package reader

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/abiscope/contract"
)

// ReadContract packs method with the given abi, calls the contract at the
// latest block and unpacks the outputs.
func (er *EthReader) ReadContract(ctx context.Context, caddr common.Address, a abi.ABI, method string, args ...any) ([]any, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := er.CallContract(ctx, ethereum.CallMsg{To: &caddr, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return a.Unpack(method, out)
}

func erc20() abi.ABI {
	iface, _ := contract.StandardInterface(contract.StandardERC20)
	return iface.ABI()
}

// TokenMetadata reads symbol, decimals and total supply. Only ERC20
// tokens must answer all three; ERC721 collections have no decimals and
// ERC1155 contracts have no mandatory metadata at all.
func (er *EthReader) TokenMetadata(ctx context.Context, address common.Address, s contract.Standard) (*contract.TokenMetadata, error) {
	meta := &contract.TokenMetadata{Standard: s}
	a := erc20()

	switch s {
	case contract.StandardERC20:
		symbol, err := er.symbol(ctx, address, a)
		if err != nil {
			return nil, fmt.Errorf("couldn't read symbol of %s: %w", address.Hex(), err)
		}
		meta.Symbol = symbol
		out, err := er.ReadContract(ctx, address, a, "decimals")
		if err != nil {
			return nil, fmt.Errorf("couldn't read decimals of %s: %w", address.Hex(), err)
		}
		meta.Decimals = *abi.ConvertType(out[0], new(uint8)).(*uint8)
		out, err = er.ReadContract(ctx, address, a, "totalSupply")
		if err != nil {
			return nil, fmt.Errorf("couldn't read total supply of %s: %w", address.Hex(), err)
		}
		meta.TotalSupply = out[0].(*big.Int)
	case contract.StandardERC721:
		symbol, err := er.symbol(ctx, address, a)
		if err != nil {
			return nil, fmt.Errorf("couldn't read symbol of %s: %w", address.Hex(), err)
		}
		meta.Symbol = symbol
		// enumerable extension only
		if out, err := er.ReadContract(ctx, address, a, "totalSupply"); err == nil {
			meta.TotalSupply = out[0].(*big.Int)
		}
	case contract.StandardERC1155:
		if symbol, err := er.symbol(ctx, address, a); err == nil {
			meta.Symbol = symbol
		}
	default:
		return nil, fmt.Errorf("%s is not a token standard", s)
	}
	return meta, nil
}

// symbol also accepts the bytes32 symbols of early tokens such as MKR.
func (er *EthReader) symbol(ctx context.Context, address common.Address, a abi.ABI) (string, error) {
	data, err := a.Pack("symbol")
	if err != nil {
		return "", err
	}
	out, err := er.CallContract(ctx, ethereum.CallMsg{To: &address, Data: data}, nil)
	if err != nil {
		return "", err
	}
	values, err := a.Unpack("symbol", out)
	if err == nil {
		return values[0].(string), nil
	}
	if len(out) == 32 {
		return string(bytes.TrimRight(out, "\x00")), nil
	}
	return "", err
}

var _ contract.TokenMetadataSource = (*EthReader)(nil)
