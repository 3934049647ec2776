package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/abiscope/contract"
)

// FileSource serves an abi read from disk for one contract. Other
// addresses get an empty snapshot so the next source is asked.
type FileSource struct {
	Address common.Address
	ABI     json.RawMessage
}

func ReadABIFile(address common.Address, path string) (*FileSource, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read abi file: %w", err)
	}
	if _, err := contract.ParseInterface(content); err != nil {
		return nil, fmt.Errorf("%s is not a valid abi: %w", path, err)
	}
	return &FileSource{Address: address, ABI: content}, nil
}

func (f *FileSource) Snapshot(ctx context.Context, address string) (contract.Snapshot, error) {
	if !common.IsHexAddress(address) || common.HexToAddress(address) != f.Address {
		return contract.Snapshot{Address: address}, nil
	}
	return contract.Snapshot{Address: address, ABI: f.ABI}, nil
}
