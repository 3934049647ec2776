// Package db is a local address book: names for addresses the explorers
// don't label, read from a JSON object of address to name.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sahilm/fuzzy"

	"github.com/tranvictor/abiscope/contract"
)

type AddressDatabase struct {
	mu   sync.RWMutex
	Data map[common.Address]string
}

func NewAddressDatabase() *AddressDatabase {
	return &AddressDatabase{Data: map[common.Address]string{}}
}

// Load reads the address book at path. A missing file is an empty book,
// symlinks are followed.
func Load(path string) (*AddressDatabase, error) {
	db := NewAddressDatabase()
	if path == "" {
		return db, nil
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return db, nil
	}
	if err != nil {
		return nil, err
	}
	data := map[string]string{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("reading addresses from %s: %w", path, err)
	}
	for addr, name := range data {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("reading addresses from %s: %q is not an address", path, addr)
		}
		db.Register(addr, name)
	}
	return db, nil
}

func (self *AddressDatabase) Register(addr string, name string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Data[common.HexToAddress(addr)] = name
}

func (self *AddressDatabase) GetName(addr string) (string, bool) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	name, found := self.Data[common.HexToAddress(addr)]
	return name, found
}

// Search returns at most limit entries fuzzy matching input, best first.
func (self *AddressDatabase) Search(input string, limit int) []AddressDesc {
	source := self.fuzzySource()
	matches := fuzzy.FindFrom(strings.ReplaceAll(input, " ", "_"), source)
	result := []AddressDesc{}
	for i := 0; i < len(matches) && i < limit; i++ {
		result = append(result, source[matches[i].Index])
	}
	return result
}

// Snapshot labels address for the analysis context. It never carries an
// interface, so it only names contracts the other sources know nothing
// about.
func (self *AddressDatabase) Snapshot(ctx context.Context, address string) (contract.Snapshot, error) {
	name, _ := self.GetName(address)
	return contract.Snapshot{Address: address, Name: name}, nil
}

func (self *AddressDatabase) fuzzySource() FuzzySource {
	self.mu.RLock()
	defer self.mu.RUnlock()
	result := make(FuzzySource, 0, len(self.Data))
	for addr, desc := range self.Data {
		result = append(result, AddressDesc{Address: addr.Hex(), Desc: desc})
	}
	return result
}
