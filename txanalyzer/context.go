package txanalyzer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/contract"
)

// SnapshotSource describes a contract for contract.Factory. Block
// explorers and the snapshot database both implement it.
type SnapshotSource interface {
	Snapshot(ctx context.Context, address string) (contract.Snapshot, error)
}

// AnalysisContext is the per-session knowledge base for one run.
//
// It builds one descriptor per address and keeps it for the session
// lifetime so analysing many transactions of the same contracts never
// asks the sources twice. Sources are tried in order; the first snapshot
// that carries an interface wins.
type AnalysisContext struct {
	factory *contract.Factory
	sources []SnapshotSource
	logger  *zap.Logger

	mu          sync.Mutex
	descriptors map[common.Address]*contract.Descriptor
}

func NewAnalysisContext(factory *contract.Factory, logger *zap.Logger, sources ...SnapshotSource) *AnalysisContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisContext{
		factory:     factory,
		sources:     sources,
		logger:      logger,
		descriptors: map[common.Address]*contract.Descriptor{},
	}
}

// Register pins a descriptor, e.g. one built from a local ABI file, so
// the sources are never consulted for its address.
func (ac *AnalysisContext) Register(d *contract.Descriptor) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.descriptors[d.Address] = d
}

// Descriptor returns the cached descriptor of address, building it on
// first use. A contract no source knows still gets a descriptor without
// an interface so its calls and logs go through the signature resolver.
func (ac *AnalysisContext) Descriptor(ctx context.Context, address common.Address) (*contract.Descriptor, error) {
	ac.mu.Lock()
	d, found := ac.descriptors[address]
	ac.mu.Unlock()
	if found {
		return d, nil
	}

	d, err := ac.factory.Build(ctx, ac.snapshot(ctx, address))
	if err != nil {
		return nil, err
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()
	// another goroutine may have built it meanwhile, keep the first
	if existing, found := ac.descriptors[address]; found {
		return existing, nil
	}
	ac.descriptors[address] = d
	return d, nil
}

func (ac *AnalysisContext) snapshot(ctx context.Context, address common.Address) contract.Snapshot {
	fallback := contract.Snapshot{Address: address.Hex()}
	for _, source := range ac.sources {
		s, err := source.Snapshot(ctx, address.Hex())
		if err != nil {
			ac.logger.Warn("snapshot source failed", zap.String("address", address.Hex()), zap.Error(err))
			continue
		}
		if len(s.ABI) > 0 || len(s.Entries) > 0 || len(s.Metadata) > 0 {
			return s
		}
		if fallback.Name == "" {
			fallback.Name = s.Name
		}
		if len(fallback.SupportedInterfaces) == 0 {
			fallback.SupportedInterfaces = s.SupportedInterfaces
		}
	}
	return fallback
}
