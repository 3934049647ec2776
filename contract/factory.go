package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Snapshot is the raw, one time data a Descriptor is built from, usually
// an explorer response or an indexed database row.
type Snapshot struct {
	Address string
	Name    string

	// Entries is an already structured ABI and takes precedence over ABI,
	// which is a JSON array or a JSON string holding one.
	Entries []Entry
	ABI     json.RawMessage
	// Metadata is the solc metadata document; output.abi and
	// settings.compilationTarget are read from it.
	Metadata json.RawMessage
	// Properties is auxiliary on chain data, "name" is the only key read.
	Properties map[string]string

	SupportedInterfaces []string
	Creation            *CreationInfo
}

type Factory struct {
	Resolver    SignatureResolver
	Tokens      TokenMetadataSource
	Signer      SignerProvider
	Logger      *zap.Logger
	Metrics     *Metrics
	Concurrency int
}

type FactoryOption func(*Factory)

func WithResolver(r SignatureResolver) FactoryOption {
	return func(f *Factory) { f.Resolver = r }
}

func WithTokens(t TokenMetadataSource) FactoryOption {
	return func(f *Factory) { f.Tokens = t }
}

func WithSigner(s SignerProvider) FactoryOption {
	return func(f *Factory) { f.Signer = s }
}

func WithLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) { f.Logger = l }
}

func WithMetrics(m *Metrics) FactoryOption {
	return func(f *Factory) { f.Metrics = m }
}

// WithConcurrency bounds the number of logs DecodeLogs decodes at once.
// Zero means no bound.
func WithConcurrency(n int) FactoryOption {
	return func(f *Factory) { f.Concurrency = n }
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if f.Logger == nil {
		f.Logger = zap.NewNop()
	}
	return f
}

// Build assembles a Descriptor from s. The interface comes from the first
// source that works: the explicit ABI, the compiler metadata, then the
// bundled interface of the first declared token standard. A contract with
// none of those has no interface, which is not an error. Only a missing or
// malformed address fails.
func (f *Factory) Build(ctx context.Context, s Snapshot) (*Descriptor, error) {
	if s.Address == "" {
		return nil, fmt.Errorf("%w: snapshot has no address", ErrContractDataRequired)
	}
	if !common.IsHexAddress(s.Address) {
		return nil, fmt.Errorf("%w: malformed address %q", ErrContractDataRequired, s.Address)
	}

	d := f.newDescriptor(common.HexToAddress(s.Address))
	logger := f.Logger.With(zap.String("contract", d.Address.Hex()))

	d.SupportedInterfaces = filterStandards(s.SupportedInterfaces, logger)
	d.Creation = s.Creation

	meta, err := parseMetadata(s.Metadata)
	if err != nil {
		logger.Warn("ignoring malformed compiler metadata", zap.Error(err))
	}

	switch {
	case len(s.Entries) > 0:
		d.Interface, err = NewInterface(s.Entries)
		if err != nil {
			logger.Warn("ignoring malformed abi entries", zap.Error(err))
		}
	case len(s.ABI) > 0:
		d.Interface, err = ParseInterface(s.ABI)
		if err != nil {
			logger.Warn("ignoring malformed abi", zap.Error(err))
		}
	}
	if d.Interface != nil {
		d.verified = true
	} else if meta != nil && len(meta.Output.ABI) > 0 {
		d.Interface, err = ParseInterface(meta.Output.ABI)
		if err != nil {
			logger.Warn("ignoring malformed metadata abi", zap.Error(err))
		} else {
			d.verified = true
		}
	}
	if d.Interface == nil {
		for _, standard := range d.SupportedInterfaces {
			if iface, found := StandardInterface(standard); found {
				d.Interface = iface
				logger.Debug("using bundled standard interface", zap.String("standard", string(standard)))
				break
			}
		}
	}

	d.Name = resolveName(s, meta)
	d.Token = f.fetchToken(ctx, d, logger)
	return d, nil
}

// Refresh returns a new verified Descriptor that replaces d's interface
// with abiPayload. d itself is not modified.
func (f *Factory) Refresh(ctx context.Context, d *Descriptor, abiPayload json.RawMessage) (*Descriptor, error) {
	iface, err := ParseInterface(abiPayload)
	if err != nil {
		return nil, err
	}
	refreshed := f.newDescriptor(d.Address)
	refreshed.Name = d.Name
	refreshed.Interface = iface
	refreshed.SupportedInterfaces = append([]Standard(nil), d.SupportedInterfaces...)
	refreshed.Creation = d.Creation
	refreshed.Token = d.Token
	refreshed.verified = true
	return refreshed, nil
}

func (f *Factory) newDescriptor(address common.Address) *Descriptor {
	return &Descriptor{
		Address:     address,
		resolver:    f.Resolver,
		signer:      f.Signer,
		logger:      f.Logger,
		metrics:     f.Metrics,
		concurrency: f.Concurrency,
	}
}

func (f *Factory) fetchToken(ctx context.Context, d *Descriptor, logger *zap.Logger) *TokenMetadata {
	if f.Tokens == nil {
		return nil
	}
	for _, standard := range d.SupportedInterfaces {
		if !standard.IsToken() {
			continue
		}
		token, err := f.Tokens.TokenMetadata(ctx, d.Address, standard)
		if err != nil {
			logger.Warn("couldn't fetch token metadata", zap.String("standard", string(standard)), zap.Error(err))
			return nil
		}
		return token
	}
	return nil
}

// filterStandards drops the none sentinel by value and skips unknown tags
// and duplicates.
func filterStandards(tags []string, logger *zap.Logger) []Standard {
	result := []Standard{}
	seen := map[Standard]bool{}
	for _, tag := range tags {
		s, err := ParseStandard(tag)
		if err != nil {
			logger.Debug("ignoring standard interface tag", zap.Error(err))
			continue
		}
		if s == StandardNone || seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	return result
}

type compilerMetadata struct {
	Output struct {
		ABI json.RawMessage `json:"abi"`
	} `json:"output"`
	Settings struct {
		CompilationTarget json.RawMessage `json:"compilationTarget"`
	} `json:"settings"`
}

func parseMetadata(raw json.RawMessage) (*compilerMetadata, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var serialized string
		if err := json.Unmarshal(raw, &serialized); err != nil {
			return nil, err
		}
		return parseMetadata(json.RawMessage(serialized))
	}
	meta := &compilerMetadata{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// firstCompilationTarget returns the value of the first key of the
// compilationTarget object in document order.
func (m *compilerMetadata) firstCompilationTarget() (string, error) {
	if len(m.Settings.CompilationTarget) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(m.Settings.CompilationTarget))
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", errors.New("compilationTarget is not an object")
	}
	if !dec.More() {
		return "", nil
	}
	if _, err := dec.Token(); err != nil {
		return "", err
	}
	var name string
	if err := dec.Decode(&name); err != nil {
		return "", err
	}
	return name, nil
}

func resolveName(s Snapshot, meta *compilerMetadata) string {
	if s.Name != "" {
		return s.Name
	}
	if name := s.Properties["name"]; name != "" {
		return name
	}
	if meta != nil {
		if name, err := meta.firstCompilationTarget(); err == nil {
			return name
		}
	}
	return ""
}
