package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/config"
	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/db"
	"github.com/tranvictor/abiscope/networks"
	"github.com/tranvictor/abiscope/sigdb"
	"github.com/tranvictor/abiscope/snapshotdb"
	"github.com/tranvictor/abiscope/txanalyzer"
	"github.com/tranvictor/abiscope/ui"
	"github.com/tranvictor/abiscope/util"
	"github.com/tranvictor/abiscope/util/cache"
	"github.com/tranvictor/abiscope/util/explorers"
	"github.com/tranvictor/abiscope/util/reader"
)

const signatureCacheTTL = 10 * time.Minute

// Session holds everything a command needs, wired from one Config. It is
// built by the root command's pre-run hook and closed after the command.
type Session struct {
	ID       string
	Config   *config.Config
	Logger   *zap.Logger
	UI       ui.UI
	Networks *networks.Registry
	Network  networks.Network
	Reader   *reader.EthReader
	Explorer explorers.BlockExplorer
	Index    *sigdb.Index
	Resolver contract.SignatureResolver
	Factory  *contract.Factory
	Addresses *db.AddressDatabase
	Analysis *txanalyzer.AnalysisContext
	Analyzer *txanalyzer.TxAnalyzer
	Metrics  *prometheus.Registry

	closers []func() error
}

// SessionOption adds snapshot sources in front of the block explorer,
// e.g. a local abi file for the target contract.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	sources []txanalyzer.SnapshotSource
}

func WithSource(s txanalyzer.SnapshotSource) SessionOption {
	return func(o *sessionOptions) { o.sources = append(o.sources, s) }
}

func NewSession(ctx context.Context, cfg *config.Config, u ui.UI, logger *zap.Logger, opts ...SessionOption) (*Session, error) {
	o := &sessionOptions{}
	for _, opt := range opts {
		opt(o)
	}
	s := &Session{
		ID:      uuid.NewString(),
		Config:  cfg,
		UI:      u,
		Metrics: prometheus.NewRegistry(),
	}
	s.Logger = logger.With(zap.String("session", s.ID))

	s.Networks = networks.NewRegistry()
	if dir := cfg.NetworksDir(); dir != "" {
		if err := s.Networks.LoadCustomNetworks(dir, s.Logger); err != nil {
			s.Logger.Warn("couldn't load custom networks", zap.String("dir", dir), zap.Error(err))
		}
	}
	network, err := s.Networks.GetNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	s.Network = network
	if s.Reader, err = util.EthReader(network, cfg.Node); err != nil {
		return nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(network.GetBlockExplorerAPIKeyVariableName())
	}
	s.Explorer = network.Explorer(apiKey,
		explorers.WithRateLimit(cfg.RPS),
		explorers.WithCache(cache.Open(cfg.CacheFile())),
		explorers.WithLogger(s.Logger),
	)

	lookupMetrics := sigdb.NewLookupMetrics(s.Metrics)
	if s.Index, err = sigdb.OpenIndex(cfg.SignatureDB, s.Logger, lookupMetrics); err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.Index.Close)
	static := sigdb.NewStandardStatic()
	if err := s.Index.Add(static.Signatures()...); err != nil {
		s.Logger.Warn("couldn't seed signature index", zap.Error(err))
	}
	remote := sigdb.NewOpenChain("",
		sigdb.WithRateLimit(cfg.RPS, int(cfg.RPS)+1),
		sigdb.WithOpenChainLogger(s.Logger),
		sigdb.WithOpenChainMetrics(lookupMetrics),
	)
	cached, err := sigdb.NewCachedResolver(ctx, sigdb.Chain{
		static,
		s.Index,
		sigdb.Recording{Resolver: remote, Recorder: s.Index, Logger: s.Logger},
	}, signatureCacheTTL, s.Logger, lookupMetrics)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, cached.Close)
	s.Resolver = cached

	s.Factory = contract.NewFactory(
		contract.WithResolver(s.Resolver),
		contract.WithTokens(s.Reader),
		contract.WithLogger(s.Logger),
		contract.WithMetrics(contract.NewMetrics(s.Metrics)),
		contract.WithConcurrency(cfg.Concurrency),
	)

	sources := o.sources
	if cfg.DSN != "" {
		store, err := snapshotdb.Open(ctx, cfg.DSN, snapshotdb.WithLogger(s.Logger))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("couldn't open snapshot database: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		sources = append(sources, store)
	}
	sources = append(sources, s.Explorer)

	s.Addresses, err = db.Load(cfg.AddressBookFile())
	if err != nil {
		s.Logger.Warn("ignoring address book", zap.Error(err))
		s.Addresses = db.NewAddressDatabase()
	}
	sources = append(sources, s.Addresses)
	s.Analysis = txanalyzer.NewAnalysisContext(s.Factory, s.Logger, sources...)
	s.Analyzer = txanalyzer.NewTxAnalyzer(s.Analysis, s.Logger)
	return s, nil
}

// Close releases the session's stores in reverse order and logs what the
// decoders and resolvers did.
func (s *Session) Close() error {
	s.logMetrics()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Session) logMetrics() {
	families, err := s.Metrics.Gather()
	if err != nil {
		s.Logger.Debug("couldn't gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.Float64("value", m.GetCounter().GetValue())}
			for _, label := range m.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			s.Logger.Debug(mf.GetName(), fields...)
		}
	}
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom retrieves the Session attached to cmd by the pre-run hook.
func SessionFrom(cmd *cobra.Command) (*Session, bool) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}
