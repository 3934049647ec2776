package explorers

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/util/cache"
)

type BlockExplorer interface {
	GetABIString(ctx context.Context, address string) (string, error)
	Snapshot(ctx context.Context, address string) (contract.Snapshot, error)
}

type options struct {
	chainID uint64
	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

type Option func(*options)

func WithChainID(id uint64) Option {
	return func(o *options) { o.chainID = id }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithRateLimit defaults to 5 requests per second, the free Etherscan
// tier.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithCache(c *cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) *options {
	o := &options{
		client:  defaultClient(),
		limiter: rate.NewLimiter(5, 5),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = cache.Open("")
	}
	return o
}

// NewEtherscanV2 uses the multichain Etherscan API, one key for every
// supported chain.
func NewEtherscanV2(chainID uint64, apiKey string, opts ...Option) *EtherscanLikeExplorer {
	return NewEtherscanLikeExplorer(
		"https://api.etherscan.io/v2",
		apiKey,
		append([]Option{WithChainID(chainID)}, opts...)...,
	)
}
