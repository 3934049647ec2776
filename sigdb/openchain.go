package sigdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tranvictor/abiscope/contract"
)

const DefaultOpenChainURL = "https://api.openchain.xyz"

// OpenChain looks signatures up in the public OpenChain signature
// database. Requests are rate limited since lookups for a whole batch of
// logs are issued at once.
type OpenChain struct {
	BaseURL string

	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *LookupMetrics
}

type OpenChainOption func(*OpenChain)

func WithHTTPClient(c *http.Client) OpenChainOption {
	return func(o *OpenChain) { o.client = c }
}

// WithRateLimit allows rps requests per second with bursts of burst.
func WithRateLimit(rps float64, burst int) OpenChainOption {
	return func(o *OpenChain) { o.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithOpenChainLogger(l *zap.Logger) OpenChainOption {
	return func(o *OpenChain) { o.logger = l }
}

func WithOpenChainMetrics(m *LookupMetrics) OpenChainOption {
	return func(o *OpenChain) { o.metrics = m }
}

func NewOpenChain(baseURL string, opts ...OpenChainOption) *OpenChain {
	if baseURL == "" {
		baseURL = DefaultOpenChainURL
	}
	o := &OpenChain{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type openChainCandidate struct {
	Name     string `json:"name"`
	Filtered bool   `json:"filtered"`
}

type openChainResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Result struct {
		Event    map[string][]openChainCandidate `json:"event"`
		Function map[string][]openChainCandidate `json:"function"`
	} `json:"result"`
}

func (o *OpenChain) LookupURL(kind Kind, hash string) string {
	q := url.Values{}
	q.Set(string(kind), hash)
	q.Set("filter", "true")
	return fmt.Sprintf("%s/signature-database/v1/lookup?%s", o.BaseURL, q.Encode())
}

// Lookup returns the unfiltered text signatures registered for hash, best
// candidate first.
func (o *OpenChain) Lookup(ctx context.Context, kind Kind, hash string) ([]string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.LookupURL(kind, hash), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		o.metrics.observe("openchain", kind, "error")
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		o.metrics.observe("openchain", kind, "error")
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		o.metrics.observe("openchain", kind, "error")
		return nil, fmt.Errorf("openchain lookup of %s returned %s", hash, resp.Status)
	}

	result := openChainResponse{}
	if err := json.Unmarshal(body, &result); err != nil {
		o.metrics.observe("openchain", kind, "error")
		return nil, fmt.Errorf("couldn't unmarshal openchain response %s: %w", string(body), err)
	}
	if !result.OK {
		o.metrics.observe("openchain", kind, "error")
		return nil, fmt.Errorf("openchain lookup of %s failed: %s", hash, result.Error)
	}

	candidates := result.Result.Function[hash]
	if kind == Event {
		candidates = result.Result.Event[hash]
	}
	texts := []string{}
	for _, c := range candidates {
		if !c.Filtered {
			texts = append(texts, c.Name)
		}
	}
	if len(texts) == 0 {
		o.metrics.observe("openchain", kind, "miss")
		return nil, contract.ErrSignatureNotFound
	}
	o.metrics.observe("openchain", kind, "hit")
	return texts, nil
}

func (o *OpenChain) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	texts, err := o.Lookup(ctx, Function, selectorHex(selector))
	if err != nil {
		return nil, err
	}
	o.logger.Debug("openchain function candidates", zap.String("selector", selectorHex(selector)), zap.Strings("candidates", texts))
	return interfaceFromText(Function, texts, 0)
}

func (o *OpenChain) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	texts, err := o.Lookup(ctx, Event, topicHex(topic))
	if err != nil {
		return nil, err
	}
	o.logger.Debug("openchain event candidates", zap.String("topic", topicHex(topic)), zap.Strings("candidates", texts))
	return interfaceFromText(Event, texts, indexed)
}
