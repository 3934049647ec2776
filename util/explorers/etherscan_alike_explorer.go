package explorers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/util/cache"
)

const unverifiedABI = "Contract source code not verified"

// EtherscanLikeExplorer talks to the Etherscan contract API and to the
// explorers that copy it.
type EtherscanLikeExplorer struct {
	ChainID uint64
	Domain  string
	APIKey  string

	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

func NewEtherscanLikeExplorer(domain string, apiKey string, opts ...Option) *EtherscanLikeExplorer {
	o := newOptions(opts)
	return &EtherscanLikeExplorer{
		ChainID: o.chainID,
		Domain:  domain,
		APIKey:  apiKey,
		client:  o.client,
		limiter: o.limiter,
		cache:   o.cache,
		logger:  o.logger,
	}
}

func (ee *EtherscanLikeExplorer) apiURL(action string, address string) string {
	q := url.Values{}
	if ee.ChainID != 0 {
		q.Set("chainid", fmt.Sprintf("%d", ee.ChainID))
	}
	q.Set("module", "contract")
	q.Set("action", action)
	q.Set("address", address)
	if ee.APIKey != "" {
		q.Set("apikey", ee.APIKey)
	}
	return fmt.Sprintf("%s/api?%s", ee.Domain, q.Encode())
}

func (ee *EtherscanLikeExplorer) GetABIStringAPIURL(address string) string {
	return ee.apiURL("getabi", address)
}

func (ee *EtherscanLikeExplorer) GetSourceCodeAPIURL(address string) string {
	return ee.apiURL("getsourcecode", address)
}

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (r *etherscanResponse) IsOK() bool {
	return r.Status == "1"
}

// SourceCode is one entry of a getsourcecode response.
type SourceCode struct {
	SourceCode           string `json:"SourceCode"`
	ABI                  string `json:"ABI"`
	ContractName         string `json:"ContractName"`
	CompilerVersion      string `json:"CompilerVersion"`
	OptimizationUsed     string `json:"OptimizationUsed"`
	Runs                 string `json:"Runs"`
	ConstructorArguments string `json:"ConstructorArguments"`
	EVMVersion           string `json:"EVMVersion"`
	Library              string `json:"Library"`
	LicenseType          string `json:"LicenseType"`
	Proxy                string `json:"Proxy"`
	Implementation       string `json:"Implementation"`
	SwarmSource          string `json:"SwarmSource"`
}

func (s *SourceCode) Verified() bool {
	return s.ABI != "" && s.ABI != unverifiedABI
}

func (s *SourceCode) IsProxy() bool {
	return s.Proxy == "1" && s.Implementation != ""
}

func (ee *EtherscanLikeExplorer) get(ctx context.Context, apiURL string) (*etherscanResponse, error) {
	if err := ee.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := ee.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", ee.Domain, resp.Status)
	}
	result := &etherscanResponse{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("couldn't unmarshal %s: %w", string(body), err)
	}
	return result, nil
}

func (ee *EtherscanLikeExplorer) cacheKey(action, address string) string {
	return fmt.Sprintf("%s:%d:%s", action, ee.ChainID, address)
}

// GetABIString returns the verified ABI of address as the JSON text the
// explorer serves.
func (ee *EtherscanLikeExplorer) GetABIString(ctx context.Context, address string) (string, error) {
	key := ee.cacheKey("abi", address)
	if abi, found := ee.cache.Get(key); found {
		return abi, nil
	}

	resp, err := ee.get(ctx, ee.GetABIStringAPIURL(address))
	if err != nil {
		return "", err
	}
	var result string
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", fmt.Errorf("unexpected getabi result %s: %w", string(resp.Result), err)
	}
	if !resp.IsOK() {
		return "", fmt.Errorf("error from %s: %s: %s", ee.Domain, resp.Message, result)
	}
	if err := ee.cache.Set(key, result); err != nil {
		ee.logger.Warn("couldn't persist abi cache", zap.String("address", address), zap.Error(err))
	}
	return result, nil
}

// GetSourceCode fetches the getsourcecode entry of address.
func (ee *EtherscanLikeExplorer) GetSourceCode(ctx context.Context, address string) (*SourceCode, error) {
	key := ee.cacheKey("source", address)
	if cached, found := ee.cache.Get(key); found {
		code := &SourceCode{}
		if err := json.Unmarshal([]byte(cached), code); err == nil {
			return code, nil
		}
	}

	resp, err := ee.get(ctx, ee.GetSourceCodeAPIURL(address))
	if err != nil {
		return nil, err
	}
	if !resp.IsOK() {
		var msg string
		json.Unmarshal(resp.Result, &msg)
		return nil, fmt.Errorf("error from %s: %s: %s", ee.Domain, resp.Message, msg)
	}
	codes := []SourceCode{}
	if err := json.Unmarshal(resp.Result, &codes); err != nil {
		return nil, fmt.Errorf("unexpected getsourcecode result: %w", err)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("no source code entry for %s", address)
	}
	code := &codes[0]
	// only verified entries are final, an unverified contract may be
	// verified later
	if code.Verified() {
		if data, err := json.Marshal(code); err == nil {
			if err := ee.cache.Set(key, string(data)); err != nil {
				ee.logger.Warn("couldn't persist source cache", zap.String("address", address), zap.Error(err))
			}
		}
	}
	return code, nil
}

// Snapshot describes address for contract.Factory. Proxies take the
// interface of their implementation. An unverified contract gives a
// snapshot with only the address.
func (ee *EtherscanLikeExplorer) Snapshot(ctx context.Context, address string) (contract.Snapshot, error) {
	snapshot := contract.Snapshot{Address: address}
	code, err := ee.GetSourceCode(ctx, address)
	if err != nil {
		return snapshot, err
	}
	snapshot.Name = code.ContractName
	if code.IsProxy() {
		impl, err := ee.GetSourceCode(ctx, code.Implementation)
		if err != nil {
			ee.logger.Warn("couldn't fetch proxy implementation",
				zap.String("proxy", address),
				zap.String("implementation", code.Implementation),
				zap.Error(err),
			)
		} else if impl.Verified() {
			ee.logger.Debug("using implementation abi", zap.String("proxy", address), zap.String("implementation", code.Implementation))
			if snapshot.Name == "" {
				snapshot.Name = impl.ContractName
			}
			snapshot.ABI = json.RawMessage(impl.ABI)
			return snapshot, nil
		}
	}
	if code.Verified() {
		snapshot.ABI = json.RawMessage(code.ABI)
	}
	return snapshot, nil
}

var _ BlockExplorer = (*EtherscanLikeExplorer)(nil)

func defaultClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
