package explorers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/util/cache"
)

// OptimisticRollupExplorer reads the Blockscout v2 smart contract API used
// by most rollup explorers.
type OptimisticRollupExplorer struct {
	Domain string
	APIKey string

	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

func NewOptimisticRollupExplorer(domain string, apiKey string, opts ...Option) *OptimisticRollupExplorer {
	o := newOptions(opts)
	return &OptimisticRollupExplorer{
		Domain:  domain,
		APIKey:  apiKey,
		client:  o.client,
		limiter: o.limiter,
		cache:   o.cache,
		logger:  o.logger,
	}
}

// SmartContractResponse is the subset of the Blockscout response the
// snapshot needs.
type SmartContractResponse struct {
	IsVerified       bool             `json:"is_verified"`
	IsFullyVerified  bool             `json:"is_fully_verified"`
	Name             string           `json:"name"`
	CompilerVersion  string           `json:"compiler_version"`
	ABI              json.RawMessage  `json:"abi"`
	FilePath         string           `json:"file_path"`
	CompilerSettings json.RawMessage  `json:"compiler_settings"`
	Language         string           `json:"language"`
	ProxyType        string           `json:"proxy_type"`
	Implementations  []Implementation `json:"implementations"`
}

type Implementation struct {
	AddressHash string `json:"address_hash"`
	Name        string `json:"name"`
}

func (ee *OptimisticRollupExplorer) smartContract(ctx context.Context, address string) (*SmartContractResponse, error) {
	key := fmt.Sprintf("blockscout:%s:%s", ee.Domain, address)
	if cached, found := ee.cache.Get(key); found {
		result := &SmartContractResponse{}
		if err := json.Unmarshal([]byte(cached), result); err == nil {
			return result, nil
		}
	}

	if err := ee.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	apiURL := fmt.Sprintf("%s/smart-contracts/%s", strings.TrimSuffix(ee.Domain, "/"), address)
	if ee.APIKey != "" {
		apiURL += "?apikey=" + ee.APIKey
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
	if resp.StatusCode == http.StatusNotFound {
		return &SmartContractResponse{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", ee.Domain, resp.Status)
	}
	result := &SmartContractResponse{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("couldn't unmarshal smart contract response: %w", err)
	}
	if result.IsVerified {
		if err := ee.cache.Set(key, string(body)); err != nil {
			ee.logger.Warn("couldn't persist smart contract cache", zap.String("address", address), zap.Error(err))
		}
	}
	return result, nil
}

func (ee *OptimisticRollupExplorer) GetABIString(ctx context.Context, address string) (string, error) {
	sc, err := ee.smartContract(ctx, address)
	if err != nil {
		return "", err
	}
	if !sc.IsVerified || len(sc.ABI) == 0 {
		return "", fmt.Errorf("%s is not verified on %s", address, ee.Domain)
	}
	return string(sc.ABI), nil
}

func (ee *OptimisticRollupExplorer) Snapshot(ctx context.Context, address string) (contract.Snapshot, error) {
	snapshot := contract.Snapshot{Address: address}
	sc, err := ee.smartContract(ctx, address)
	if err != nil {
		return snapshot, err
	}
	snapshot.Name = sc.Name
	if len(sc.Implementations) > 0 {
		impl, err := ee.smartContract(ctx, sc.Implementations[0].AddressHash)
		if err == nil && impl.IsVerified {
			snapshot.ABI = impl.ABI
			return snapshot, nil
		}
	}
	if sc.IsVerified {
		snapshot.ABI = sc.ABI
	}
	return snapshot, nil
}

var _ BlockExplorer = (*OptimisticRollupExplorer)(nil)
