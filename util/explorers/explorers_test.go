package explorers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/util/cache"
)

const (
	proxyAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	implAddress  = "0x43506849D7C04F9138D1A2050bbF3A0c054402dd"
	transferABI  = `[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}]`
)

func sourceCodeResult(name, abi, proxy, impl string) string {
	return `{"status":"1","message":"OK","result":[{"SourceCode":"","ABI":` + quote(abi) +
		`,"ContractName":"` + name + `","Proxy":"` + proxy + `","Implementation":"` + impl + `"}]}`
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func newEtherscan(t *testing.T, responses map[string]string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		q := r.URL.Query()
		body, found := responses[q.Get("action")+":"+q.Get("address")]
		if !found {
			body = `{"status":"0","message":"NOTOK","result":"Invalid Address format"}`
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestSnapshotFollowsProxy(t *testing.T) {
	srv, _ := newEtherscan(t, map[string]string{
		"getsourcecode:" + proxyAddress: sourceCodeResult("FiatTokenProxy", `[]`, "1", implAddress),
		"getsourcecode:" + implAddress:  sourceCodeResult("FiatTokenV2_2", transferABI, "0", ""),
	})
	ee := NewEtherscanLikeExplorer(srv.URL, "key", WithChainID(1), WithRateLimit(100))

	s, err := ee.Snapshot(context.Background(), proxyAddress)
	require.NoError(t, err)
	assert.Equal(t, proxyAddress, s.Address)
	assert.Equal(t, "FiatTokenProxy", s.Name)

	d, err := contract.NewFactory().Build(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, d.Verified())
	_, found := d.Interface.Method(contract.Selector("transfer(address,uint256)"))
	assert.True(t, found, "implementation abi should be used")
}

func TestSnapshotUnverified(t *testing.T) {
	srv, _ := newEtherscan(t, map[string]string{
		"getsourcecode:" + implAddress: sourceCodeResult("", unverifiedABI, "0", ""),
	})
	ee := NewEtherscanLikeExplorer(srv.URL, "", WithRateLimit(100))

	s, err := ee.Snapshot(context.Background(), implAddress)
	require.NoError(t, err)
	assert.Empty(t, s.ABI)

	d, err := contract.NewFactory().Build(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, d.HasInterface())
}

func TestSnapshotAPIError(t *testing.T) {
	srv, _ := newEtherscan(t, map[string]string{})
	ee := NewEtherscanLikeExplorer(srv.URL, "", WithRateLimit(100))
	_, err := ee.Snapshot(context.Background(), "0xnope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Address format")
}

func TestGetABIStringUsesCache(t *testing.T) {
	srv, hits := newEtherscan(t, map[string]string{
		"getabi:" + implAddress: `{"status":"1","message":"OK","result":` + quote(transferABI) + `}`,
	})
	path := filepath.Join(t.TempDir(), "cache.json")
	ee := NewEtherscanLikeExplorer(srv.URL, "key", WithChainID(10), WithRateLimit(100), WithCache(cache.Open(path)))

	for i := 0; i < 2; i++ {
		abi, err := ee.GetABIString(context.Background(), implAddress)
		require.NoError(t, err)
		assert.Equal(t, transferABI, abi)
	}
	assert.Equal(t, 1, *hits)

	again := NewEtherscanLikeExplorer(srv.URL, "key", WithChainID(10), WithCache(cache.Open(path)))
	_, err := again.GetABIString(context.Background(), implAddress)
	require.NoError(t, err)
	assert.Equal(t, 1, *hits, "persisted cache should be reused")
}

func TestAPIURL(t *testing.T) {
	ee := NewEtherscanV2(137, "secret")
	u := ee.GetSourceCodeAPIURL(implAddress)
	assert.True(t, strings.HasPrefix(u, "https://api.etherscan.io/v2/api?"))
	assert.Contains(t, u, "chainid=137")
	assert.Contains(t, u, "action=getsourcecode")
	assert.Contains(t, u, "apikey=secret")

	assert.NotContains(t, NewEtherscanLikeExplorer("https://x", "").GetABIStringAPIURL(implAddress), "chainid")
}

func TestBlockscoutSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/smart-contracts/" + proxyAddress:
			w.Write([]byte(`{"is_verified":true,"name":"Proxy","abi":[],"implementations":[{"address_hash":"` + implAddress + `","name":"Impl"}]}`))
		case "/api/v2/smart-contracts/" + implAddress:
			w.Write([]byte(`{"is_verified":true,"name":"Impl","abi":` + transferABI + `}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ee := NewOptimisticRollupExplorer(srv.URL+"/api/v2", "", WithRateLimit(100))

	s, err := ee.Snapshot(context.Background(), proxyAddress)
	require.NoError(t, err)
	assert.Equal(t, "Proxy", s.Name)
	assert.JSONEq(t, transferABI, string(s.ABI))

	s, err = ee.Snapshot(context.Background(), "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Empty(t, s.ABI)

	_, err = ee.GetABIString(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.Error(t, err)
}
