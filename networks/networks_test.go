package networks

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/util/explorers"
)

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"mainnet", "Ethereum", " polygon "} {
		if _, err := r.GetNetwork(name); err != nil {
			t.Errorf("%q: %s", name, err)
		}
	}
	n, err := r.GetNetworkByID(137)
	if err != nil || n.GetName() != "matic" {
		t.Errorf("want matic for chain 137, got %v %v", n, err)
	}
	if _, err := r.GetNetwork("tomo"); !errors.Is(err, ErrNetworkNotFound) {
		t.Errorf("want ErrNetworkNotFound, got %v", err)
	}
	if _, err := r.GetNetworkByID(999999); !errors.Is(err, ErrNetworkNotFound) {
		t.Errorf("want ErrNetworkNotFound, got %v", err)
	}
}

func TestExplorerKinds(t *testing.T) {
	if _, ok := EthereumMainnet.Explorer("key").(*explorers.EtherscanLikeExplorer); !ok {
		t.Errorf("mainnet should use the etherscan api")
	}
	if _, ok := PolygonZkevmMainnet.Explorer("").(*explorers.OptimisticRollupExplorer); !ok {
		t.Errorf("polygon zkevm should use blockscout")
	}
	e := BaseMainnet.Explorer("key").(*explorers.EtherscanLikeExplorer)
	if e.ChainID != 8453 || e.Domain != etherscanV2 {
		t.Errorf("unexpected explorer %+v", e)
	}
}

func TestLoadCustomNetworks(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("sonic.json", `{"name":"sonic","chain_id":146,"native_token_symbol":"S","native_token_decimal":18,"node_variable_name":"SONIC_NODE"}`)
	write("ink.json", `{"name":"ink","chain_id":57073,"block_explorer_api_url":"https://explorer.inkonchain.com/api/v2"}`)
	write("broken.json", `{"name":`)
	write("clash.json", `{"name":"polygon","chain_id":1234}`)

	r := NewRegistry()
	if err := r.LoadCustomNetworks(dir, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	sonic, err := r.GetNetwork("sonic")
	if err != nil {
		t.Fatalf("sonic should be loaded: %s", err)
	}
	if sonic.GetBlockExplorerAPIURL() != etherscanV2 || sonic.GetBlockExplorerAPIKeyVariableName() != "ETHERSCAN_API_KEY" {
		t.Errorf("etherscan defaults expected, got %s", sonic.GetBlockExplorerAPIURL())
	}
	ink, err := r.GetNetworkByID(57073)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ink.(*GenericOptimismNetwork); !ok {
		t.Errorf("an /api/v2 explorer should be treated as blockscout")
	}
	if n, _ := r.GetNetwork("polygon"); n.GetChainID() != 137 {
		t.Errorf("a clashing custom network must not replace matic")
	}

	raw, err := sonic.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	again, err := NewNetworkFromJSON(raw)
	if err != nil || again.GetChainID() != 146 {
		t.Errorf("round trip failed: %v", err)
	}
}
