package contract_test

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/tranvictor/abiscope/contract"
)

const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

func TestSelector(t *testing.T) {
	sel := contract.Selector("transfer(address,uint256)")
	if got := hex.EncodeToString(sel[:]); got != "a9059cbb" {
		t.Errorf("want a9059cbb, got %s", got)
	}
	if got := contract.TopicHash("Transfer(address,address,uint256)").Hex(); got != transferTopic {
		t.Errorf("want %s, got %s", transferTopic, got)
	}
}

func TestCanonicalSignatureFlattensTuples(t *testing.T) {
	params := []abi.ArgumentMarshaling{
		{Name: "to", Type: "address"},
		{Name: "orders", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "amount", Type: "uint256"},
			{Name: "path", Type: "tuple", Components: []abi.ArgumentMarshaling{
				{Name: "a", Type: "address"},
				{Name: "b", Type: "bytes32[2]"},
			}},
		}},
	}
	want := "swap(address,(uint256,(address,bytes32[2]))[])"
	if got := contract.CanonicalSignature("swap", params); got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}

func TestParseInterfaceAcceptsSerializedString(t *testing.T) {
	raw := `[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}]`
	serialized, _ := json.Marshal(raw)

	for _, payload := range [][]byte{[]byte(raw), serialized} {
		iface, err := contract.ParseInterface(payload)
		if err != nil {
			t.Fatalf("parse: %s", err)
		}
		m, found := iface.Method(contract.Selector("transfer(address,uint256)"))
		if !found {
			t.Fatalf("transfer not indexed")
		}
		if m.RawName != "transfer" || len(m.Inputs) != 2 {
			t.Errorf("unexpected method %s", m.Sig)
		}
	}
}

func TestParseInterfaceErrors(t *testing.T) {
	if _, err := contract.ParseInterface([]byte("  ")); !errors.Is(err, contract.ErrEmptyABI) {
		t.Errorf("want ErrEmptyABI, got %v", err)
	}
	if _, err := contract.ParseInterface([]byte(`{"not": "an array"}`)); err == nil {
		t.Errorf("want error for object payload")
	}
	bad := `[{"type":"function","name":"f","inputs":[{"name":"x","type":"uint257"}]}]`
	if _, err := contract.ParseInterface([]byte(bad)); err == nil {
		t.Errorf("want error for unknown type")
	}
}

func TestNewInterfaceIndices(t *testing.T) {
	raw := `[
		{"type":"constructor","inputs":[{"name":"owner","type":"address"}],"stateMutability":"nonpayable"},
		{"type":"fallback","stateMutability":"payable"},
		{"type":"error","name":"Unauthorized","inputs":[]},
		{"name":"legacy","inputs":[],"outputs":[],"constant":true},
		{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
	]`
	iface, err := contract.ParseInterface([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	if got := len(iface.Entries()); got != 4 {
		t.Errorf("want 4 entries without the error entry, got %d", got)
	}
	m, found := iface.Method(contract.Selector("legacy()"))
	if !found {
		t.Fatalf("entry without type should be a function")
	}
	if !m.IsConstant() {
		t.Errorf("legacy constant flag should make the method view, got %s", m.StateMutability)
	}
	ev, found := iface.Event(contract.TopicHash("Transfer(address,address,uint256)"))
	if !found || ev.RawName != "Transfer" {
		t.Errorf("Transfer not indexed by topic")
	}
	if len(iface.ABI().Constructor.Inputs) != 1 {
		t.Errorf("constructor inputs not kept")
	}
}

func TestNewInterfaceLastDeclaredWins(t *testing.T) {
	entries := []contract.Entry{
		{Kind: contract.KindFunction, Name: "set", Inputs: []abi.ArgumentMarshaling{{Name: "first", Type: "uint256"}}},
		{Kind: contract.KindFunction, Name: "set", Inputs: []abi.ArgumentMarshaling{{Name: "second", Type: "uint256"}}},
	}
	iface, err := contract.NewInterface(entries)
	if err != nil {
		t.Fatalf("new interface: %s", err)
	}
	m, _ := iface.Method(contract.Selector("set(uint256)"))
	if m.Inputs[0].Name != "second" {
		t.Errorf("want the later declaration, got input %q", m.Inputs[0].Name)
	}
}

func TestInterfaceSearch(t *testing.T) {
	iface, _ := contract.StandardInterface(contract.StandardERC20)
	hits := iface.Search("trnsfrm")
	if len(hits) == 0 || hits[0].Name != "transferFrom" {
		t.Fatalf("want transferFrom first, got %v", hits)
	}
	if got := len(iface.Search("")); got != len(iface.Entries()) {
		t.Errorf("empty query should return every entry, got %d", got)
	}
}

func TestParseFunctionSignature(t *testing.T) {
	iface, err := contract.ParseFunctionSignature("swap(address,(uint256,address[])[],bool)")
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	m, found := iface.Method(contract.Selector("swap(address,(uint256,address[])[],bool)"))
	if !found {
		t.Fatalf("selector of the text signature not indexed")
	}
	if m.Sig != "swap(address,(uint256,address[])[],bool)" {
		t.Errorf("unexpected sig %s", m.Sig)
	}
	if got := m.Inputs[1].Type.Elem.TupleRawNames; got[0] != "field0" || got[1] != "field1" {
		t.Errorf("want field0/field1 component names, got %v", got)
	}

	for _, bad := range []string{"", "transfer", "transfer(address", "1abc()", "f((uint256)", "f(uint256,)"} {
		if _, err := contract.ParseFunctionSignature(bad); err == nil {
			t.Errorf("ParseFunctionSignature(%q): want error", bad)
		}
	}
}

func TestParseEventSignature(t *testing.T) {
	iface, err := contract.ParseEventSignature("Transfer(address,address,uint256)", 2)
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	ev, found := iface.Event(contract.TopicHash("Transfer(address,address,uint256)"))
	if !found {
		t.Fatalf("event not indexed")
	}
	indexed, nonIndexed := contract.SplitEventArguments(ev.Inputs)
	if len(indexed) != 2 || len(nonIndexed) != 1 {
		t.Errorf("want 2 indexed and 1 data parameter, got %d and %d", len(indexed), len(nonIndexed))
	}
	if _, err := contract.ParseEventSignature("Transfer(address,address,uint256)", 4); err == nil {
		t.Errorf("want error when indexing more parameters than declared")
	}
}
