package contract_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tranvictor/abiscope/contract"
)

const contractAddress = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

const tokenABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"setRoutes","inputs":[{"name":"routes","type":"tuple[]","components":[{"name":"pool","type":"address"},{"name":"fee","type":"uint24"}]},{"name":"tag","type":"bytes4"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Memo","inputs":[{"name":"note","type":"string","indexed":true},{"name":"sender","type":"address","indexed":false}]}
]`

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

// fakeResolver resolves text signatures from in memory tables. delay, when
// set, holds each lookup so results settle out of order.
type fakeResolver struct {
	functions map[[4]byte]string
	events    map[common.Hash]string
	delay     func(topic common.Hash) time.Duration
	calls     atomic.Int32
}

func (r *fakeResolver) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	r.calls.Add(1)
	sig, found := r.functions[selector]
	if !found {
		return nil, contract.ErrSignatureNotFound
	}
	return contract.ParseFunctionSignature(sig)
}

func (r *fakeResolver) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	r.calls.Add(1)
	if r.delay != nil {
		time.Sleep(r.delay(topic))
	}
	sig, found := r.events[topic]
	if !found {
		return nil, contract.ErrSignatureNotFound
	}
	return contract.ParseEventSignature(sig, indexed)
}

func newResolver() *fakeResolver {
	return &fakeResolver{
		functions: map[[4]byte]string{
			contract.Selector("approve(address,uint256)"): "approve(address,uint256)",
		},
		events: map[common.Hash]string{
			contract.TopicHash("Deposit(address,uint256)"): "Deposit(address,uint256)",
		},
	}
}

func buildDescriptor(t *testing.T, abiJSON string, resolver contract.SignatureResolver) *contract.Descriptor {
	t.Helper()
	f := contract.NewFactory(contract.WithResolver(resolver))
	s := contract.Snapshot{Address: contractAddress}
	if abiJSON != "" {
		s.ABI = []byte(abiJSON)
	}
	d, err := f.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %s", err)
	}
	return d
}

func packCall(t *testing.T, d *contract.Descriptor, method string, args ...any) []byte {
	t.Helper()
	data, err := d.Interface.ABI().Pack(method, args...)
	if err != nil {
		t.Fatalf("pack %s: %s", method, err)
	}
	return data
}

func packData(t *testing.T, typeNames []string, values ...any) []byte {
	t.Helper()
	args := abi.Arguments{}
	for _, name := range typeNames {
		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			t.Fatalf("type %s: %s", name, err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	data, err := args.Pack(values...)
	if err != nil {
		t.Fatalf("pack data: %s", err)
	}
	return data
}

func transferLog(t *testing.T, amount int64) *types.Log {
	t.Helper()
	return &types.Log{
		Address: common.HexToAddress(contractAddress),
		Topics: []common.Hash{
			common.HexToHash(transferTopic),
			common.BytesToHash(alice.Bytes()),
			common.BytesToHash(bob.Bytes()),
		},
		Data:  packData(t, []string{"uint256"}, big.NewInt(amount)),
		Index: 0,
	}
}

func depositLog(t *testing.T) *types.Log {
	t.Helper()
	return &types.Log{
		Address: common.HexToAddress(contractAddress),
		Topics: []common.Hash{
			contract.TopicHash("Deposit(address,uint256)"),
			common.BytesToHash(alice.Bytes()),
		},
		Data:  packData(t, []string{"uint256"}, big.NewInt(42)),
		Index: 1,
	}
}

func unknownLog() *types.Log {
	return &types.Log{
		Address: common.HexToAddress(contractAddress),
		Topics:  []common.Hash{contract.TopicHash("Sync(uint112,uint112)")},
		Data:    []byte{0x01, 0x02},
		Index:   2,
	}
}

func assertArgument(t *testing.T, arg contract.DecodedArgument, name, typ string, text ...string) {
	t.Helper()
	if arg.Name != name {
		t.Errorf("argument name: want %q, got %q", name, arg.Name)
	}
	if arg.Type != typ {
		t.Errorf("argument %s type: want %q, got %q", name, typ, arg.Type)
	}
	if len(arg.Text) != len(text) {
		t.Fatalf("argument %s: want %d rendered values, got %v", name, len(text), arg.Text)
	}
	for i := range text {
		if arg.Text[i] != text[i] {
			t.Errorf("argument %s value %d: want %q, got %q", name, i, text[i], arg.Text[i])
		}
	}
}

func TestDecodeCallTransfer(t *testing.T) {
	d := buildDescriptor(t, tokenABI, nil)
	data := packCall(t, d, "transfer", bob, big.NewInt(1000))

	call, err := d.DecodeCall(context.Background(), data)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if call.Name != "transfer" || call.Signature != "transfer(address,uint256)" {
		t.Errorf("unexpected call %s / %s", call.Name, call.Signature)
	}
	if call.Source != contract.SourceInterface {
		t.Errorf("want interface source, got %s", call.Source)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("want 2 arguments, got %d", len(call.Arguments))
	}
	assertArgument(t, call.Arguments[0], "to", "address", bob.Hex())
	assertArgument(t, call.Arguments[1], "value", "uint256", "1000")
	if call.Arguments[0].Value.(common.Address) != bob {
		t.Errorf("address value not typed")
	}
	if call.Arguments[1].Value.(*big.Int).Int64() != 1000 {
		t.Errorf("integer value not typed")
	}
}

func TestDecodeCallHex(t *testing.T) {
	d := buildDescriptor(t, tokenABI, nil)
	data := packCall(t, d, "transfer", bob, big.NewInt(1))
	call, err := d.DecodeCallHex(context.Background(), common.Bytes2Hex(data))
	if err != nil {
		t.Fatalf("decode without 0x prefix: %s", err)
	}
	if call.Name != "transfer" {
		t.Errorf("want transfer, got %s", call.Name)
	}
	if _, err := d.DecodeCallHex(context.Background(), "0xzz"); !errors.Is(err, contract.ErrTransactionParseFailed) {
		t.Errorf("want parse failure for non hex, got %v", err)
	}
}

func TestDecodeCallTuples(t *testing.T) {
	d := buildDescriptor(t, tokenABI, nil)
	type route struct {
		Pool common.Address
		Fee  *big.Int
	}
	routes := []route{{Pool: alice, Fee: big.NewInt(500)}, {Pool: bob, Fee: big.NewInt(3000)}}
	data := packCall(t, d, "setRoutes", routes, [4]byte{0xde, 0xad, 0xbe, 0xef})

	call, err := d.DecodeCall(context.Background(), data)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	routesArg := call.Arguments[0]
	if routesArg.Type != "(address,uint24)[]" {
		t.Errorf("unexpected tuple array type %s", routesArg.Type)
	}
	if len(routesArg.Components) != 2 {
		t.Fatalf("want one component per tuple, got %d", len(routesArg.Components))
	}
	second := routesArg.Components[1]
	if second.Name != "routes[1]" || len(second.Components) != 2 {
		t.Fatalf("unexpected second route %+v", second)
	}
	assertArgument(t, second.Components[0], "pool", "address", bob.Hex())
	assertArgument(t, second.Components[1], "fee", "uint24", "3000")
	assertArgument(t, call.Arguments[1], "tag", "bytes4", "0xdeadbeef")
}

func TestDecodeCallFailures(t *testing.T) {
	resolver := newResolver()
	d := buildDescriptor(t, tokenABI, resolver)
	sel := contract.Selector("approve(address,uint256)")
	approve := append(sel[:], make([]byte, 64)...)

	cases := map[string][]byte{
		"short data":       {0xa9, 0x05},
		"unknown":          {0x01, 0x02, 0x03, 0x04},
		"truncated args":   packCall(t, d, "transfer", bob, big.NewInt(1))[:20],
		"resolver ignored": approve,
	}
	for name, data := range cases {
		_, err := d.DecodeCall(context.Background(), data)
		if !errors.Is(err, contract.ErrTransactionParseFailed) {
			t.Errorf("%s: want ErrTransactionParseFailed, got %v", name, err)
		}
		var decodeErr *contract.DecodeError
		if !errors.As(err, &decodeErr) || decodeErr.Reason == "" {
			t.Errorf("%s: want a *DecodeError with a reason, got %T", name, err)
		}
	}
	// a contract with an interface never asks the resolver about calls
	if n := resolver.calls.Load(); n != 0 {
		t.Errorf("resolver asked %d times", n)
	}
}

func TestDecodeCallWithoutInterfaceUsesResolver(t *testing.T) {
	resolver := newResolver()
	d := buildDescriptor(t, "", resolver)
	if d.HasInterface() {
		t.Fatalf("descriptor should have no interface")
	}

	sel := contract.Selector("approve(address,uint256)")
	data := append(sel[:], packData(t, []string{"address", "uint256"}, alice, big.NewInt(7))...)
	call, err := d.DecodeCall(context.Background(), data)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if call.Name != "approve" || call.Source != contract.SourceResolver {
		t.Errorf("want approve via resolver, got %s via %s", call.Name, call.Source)
	}
	assertArgument(t, call.Arguments[0], "", "address", alice.Hex())
	assertArgument(t, call.Arguments[1], "", "uint256", "7")

	_, err = d.DecodeCall(context.Background(), []byte{0xff, 0xff, 0xff, 0xff})
	if !errors.Is(err, contract.ErrTransactionParseFailed) || !errors.Is(err, contract.ErrSignatureNotFound) {
		t.Errorf("want parse failure wrapping not found, got %v", err)
	}
}

func TestDecodeCallWithoutInterfaceOrResolver(t *testing.T) {
	d := buildDescriptor(t, "", nil)
	_, err := d.DecodeCall(context.Background(), []byte{0xa9, 0x05, 0x9c, 0xbb})
	if !errors.Is(err, contract.ErrTransactionParseFailed) || !errors.Is(err, contract.ErrInterfaceUnresolved) {
		t.Errorf("want parse failure wrapping unresolved, got %v", err)
	}
}

func TestDecodeLogsMixedBatchKeepsOrder(t *testing.T) {
	resolver := newResolver()
	// the resolver answers the later slots first
	resolver.delay = func(topic common.Hash) time.Duration {
		if topic == contract.TopicHash("Deposit(address,uint256)") {
			return 30 * time.Millisecond
		}
		return 0
	}
	d := buildDescriptor(t, tokenABI, resolver)
	logs := []*types.Log{transferLog(t, 5), depositLog(t), unknownLog()}
	raw := *logs[2]

	result := d.DecodeLogs(context.Background(), logs)
	if len(result) != 3 {
		t.Fatalf("want 3 results, got %d", len(result))
	}

	first := result[0]
	if first.Name != "Transfer" || first.Source != contract.SourceInterface || first.Err != nil {
		t.Errorf("slot 0: want Transfer from interface, got %q %s %v", first.Name, first.Source, first.Err)
	}
	assertArgument(t, first.Arguments[0], "from", "address", alice.Hex())
	assertArgument(t, first.Arguments[1], "to", "address", bob.Hex())
	assertArgument(t, first.Arguments[2], "value", "uint256", "5")
	if !first.Arguments[0].Indexed || first.Arguments[2].Indexed {
		t.Errorf("slot 0: indexed flags not kept")
	}
	if len(first.Inputs) != 3 {
		t.Errorf("slot 0: inputs should be attached")
	}

	second := result[1]
	if second.Name != "Deposit" || second.Source != contract.SourceResolver {
		t.Errorf("slot 1: want Deposit from resolver, got %q %s %v", second.Name, second.Source, second.Err)
	}
	if second.Log.Index != 1 {
		t.Errorf("slot 1 holds log %d", second.Log.Index)
	}
	assertArgument(t, second.Arguments[1], "", "uint256", "42")

	third := result[2]
	if third.Name != "" || len(third.Arguments) != 0 {
		t.Errorf("slot 2: want passthrough, got %q with %d arguments", third.Name, len(third.Arguments))
	}
	if !errors.Is(third.Err, contract.ErrLogParseFailed) {
		t.Errorf("slot 2: want ErrLogParseFailed, got %v", third.Err)
	}
	if third.Log.Index != raw.Index || string(third.Log.Data) != string(raw.Data) || third.Log.Topics[0] != raw.Topics[0] {
		t.Errorf("slot 2: raw log changed")
	}
}

func TestDecodeLogsMismatchFallsBackToResolver(t *testing.T) {
	resolver := newResolver()
	// Transfer with tokenId indexed, as ERC-721 emits it, doesn't fit the
	// ERC-20 shaped declaration of the interface.
	resolver.events[common.HexToHash(transferTopic)] = "Transfer(address,address,uint256)"
	d := buildDescriptor(t, tokenABI, resolver)

	l := transferLog(t, 0)
	l.Topics = append(l.Topics, common.BigToHash(big.NewInt(77)))
	l.Data = nil

	result := d.DecodeLogs(context.Background(), []*types.Log{l})[0]
	if result.Name != "Transfer" || result.Source != contract.SourceResolver {
		t.Fatalf("want Transfer via resolver, got %q %s %v", result.Name, result.Source, result.Err)
	}
	assertArgument(t, result.Arguments[2], "", "uint256", "77")
	if !result.Arguments[2].Indexed {
		t.Errorf("resolved event should index every topic parameter")
	}
}

func TestDecodeLogsValueTransferFlag(t *testing.T) {
	d := buildDescriptor(t, "", nil)
	single := &types.Log{Topics: []common.Hash{
		contract.TopicHash("TransferSingle(address,address,address,uint256,uint256)"),
	}}
	batch := &types.Log{Topics: []common.Hash{
		contract.TopicHash("TransferBatch(address,address,address,uint256[],uint256[])"),
	}}
	result := d.DecodeLogs(context.Background(), []*types.Log{transferLog(t, 1), single, batch, unknownLog(), {}})

	for i, want := range []bool{true, true, true, false, false} {
		if result[i].IsValueTransfer != want {
			t.Errorf("slot %d: want IsValueTransfer %t", i, want)
		}
		// nothing can be decoded without an interface or resolver
		if result[i].Decoded() {
			t.Errorf("slot %d: should not decode", i)
		}
	}
	if result[0].TopicSelector != [4]byte{0xdd, 0xf2, 0x52, 0xad} {
		t.Errorf("unexpected topic selector %x", result[0].TopicSelector)
	}
}

func TestDecodeLogHashesDynamicIndexedParameters(t *testing.T) {
	d := buildDescriptor(t, tokenABI, nil)
	noteHash := contract.TopicHash("hello")
	l := &types.Log{
		Topics: []common.Hash{contract.TopicHash("Memo(string,address)"), noteHash},
		Data:   packData(t, []string{"address"}, alice),
	}
	result := d.DecodeLog(context.Background(), l)
	if result.Name != "Memo" {
		t.Fatalf("want Memo, got %v", result.Err)
	}
	assertArgument(t, result.Arguments[0], "note", "string", noteHash.Hex())
	assertArgument(t, result.Arguments[1], "sender", "address", alice.Hex())
}

func TestDecodeLogsAttachesToken(t *testing.T) {
	tokens := &fakeTokens{token: &contract.TokenMetadata{Symbol: "DAI", Decimals: 18}}
	f := contract.NewFactory(contract.WithTokens(tokens), contract.WithConcurrency(1))
	d, err := f.Build(context.Background(), contract.Snapshot{
		Address:             contractAddress,
		SupportedInterfaces: []string{"ERC20"},
	})
	if err != nil {
		t.Fatalf("build: %s", err)
	}
	result := d.DecodeLogs(context.Background(), []*types.Log{transferLog(t, 3), unknownLog()})
	for i, r := range result {
		if r.Token == nil || r.Token.Symbol != "DAI" {
			t.Errorf("slot %d: token metadata not attached", i)
		}
	}
	if result[0].Name != "Transfer" {
		t.Errorf("bundled erc20 interface should decode Transfer, got %v", result[0].Err)
	}
}

func TestReturnArguments(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"pair","inputs":[],"outputs":[{"name":"","type":"address"},{"name":"reserve","type":"uint112"}],"stateMutability":"view"}]`))
	if err != nil {
		t.Fatal(err)
	}
	m := parsed.Methods["pair"]
	packed, err := m.Outputs.Pack(bob, big.NewInt(42))
	if err != nil {
		t.Fatal(err)
	}
	values, err := m.Outputs.UnpackValues(packed)
	if err != nil {
		t.Fatal(err)
	}

	args := contract.ReturnArguments(&m, values)
	if len(args) != 2 {
		t.Fatalf("want 2 arguments, got %d", len(args))
	}
	if args[0].Name != "[0]" || args[0].Text[0] != bob.Hex() {
		t.Errorf("unexpected first output %+v", args[0])
	}
	if args[1].Name != "reserve" || args[1].Type != "uint112" || args[1].Text[0] != "42" {
		t.Errorf("unexpected second output %+v", args[1])
	}
}
