package txanalyzer

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tranvictor/abiscope/contract"
)

const (
	tokenABI    = `[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false}]`
	multisigABI = `[{"type":"function","name":"submitTransaction","inputs":[{"name":"destination","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"transactionId","type":"uint256"}],"stateMutability":"nonpayable"}]`
)

var (
	token    = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	multisig = common.HexToAddress("0x1111111111111111111111111111111111111111")
	stranger = common.HexToAddress("0x2222222222222222222222222222222222222222")
	bob      = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeSource struct {
	snapshots map[common.Address]contract.Snapshot
	calls     atomic.Int32
	err       error
}

func (s *fakeSource) Snapshot(ctx context.Context, address string) (contract.Snapshot, error) {
	s.calls.Add(1)
	if s.err != nil {
		return contract.Snapshot{}, s.err
	}
	snapshot, found := s.snapshots[common.HexToAddress(address)]
	if !found {
		return contract.Snapshot{Address: address}, nil
	}
	return snapshot, nil
}

func newSource() *fakeSource {
	return &fakeSource{snapshots: map[common.Address]contract.Snapshot{
		token:    {Address: token.Hex(), Name: "Dai", ABI: []byte(tokenABI)},
		multisig: {Address: multisig.Hex(), Name: "MultiSigWallet", ABI: []byte(multisigABI)},
	}}
}

func pack(t *testing.T, abiJSON string, method string, args ...any) []byte {
	t.Helper()
	iface, err := contract.ParseInterface([]byte(abiJSON))
	if err != nil {
		t.Fatalf("parse abi: %s", err)
	}
	a := iface.ABI()
	data, err := a.Pack(method, args...)
	if err != nil {
		t.Fatalf("pack %s: %s", method, err)
	}
	return data
}

func transferLog(emitter common.Address, index uint) *types.Log {
	return &types.Log{
		Address: emitter,
		Topics: []common.Hash{
			contract.TopicHash("Transfer(address,address,uint256)"),
			common.BytesToHash(multisig.Bytes()),
			common.BytesToHash(bob.Bytes()),
		},
		Data:  common.LeftPadBytes(big.NewInt(5).Bytes(), 32),
		Index: index,
	}
}

func signedTx(t *testing.T, to *common.Address, data []byte) (*types.Transaction, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	tx := types.MustSignNewTx(key, types.LatestSignerForChainID(big.NewInt(1)), &types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     3,
		To:        to,
		Value:     big.NewInt(0),
		Gas:       200000,
		GasFeeCap: big.NewInt(30e9),
		GasTipCap: big.NewInt(1e9),
		Data:      data,
	})
	return tx, crypto.PubkeyToAddress(key.PublicKey)
}

func newAnalyzer(sources ...SnapshotSource) *TxAnalyzer {
	return NewTxAnalyzer(NewAnalysisContext(contract.NewFactory(), nil, sources...), nil)
}

func TestAnalyzeMultisigSubmission(t *testing.T) {
	inner := pack(t, tokenABI, "transfer", bob, big.NewInt(5))
	data := pack(t, multisigABI, "submitTransaction", token, big.NewInt(0), inner)
	tx, sender := signedTx(t, &multisig, data)
	receipt := &types.Receipt{
		Status:  types.ReceiptStatusSuccessful,
		GasUsed: 84000,
		Logs:    []*types.Log{transferLog(token, 0), transferLog(stranger, 1), transferLog(token, 2)},
	}

	source := newSource()
	result := newAnalyzer(source).Analyze(context.Background(), tx, receipt)

	if result.From != sender {
		t.Errorf("want sender %s, got %s", sender.Hex(), result.From.Hex())
	}
	if result.Status != StatusDone || !result.Completed || result.GasUsed != 84000 {
		t.Errorf("unexpected status %+v", result)
	}

	fc := result.FunctionCall
	if fc.Error != nil || fc.Call.Name != "submitTransaction" || fc.Contract != "MultiSigWallet" {
		t.Fatalf("unexpected outer call %+v", fc)
	}
	if len(fc.DecodedFunctionCalls) != 1 {
		t.Fatalf("want 1 inner call, got %d", len(fc.DecodedFunctionCalls))
	}
	innerCall := fc.DecodedFunctionCalls[0]
	if innerCall.Destination != token || innerCall.Contract != "Dai" || innerCall.Call.Name != "transfer" {
		t.Errorf("unexpected inner call %+v", innerCall)
	}

	if len(result.Logs) != 3 {
		t.Fatalf("want 3 logs, got %d", len(result.Logs))
	}
	for i, l := range result.Logs {
		if l.Log.Index != uint(i) {
			t.Errorf("log %d out of receipt order", i)
		}
	}
	if !result.Logs[0].Decoded() || result.Logs[0].Name != "Transfer" || !result.Logs[2].Decoded() {
		t.Errorf("token logs should decode")
	}
	if result.Logs[1].Decoded() || result.Logs[1].Err == nil {
		t.Errorf("log of an unknown emitter without resolver should fail")
	}

	// multisig, token, stranger
	if got := source.calls.Load(); got != 3 {
		t.Errorf("want one snapshot per address, got %d", got)
	}
}

func TestAnalyzePendingAndCreation(t *testing.T) {
	tx, _ := signedTx(t, nil, []byte{0x60, 0x80})
	a := newAnalyzer(newSource())

	pending := a.Analyze(context.Background(), tx, nil)
	if pending.Status != StatusPending || pending.Completed || pending.FunctionCall != nil {
		t.Errorf("unexpected pending result %+v", pending)
	}

	created := common.HexToAddress("0x4444444444444444444444444444444444444444")
	mined := a.Analyze(context.Background(), tx, &types.Receipt{Status: types.ReceiptStatusFailed, ContractAddress: created})
	if mined.Status != StatusReverted || mined.ContractCreated == nil || *mined.ContractCreated != created {
		t.Errorf("unexpected creation result %+v", mined)
	}
}

func TestAnalyzeLogsMarksNilSlots(t *testing.T) {
	a := newAnalyzer(newSource())
	logs := a.AnalyzeLogs(context.Background(), []*types.Log{transferLog(token, 0), nil})
	if len(logs) != 2 {
		t.Fatalf("want 2 slots, got %d", len(logs))
	}
	if !logs[0].Decoded() || logs[0].Name != "Transfer" {
		t.Errorf("first log should decode, got %+v", logs[0])
	}
	var decodeErr *contract.DecodeError
	if !errors.As(logs[1].Err, &decodeErr) || !errors.Is(logs[1].Err, contract.ErrLogParseFailed) {
		t.Errorf("nil slot should carry a log parse failure, got %v", logs[1].Err)
	}
}

func TestSourcesInOrder(t *testing.T) {
	broken := &fakeSource{err: errors.New("db down")}
	source := newSource()
	ac := NewAnalysisContext(contract.NewFactory(), nil, broken, source)

	d, err := ac.Descriptor(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !d.HasInterface() || d.Name != "Dai" {
		t.Errorf("want the interface from the second source, got %s", d)
	}
	again, _ := ac.Descriptor(context.Background(), token)
	if again != d || source.calls.Load() != 1 {
		t.Errorf("descriptor should be cached")
	}

	pinned, err := contract.NewFactory().Build(context.Background(), contract.Snapshot{Address: stranger.Hex(), Name: "Local"})
	if err != nil {
		t.Fatal(err)
	}
	ac.Register(pinned)
	if got, _ := ac.Descriptor(context.Background(), stranger); got != pinned {
		t.Errorf("registered descriptor should win")
	}
}

func TestTxDatasFromArguments(t *testing.T) {
	args := []contract.DecodedArgument{
		{Type: "address", Value: token},
		{Type: "uint256", Value: big.NewInt(1)},
		{Type: "bytes", Value: []byte{1, 2, 3, 4}},
	}
	if !LooksLikeTxData(args) {
		t.Errorf("destination, value and data should look like tx data")
	}
	if LooksLikeTxData(args[:2]) {
		t.Errorf("no data, no tx")
	}
	uneven := append(args, contract.DecodedArgument{Type: "address", Value: bob})
	if LooksLikeTxData(uneven) {
		t.Errorf("uneven arguments should not pair")
	}
}
