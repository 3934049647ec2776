package txanalyzer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tranvictor/abiscope/contract"
)

const (
	defaultConcurrency = 8
	// multisig inside multisig is rare, deeper nesting is not followed
	maxCallDepth = 3
)

type TxAnalyzer struct {
	ac          *AnalysisContext
	logger      *zap.Logger
	concurrency int
}

func NewTxAnalyzer(ac *AnalysisContext, logger *zap.Logger) *TxAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxAnalyzer{ac: ac, logger: logger, concurrency: defaultConcurrency}
}

// Analyze decodes a whole transaction: its call data against the called
// contract and every receipt log against the contract that emitted it.
// A nil receipt means the transaction is still pending.
func (a *TxAnalyzer) Analyze(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) *TxResult {
	result := &TxResult{
		Hash:     tx.Hash(),
		Status:   StatusPending,
		To:       tx.To(),
		Value:    tx.Value(),
		Nonce:    tx.Nonce(),
		GasPrice: tx.GasPrice(),
		GasLimit: tx.Gas(),
		TxType:   tx.Type(),
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		result.From = from
	} else {
		a.logger.Debug("couldn't recover sender", zap.Stringer("tx", tx.Hash()), zap.Error(err))
	}

	if tx.To() != nil {
		result.FunctionCall = a.AnalyzeFunctionCall(ctx, tx.Value(), *tx.To(), tx.Data())
	}

	if receipt == nil {
		return result
	}
	result.Status = StatusReverted
	if receipt.Status == types.ReceiptStatusSuccessful {
		result.Status = StatusDone
	}
	result.GasUsed = receipt.GasUsed
	if tx.To() == nil {
		created := receipt.ContractAddress
		result.ContractCreated = &created
	}
	result.Logs = a.AnalyzeLogs(ctx, receipt.Logs)
	result.Completed = true
	return result
}

func (a *TxAnalyzer) AnalyzeFunctionCall(ctx context.Context, value *big.Int, destination common.Address, data []byte) *FunctionCall {
	return a.analyzeFunctionCall(ctx, value, destination, data, 0)
}

func (a *TxAnalyzer) analyzeFunctionCall(ctx context.Context, value *big.Int, destination common.Address, data []byte, depth int) *FunctionCall {
	fc := &FunctionCall{Destination: destination, Value: value}
	// plain value transfer
	if len(data) == 0 {
		return fc
	}
	d, err := a.ac.Descriptor(ctx, destination)
	if err != nil {
		fc.Error = err
		return fc
	}
	fc.Contract = d.Name
	fc.Call, fc.Error = d.DecodeCall(ctx, data)
	if fc.Error != nil || depth >= maxCallDepth {
		return fc
	}

	destinations, values, datas := TxDatasFromArguments(fc.Call.Arguments)
	for i := range datas {
		fc.DecodedFunctionCalls = append(fc.DecodedFunctionCalls,
			a.analyzeFunctionCall(ctx, values[i], destinations[i], datas[i], depth+1))
	}
	return fc
}

// AnalyzeLogs decodes logs in receipt order. Descriptors of the distinct
// emitters are built concurrently first.
func (a *TxAnalyzer) AnalyzeLogs(ctx context.Context, logs []*types.Log) []contract.DecodedLog {
	emitters := map[common.Address]*contract.Descriptor{}
	for _, l := range logs {
		if l != nil {
			emitters[l.Address] = nil
		}
	}
	addresses := make([]common.Address, 0, len(emitters))
	for addr := range emitters {
		addresses = append(addresses, addr)
	}
	built := make([]*contract.Descriptor, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			d, err := a.ac.Descriptor(gctx, addr)
			if err != nil {
				a.logger.Warn("couldn't build emitter descriptor", zap.Stringer("address", addr), zap.Error(err))
				return nil
			}
			built[i] = d
			return nil
		})
	}
	g.Wait()
	for i, addr := range addresses {
		emitters[addr] = built[i]
	}

	result := make([]contract.DecodedLog, len(logs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, l := range logs {
		g.Go(func() error {
			if l == nil {
				result[i] = contract.DecodedLog{Err: &contract.DecodeError{
					Kind:   contract.ErrLogParseFailed,
					Reason: "nil log",
				}}
				return nil
			}
			d := emitters[l.Address]
			if d == nil {
				result[i] = contract.DecodedLog{Log: *l, Err: &contract.DecodeError{
					Kind:   contract.ErrLogParseFailed,
					Reason: fmt.Sprintf("no descriptor for emitter %s", l.Address.Hex()),
					Err:    contract.ErrInterfaceUnresolved,
				}}
				return nil
			}
			result[i] = d.DecodeLog(gctx, l)
			return nil
		})
	}
	g.Wait()
	return result
}

// TxDatasFromArguments pairs the address, uint256 and bytes arguments of
// a call the way multisig wallets pass an inner transaction. Nothing is
// returned unless the three kinds appear the same number of times.
func TxDatasFromArguments(args []contract.DecodedArgument) (destinations []common.Address, values []*big.Int, datas [][]byte) {
	for _, arg := range args {
		switch arg.Type {
		case "address":
			if v, ok := arg.Value.(common.Address); ok {
				destinations = append(destinations, v)
			}
		case "uint256":
			if v, ok := arg.Value.(*big.Int); ok {
				values = append(values, v)
			}
		case "bytes":
			if v, ok := arg.Value.([]byte); ok {
				datas = append(datas, v)
			}
		}
	}
	if len(datas) == 0 || len(destinations) != len(datas) || len(values) != len(datas) {
		return nil, nil, nil
	}
	return destinations, values, datas
}

// LooksLikeTxData reports whether args carry an inner transaction.
func LooksLikeTxData(args []contract.DecodedArgument) bool {
	_, _, datas := TxDatasFromArguments(args)
	return len(datas) > 0
}
