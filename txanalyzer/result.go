package txanalyzer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/abiscope/contract"
)

const (
	StatusPending  = "pending"
	StatusDone     = "done"
	StatusReverted = "reverted"
)

// FunctionCall is one decoded call. Calls whose arguments carry a
// destination, a value and call data, as multisig submissions do, have
// the inner call decoded into DecodedFunctionCalls.
type FunctionCall struct {
	Destination common.Address
	Contract    string
	Value       *big.Int
	Call        *contract.DecodedCall
	Error       error

	DecodedFunctionCalls []*FunctionCall
}

type TxResult struct {
	Hash     common.Hash
	Status   string
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	GasUsed  uint64
	TxType   uint8

	// ContractCreated is set for deployments instead of FunctionCall.
	ContractCreated *common.Address
	FunctionCall    *FunctionCall
	Logs            []contract.DecodedLog

	Completed bool
}
