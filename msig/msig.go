// Package msig reads Gnosis multisig wallets through a contract binding.
package msig

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/abiscope/contract"
)

const GnosisMultisigABI string = `[{"constant":true,"inputs":[{"name":"","type":"uint256"}],"name":"owners","outputs":[{"name":"","type":"address"}],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"owner","type":"address"}],"name":"removeOwner","outputs":[],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"transactionId","type":"uint256"}],"name":"revokeConfirmation","outputs":[],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"","type":"address"}],"name":"isOwner","outputs":[{"name":"","type":"bool"}],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"name":"confirmations","outputs":[{"name":"","type":"bool"}],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"calcMaxWithdraw","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"pending","type":"bool"},{"name":"executed","type":"bool"}],"name":"getTransactionCount","outputs":[{"name":"count","type":"uint256"}],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"dailyLimit","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"lastDay","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"owner","type":"address"}],"name":"addOwner","outputs":[],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"transactionId","type":"uint256"}],"name":"isConfirmed","outputs":[{"name":"","type":"bool"}],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"transactionId","type":"uint256"}],"name":"getConfirmationCount","outputs":[{"name":"count","type":"uint256"}],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"","type":"uint256"}],"name":"transactions","outputs":[{"name":"destination","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"executed","type":"bool"}],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"getOwners","outputs":[{"name":"","type":"address[]"}],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"from","type":"uint256"},{"name":"to","type":"uint256"},{"name":"pending","type":"bool"},{"name":"executed","type":"bool"}],"name":"getTransactionIds","outputs":[{"name":"_transactionIds","type":"uint256[]"}],"payable":false,"type":"function"},{"constant":true,"inputs":[{"name":"transactionId","type":"uint256"}],"name":"getConfirmations","outputs":[{"name":"_confirmations","type":"address[]"}],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"transactionCount","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"_required","type":"uint256"}],"name":"changeRequirement","outputs":[],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"transactionId","type":"uint256"}],"name":"confirmTransaction","outputs":[],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"destination","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"name":"submitTransaction","outputs":[{"name":"transactionId","type":"uint256"}],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"_dailyLimit","type":"uint256"}],"name":"changeDailyLimit","outputs":[],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"MAX_OWNER_COUNT","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"required","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"owner","type":"address"},{"name":"newOwner","type":"address"}],"name":"replaceOwner","outputs":[],"payable":false,"type":"function"},{"constant":false,"inputs":[{"name":"transactionId","type":"uint256"}],"name":"executeTransaction","outputs":[],"payable":false,"type":"function"},{"constant":true,"inputs":[],"name":"spentToday","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},{"inputs":[{"name":"_owners","type":"address[]"},{"name":"_required","type":"uint256"},{"name":"_dailyLimit","type":"uint256"}],"type":"constructor"},{"payable":true,"type":"fallback"},{"anonymous":false,"inputs":[{"indexed":false,"name":"dailyLimit","type":"uint256"}],"name":"DailyLimitChange","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":true,"name":"transactionId","type":"uint256"}],"name":"Confirmation","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":true,"name":"transactionId","type":"uint256"}],"name":"Revocation","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"transactionId","type":"uint256"}],"name":"Submission","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"transactionId","type":"uint256"}],"name":"Execution","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"transactionId","type":"uint256"}],"name":"ExecutionFailure","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Deposit","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"owner","type":"address"}],"name":"OwnerAddition","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"name":"owner","type":"address"}],"name":"OwnerRemoval","type":"event"},{"anonymous":false,"inputs":[{"indexed":false,"name":"required","type":"uint256"}],"name":"RequirementChange","type":"event"}]`

// Caller runs constant methods. *contract.Callable implements it.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) ([]any, error)
}

type MultisigContract struct {
	Address common.Address
	caller  Caller
}

// Transaction is one submission stored by the wallet.
type Transaction struct {
	ID            *big.Int
	Destination   common.Address
	Value         *big.Int
	Data          []byte
	Executed      bool
	Confirmations []common.Address
}

// NewMultisigContract binds address to backend with the Gnosis multisig
// interface, whatever interface the explorer has for it.
func NewMultisigContract(ctx context.Context, address common.Address, backend bind.ContractBackend, factory *contract.Factory) (*MultisigContract, error) {
	d, err := factory.Build(ctx, contract.Snapshot{
		Address: address.Hex(),
		ABI:     json.RawMessage(GnosisMultisigABI),
	})
	if err != nil {
		return nil, err
	}
	callable, err := d.Callable(ctx, backend)
	if err != nil {
		return nil, err
	}
	return NewMultisigContractWithCaller(address, callable), nil
}

func NewMultisigContractWithCaller(address common.Address, caller Caller) *MultisigContract {
	return &MultisigContract{Address: address, caller: caller}
}

func (self *MultisigContract) call(ctx context.Context, outputs int, method string, args ...any) ([]any, error) {
	out, err := self.caller.Call(ctx, method, args...)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, self.Address.Hex(), err)
	}
	if len(out) != outputs {
		return nil, fmt.Errorf("%s returned %d values, want %d", method, len(out), outputs)
	}
	return out, nil
}

func (self *MultisigContract) Owners(ctx context.Context) ([]common.Address, error) {
	out, err := self.call(ctx, 1, "getOwners")
	if err != nil {
		return nil, err
	}
	owners, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected getOwners result %T", out[0])
	}
	return owners, nil
}

func (self *MultisigContract) IsConfirmed(ctx context.Context, txid *big.Int) (bool, error) {
	out, err := self.call(ctx, 1, "isConfirmed", txid)
	if err != nil {
		return false, err
	}
	confirmed, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isConfirmed result %T", out[0])
	}
	return confirmed, nil
}

func (self *MultisigContract) NOTransactions(ctx context.Context) (int64, error) {
	return self.uint(ctx, "transactionCount")
}

func (self *MultisigContract) VoteRequirement(ctx context.Context) (int64, error) {
	return self.uint(ctx, "required")
}

func (self *MultisigContract) uint(ctx context.Context, method string) (int64, error) {
	out, err := self.call(ctx, 1, method)
	if err != nil {
		return 0, err
	}
	r, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected %s result %T", method, out[0])
	}
	return r.Int64(), nil
}

func (self *MultisigContract) TransactionInfo(ctx context.Context, txid *big.Int) (*Transaction, error) {
	out, err := self.call(ctx, 4, "transactions", txid)
	if err != nil {
		return nil, err
	}
	result := &Transaction{ID: txid}
	var ok [4]bool
	result.Destination, ok[0] = out[0].(common.Address)
	result.Value, ok[1] = out[1].(*big.Int)
	result.Data, ok[2] = out[2].([]byte)
	result.Executed, ok[3] = out[3].(bool)
	if ok != [4]bool{true, true, true, true} {
		return nil, fmt.Errorf("unexpected transactions result %T %T %T %T", out[0], out[1], out[2], out[3])
	}

	out, err = self.call(ctx, 1, "getConfirmations", txid)
	if err != nil {
		return nil, err
	}
	if result.Confirmations, ok[0] = out[0].([]common.Address); !ok[0] {
		return nil, fmt.Errorf("unexpected getConfirmations result %T", out[0])
	}
	return result, nil
}
