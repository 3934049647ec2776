package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrReadOnly = errors.New("binding has no signer")

// Callable is a live binding of a Descriptor to a node.
type Callable struct {
	Address common.Address

	contract *bind.BoundContract
	opts     *bind.TransactOpts
}

// Callable binds the contract's interface to backend. Transaction options
// come from the factory's SignerProvider; without one the binding can
// only be used for calls.
func (d *Descriptor) Callable(ctx context.Context, backend bind.ContractBackend) (*Callable, error) {
	if !d.HasInterface() {
		return nil, fmt.Errorf("binding %s: %w", d.Address.Hex(), ErrInterfaceUnresolved)
	}
	c := &Callable{
		Address:  d.Address,
		contract: bind.NewBoundContract(d.Address, d.Interface.ABI(), backend, backend, backend),
	}
	if d.signer == nil {
		return c, nil
	}
	opts, err := d.signer.TransactOpts(ctx, d.Address)
	if err != nil {
		return nil, fmt.Errorf("getting signer for %s: %w", d.Address.Hex(), err)
	}
	c.opts = opts
	return c, nil
}

func (c *Callable) ReadOnly() bool {
	return c.opts == nil
}

// Call runs a constant method. method is the go-ethereum method name, which
// for overloaded functions carries a numeric suffix.
func (c *Callable) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Callable) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if c.opts == nil {
		return nil, ErrReadOnly
	}
	opts := *c.opts
	opts.Context = ctx
	return c.contract.Transact(&opts, method, args...)
}
