package sigdb

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/abiscope/contract"
)

// Chain asks each resolver in order and returns the first hit. Resolver
// errors other than not found don't stop the chain. When nothing matched
// it is a miss only if every resolver said not found, otherwise the
// failures are returned so callers don't take an outage for a miss.
type Chain []contract.SignatureResolver

func (c Chain) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	return c.resolve(func(r contract.SignatureResolver) (*contract.Interface, error) {
		return r.ResolveFunction(ctx, selector)
	})
}

func (c Chain) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	return c.resolve(func(r contract.SignatureResolver) (*contract.Interface, error) {
		return r.ResolveEvent(ctx, topic, indexed)
	})
}

func (c Chain) resolve(lookup func(contract.SignatureResolver) (*contract.Interface, error)) (*contract.Interface, error) {
	var errs []error
	for _, r := range c {
		iface, err := lookup(r)
		if err == nil {
			return iface, nil
		}
		if !errors.Is(err, contract.ErrSignatureNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, contract.ErrSignatureNotFound
}
