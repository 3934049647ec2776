package contract

import (
	"errors"
	"fmt"
)

var (
	// ErrContractDataRequired is the only error that stops Factory.Build.
	ErrContractDataRequired = errors.New("contract data required")
	// ErrInterfaceUnresolved is returned by operations that need a
	// resolved interface, such as Callable. Build never returns it.
	ErrInterfaceUnresolved = errors.New("contract interface unresolved")
	// ErrTransactionParseFailed marks a call data decoding failure.
	ErrTransactionParseFailed = errors.New("transaction parse failed")
	// ErrLogParseFailed marks a failure to decode one log.
	ErrLogParseFailed = errors.New("log parse failed")
	// ErrSignatureNotFound is returned by a SignatureResolver that knows
	// nothing about the requested selector or topic.
	ErrSignatureNotFound = errors.New("signature not found")
)

// DecodeError is the result of a failed DecodeCall or of a failed slot in
// DecodeLogs. Kind is ErrTransactionParseFailed or ErrLogParseFailed and
// both Kind and the underlying Err are matched by errors.Is.
type DecodeError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func callError(reason string, err error) *DecodeError {
	return &DecodeError{Kind: ErrTransactionParseFailed, Reason: reason, Err: err}
}

func logError(reason string, err error) *DecodeError {
	return &DecodeError{Kind: ErrLogParseFailed, Reason: reason, Err: err}
}
