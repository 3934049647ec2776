package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source records which path produced a decoding.
type Source string

const (
	SourceInterface Source = "interface"
	SourceResolver  Source = "resolver"
)

type DecodedCall struct {
	Name      string
	Signature string
	Selector  [4]byte
	Arguments []DecodedArgument
	Inputs    abi.Arguments
	Source    Source
}

// DecodedLog is a raw log plus whatever could be decoded from it. When Name
// is empty the decoding failed, Arguments is empty, Log is the input
// untouched and Err says why.
type DecodedLog struct {
	Log       types.Log
	Name      string
	Signature string
	Arguments []DecodedArgument
	Inputs    abi.Arguments

	TopicSelector   [4]byte
	IsValueTransfer bool
	Token           *TokenMetadata

	Source Source
	Err    error
}

func (l DecodedLog) Decoded() bool {
	return l.Name != ""
}

// DecodeCallHex accepts call data with or without the 0x prefix.
func (d *Descriptor) DecodeCallHex(ctx context.Context, data string) (*DecodedCall, error) {
	if !strings.HasPrefix(data, "0x") && !strings.HasPrefix(data, "0X") {
		data = "0x" + data
	}
	raw, err := hexutil.Decode(data)
	if err != nil {
		return nil, callError("call data is not hex", err)
	}
	return d.DecodeCall(ctx, raw)
}

// DecodeCall decodes call data against the contract's interface. A
// contract without an interface asks the SignatureResolver instead. A
// selector the interface doesn't know is a failure, there is no resolver
// fallback in that case.
func (d *Descriptor) DecodeCall(ctx context.Context, data []byte) (*DecodedCall, error) {
	call, err := d.decodeCall(ctx, data)
	source := Source("")
	if call != nil {
		source = call.Source
	}
	d.metrics.observe("call", source, err)
	if err != nil {
		d.log().Debug("couldn't decode call",
			zap.String("contract", d.Address.Hex()),
			zap.String("data", hexutil.Encode(data)),
			zap.Error(err),
		)
		return nil, err
	}
	return call, nil
}

func (d *Descriptor) decodeCall(ctx context.Context, data []byte) (*DecodedCall, error) {
	if len(data) < 4 {
		return nil, callError(fmt.Sprintf("call data has %d bytes, need at least 4", len(data)), nil)
	}
	var selector [4]byte
	copy(selector[:], data[:4])

	if d.HasInterface() {
		m, found := d.Interface.Method(selector)
		if !found {
			return nil, callError(fmt.Sprintf("no function with selector %#x", selector), nil)
		}
		return unpackCall(m, selector, data, SourceInterface)
	}

	if d.resolver == nil {
		return nil, callError("interface unresolved and no signature resolver", ErrInterfaceUnresolved)
	}
	iface, err := d.resolver.ResolveFunction(ctx, selector)
	if err != nil {
		return nil, callError(fmt.Sprintf("resolving selector %#x", selector), err)
	}
	m, found := iface.Method(selector)
	if !found {
		return nil, callError(fmt.Sprintf("resolved interface has no function %#x", selector), ErrSignatureNotFound)
	}
	return unpackCall(m, selector, data, SourceResolver)
}

func unpackCall(m *abi.Method, selector [4]byte, data []byte, source Source) (*DecodedCall, error) {
	values, err := m.Inputs.UnpackValues(data[4:])
	if err != nil {
		return nil, callError(fmt.Sprintf("unpacking arguments of %s", m.Sig), err)
	}
	call := &DecodedCall{
		Name:      m.RawName,
		Signature: m.Sig,
		Selector:  selector,
		Arguments: make([]DecodedArgument, 0, len(m.Inputs)),
		Inputs:    m.Inputs,
		Source:    source,
	}
	for i, input := range m.Inputs {
		call.Arguments = append(call.Arguments, newDecodedArgument(input.Name, input.Type, false, values[i]))
	}
	return call, nil
}

// DecodeLogs decodes every log concurrently. Slot i of the result always
// belongs to logs[i] and a failed slot never affects its siblings. The
// call returns once every slot has settled.
func (d *Descriptor) DecodeLogs(ctx context.Context, logs []*types.Log) []DecodedLog {
	result := make([]DecodedLog, len(logs))
	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i, l := range logs {
		g.Go(func() error {
			result[i] = d.DecodeLog(ctx, l)
			return nil
		})
	}
	g.Wait()
	return result
}

// DecodeLog decodes a single log. A log the interface can't decode, for
// events emitted through a proxy or an inherited contract, is retried with
// the SignatureResolver.
func (d *Descriptor) DecodeLog(ctx context.Context, l *types.Log) DecodedLog {
	result := DecodedLog{Token: d.Token}
	if l == nil {
		result.Err = logError("nil log", nil)
		d.metrics.observe("log", "", result.Err)
		return result
	}
	result.Log = *l
	if len(l.Topics) == 0 {
		result.Err = logError("log has no topics", nil)
		d.metrics.observe("log", "", result.Err)
		return result
	}
	result.TopicSelector = topicSelector(l.Topics[0])
	result.IsValueTransfer = IsTransferTopic(l.Topics[0])

	if d.HasInterface() {
		if ev, found := d.Interface.Event(l.Topics[0]); found {
			args, err := unpackLog(ev, l)
			if err == nil {
				result.setDecoded(ev, args, SourceInterface)
				d.metrics.observe("log", SourceInterface, nil)
				return result
			}
			d.log().Debug("interface couldn't decode log, trying resolver",
				zap.String("contract", d.Address.Hex()),
				zap.String("event", ev.Sig),
				zap.Error(err),
			)
		}
	}

	if err := d.decodeEvent(ctx, l, &result); err != nil {
		result.Err = err
		d.log().Debug("couldn't decode log",
			zap.String("contract", d.Address.Hex()),
			zap.String("topic", l.Topics[0].Hex()),
			zap.Uint("index", l.Index),
			zap.Error(err),
		)
	}
	d.metrics.observe("log", result.Source, result.Err)
	return result
}

func (d *Descriptor) decodeEvent(ctx context.Context, l *types.Log, result *DecodedLog) error {
	if d.resolver == nil {
		return logError("no event matched and no signature resolver", ErrInterfaceUnresolved)
	}
	iface, err := d.resolver.ResolveEvent(ctx, l.Topics[0], len(l.Topics)-1)
	if err != nil {
		return logError(fmt.Sprintf("resolving topic %s", l.Topics[0].Hex()), err)
	}
	ev, found := iface.Event(l.Topics[0])
	if !found {
		return logError(fmt.Sprintf("resolved interface has no event %s", l.Topics[0].Hex()), ErrSignatureNotFound)
	}
	args, err := unpackLog(ev, l)
	if err != nil {
		return logError(fmt.Sprintf("unpacking %s", ev.Sig), err)
	}
	result.setDecoded(ev, args, SourceResolver)
	return nil
}

func (l *DecodedLog) setDecoded(ev *abi.Event, args []DecodedArgument, source Source) {
	l.Name = ev.RawName
	l.Signature = ev.Sig
	l.Arguments = args
	l.Inputs = ev.Inputs
	l.Source = source
}

// unpackLog decodes indexed parameters from topics[1:] and the rest from
// the data blob, returning them in declaration order.
func unpackLog(ev *abi.Event, l *types.Log) ([]DecodedArgument, error) {
	indexed, nonIndexed := SplitEventArguments(ev.Inputs)
	if len(indexed) != len(l.Topics)-1 {
		return nil, fmt.Errorf("%s has %d indexed parameters, log has %d topics", ev.Sig, len(indexed), len(l.Topics))
	}
	values, err := nonIndexed.UnpackValues(l.Data)
	if err != nil {
		return nil, err
	}

	args := make([]DecodedArgument, 0, len(ev.Inputs))
	topic, data := 1, 0
	for _, input := range ev.Inputs {
		if !input.Indexed {
			args = append(args, newDecodedArgument(input.Name, input.Type, false, values[data]))
			data++
			continue
		}
		arg, err := unpackTopic(input, l.Topics[topic])
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		topic++
	}
	return args, nil
}

func unpackTopic(input abi.Argument, topic common.Hash) (DecodedArgument, error) {
	switch input.Type.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return hashedArgument(input.Name, input.Type, topic), nil
	}
	out := map[string]any{}
	if err := abi.ParseTopicsIntoMap(out, abi.Arguments{input}, []common.Hash{topic}); err != nil {
		return DecodedArgument{}, fmt.Errorf("indexed parameter %q: %w", input.Name, err)
	}
	return newDecodedArgument(input.Name, input.Type, true, out[input.Name]), nil
}

// SplitEventArguments separates indexed from non indexed parameters,
// keeping the relative order of each group.
func SplitEventArguments(args abi.Arguments) (indexed abi.Arguments, nonIndexed abi.Arguments) {
	indexed = abi.Arguments{}
	nonIndexed = abi.Arguments{}
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}
	return indexed, nonIndexed
}

func (d *Descriptor) log() *zap.Logger {
	if d.logger == nil {
		return zap.NewNop()
	}
	return d.logger
}

// IsDecodeError reports whether err is a decoding failure rather than
// something like a cancelled context.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
