// Package sigdb resolves 4 byte selectors and event topics to text
// signatures for contracts whose interface is unknown.
package sigdb

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/contract"
)

type Kind string

const (
	Function Kind = "function"
	Event    Kind = "event"
)

// Signature is a text signature and the hash it is looked up by: the 4
// byte selector for functions, the full topic for events.
type Signature struct {
	Kind Kind
	Hash string
	Text string
}

func NewSignature(kind Kind, text string) Signature {
	text = strings.TrimSpace(text)
	s := Signature{Kind: kind, Text: text}
	if kind == Function {
		sel := contract.Selector(text)
		s.Hash = hexutil.Encode(sel[:])
	} else {
		s.Hash = contract.TopicHash(text).Hex()
	}
	return s
}

func selectorHex(selector [4]byte) string {
	return hexutil.Encode(selector[:])
}

func topicHex(topic common.Hash) string {
	return topic.Hex()
}

// interfaceFromText builds the single entry interface for the first
// candidate that parses and fits. For events the first indexed parameters
// are marked indexed.
func interfaceFromText(kind Kind, candidates []string, indexed int) (*contract.Interface, error) {
	for _, text := range candidates {
		var (
			iface *contract.Interface
			err   error
		)
		if kind == Function {
			iface, err = contract.ParseFunctionSignature(text)
		} else {
			iface, err = contract.ParseEventSignature(text, indexed)
		}
		if err == nil {
			return iface, nil
		}
	}
	return nil, contract.ErrSignatureNotFound
}

// Recorder receives every signature a resolver successfully returns. Index
// implements it.
type Recorder interface {
	Add(signatures ...Signature) error
}

// Recording wraps a resolver and feeds its hits to a Recorder. A failed
// write never fails the lookup, it is logged at debug on Logger.
type Recording struct {
	Resolver contract.SignatureResolver
	Recorder Recorder
	Logger   *zap.Logger
}

func (r Recording) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	iface, err := r.Resolver.ResolveFunction(ctx, selector)
	if err == nil {
		r.record(Function, iface)
	}
	return iface, err
}

func (r Recording) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	iface, err := r.Resolver.ResolveEvent(ctx, topic, indexed)
	if err == nil {
		r.record(Event, iface)
	}
	return iface, err
}

func (r Recording) record(kind Kind, iface *contract.Interface) {
	sigs := []Signature{}
	for _, e := range iface.Entries() {
		sigs = append(sigs, NewSignature(kind, e.Signature()))
	}
	if err := r.Recorder.Add(sigs...); err != nil && r.Logger != nil {
		r.Logger.Debug("couldn't record signatures",
			zap.String("kind", string(kind)),
			zap.Int("count", len(sigs)),
			zap.Error(err),
		)
	}
}

// LookupMetrics counts resolver lookups. A nil *LookupMetrics records
// nothing.
type LookupMetrics struct {
	lookups *prometheus.CounterVec
}

func NewLookupMetrics(reg prometheus.Registerer) *LookupMetrics {
	m := &LookupMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abiscope",
			Name:      "signature_lookup_total",
			Help:      "Signature lookups by resolver, kind and outcome.",
		}, []string{"resolver", "kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups)
	}
	return m
}

func (m *LookupMetrics) observe(resolver string, kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(resolver, string(kind), outcome).Inc()
}
