package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sahilm/fuzzy"
)

type EntryKind string

const (
	KindFunction    EntryKind = "function"
	KindEvent       EntryKind = "event"
	KindConstructor EntryKind = "constructor"
	KindFallback    EntryKind = "fallback"
	KindReceive     EntryKind = "receive"
)

// Entry is one item of a raw ABI description. Inputs and Outputs use
// go-ethereum's marshaling form so nested tuple components and the indexed
// flag of event parameters are kept.
type Entry struct {
	Kind            EntryKind                `json:"type"`
	Name            string                   `json:"name"`
	Inputs          []abi.ArgumentMarshaling `json:"inputs"`
	Outputs         []abi.ArgumentMarshaling `json:"outputs,omitempty"`
	StateMutability string                   `json:"stateMutability,omitempty"`
	Anonymous       bool                     `json:"anonymous,omitempty"`

	// legacy solc fields, only read to derive StateMutability
	Constant bool `json:"constant,omitempty"`
	Payable  bool `json:"payable,omitempty"`
}

// Signature returns the canonical signature used for hashing.
func (e Entry) Signature() string {
	return CanonicalSignature(e.Name, e.Inputs)
}

func (e Entry) mutability() string {
	if e.StateMutability != "" {
		return e.StateMutability
	}
	switch {
	case e.Constant:
		return "view"
	case e.Payable:
		return "payable"
	}
	return "nonpayable"
}

// Interface is an immutable, resolved ABI. The selector and topic indices
// are built once by NewInterface and shared by every decode call.
type Interface struct {
	entries []Entry
	abi     abi.ABI

	selectorIndex map[[4]byte]*abi.Method
	topicIndex    map[common.Hash]*abi.Event
}

var ErrEmptyABI = errors.New("empty abi payload")

// ParseInterface accepts either a JSON array of entries or a JSON string
// holding the serialized array, which is how explorers usually return it.
func ParseInterface(raw []byte) (*Interface, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyABI
	}
	if raw[0] == '"' {
		var serialized string
		if err := json.Unmarshal(raw, &serialized); err != nil {
			return nil, fmt.Errorf("couldn't decode serialized abi: %w", err)
		}
		return ParseInterface([]byte(serialized))
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("couldn't decode abi entries: %w", err)
	}
	return NewInterface(entries)
}

// NewInterface builds the go-ethereum methods and events for entries and
// indexes them by selector and topic hash. When two functions share a
// selector the one declared later wins. Raw "error" entries are dropped.
func NewInterface(entries []Entry) (*Interface, error) {
	result := &Interface{
		abi: abi.ABI{
			Methods: map[string]abi.Method{},
			Events:  map[string]abi.Event{},
			Errors:  map[string]abi.Error{},
		},
		selectorIndex: map[[4]byte]*abi.Method{},
		topicIndex:    map[common.Hash]*abi.Event{},
	}

	for i, e := range entries {
		if e.Kind == "" {
			e.Kind = KindFunction
		}
		inputs, err := toArguments(e.Inputs)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Name, err)
		}
		outputs, err := toArguments(e.Outputs)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Name, err)
		}
		mutability := e.mutability()
		isConst := mutability == "view" || mutability == "pure"
		isPayable := mutability == "payable"

		switch e.Kind {
		case KindFunction:
			name := abi.ResolveNameConflict(e.Name, func(s string) bool {
				_, used := result.abi.Methods[s]
				return used
			})
			m := abi.NewMethod(name, e.Name, abi.Function, mutability, isConst, isPayable, inputs, outputs)
			result.abi.Methods[name] = m
			result.selectorIndex[Selector(e.Signature())] = &m
		case KindEvent:
			name := abi.ResolveNameConflict(e.Name, func(s string) bool {
				_, used := result.abi.Events[s]
				return used
			})
			ev := abi.NewEvent(name, e.Name, e.Anonymous, inputs)
			result.abi.Events[name] = ev
			result.topicIndex[TopicHash(e.Signature())] = &ev
		case KindConstructor:
			result.abi.Constructor = abi.NewMethod("", "", abi.Constructor, mutability, isConst, isPayable, inputs, nil)
		case KindFallback:
			result.abi.Fallback = abi.NewMethod("", "", abi.Fallback, mutability, isConst, isPayable, nil, nil)
		case KindReceive:
			result.abi.Receive = abi.NewMethod("", "", abi.Receive, mutability, isConst, isPayable, nil, nil)
		case "error":
			continue
		default:
			return nil, fmt.Errorf("entry %d: unknown entry type %q", i, e.Kind)
		}
		result.entries = append(result.entries, e)
	}
	return result, nil
}

func toArguments(params []abi.ArgumentMarshaling) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(params))
	for _, p := range params {
		t, err := abi.NewType(p.Type, p.InternalType, nameComponents(p.Components))
		if err != nil {
			return nil, fmt.Errorf("parameter %q of type %s: %w", p.Name, p.Type, err)
		}
		args = append(args, abi.Argument{Name: p.Name, Type: t, Indexed: p.Indexed})
	}
	return args, nil
}

// nameComponents fills in names for unnamed tuple components, which
// abi.NewType rejects.
func nameComponents(components []abi.ArgumentMarshaling) []abi.ArgumentMarshaling {
	if len(components) == 0 {
		return components
	}
	named := make([]abi.ArgumentMarshaling, len(components))
	for i, c := range components {
		if c.Name == "" {
			c.Name = fmt.Sprintf("field%d", i)
		}
		c.Components = nameComponents(c.Components)
		named[i] = c
	}
	return named
}

// Selector is the first 4 bytes of the keccak256 hash of a canonical
// function signature.
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// TopicHash is the keccak256 hash of a canonical event signature.
func TopicHash(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// Entries returns the entries in declaration order.
func (i *Interface) Entries() []Entry {
	return append([]Entry(nil), i.entries...)
}

// ABI returns the go-ethereum view of the interface, used for binding.
func (i *Interface) ABI() abi.ABI {
	return i.abi
}

func (i *Interface) Method(selector [4]byte) (*abi.Method, bool) {
	m, found := i.selectorIndex[selector]
	return m, found
}

func (i *Interface) Event(topic common.Hash) (*abi.Event, bool) {
	e, found := i.topicIndex[topic]
	return e, found
}

type entrySource []Entry

func (s entrySource) Len() int {
	return len(s)
}

func (s entrySource) String(i int) string {
	return s[i].Signature()
}

// Search fuzzy matches query against the canonical signatures of the
// entries and returns the hits best first.
func (i *Interface) Search(query string) []Entry {
	if query == "" {
		return i.Entries()
	}
	matches := fuzzy.FindFrom(query, entrySource(i.entries))
	result := make([]Entry, 0, len(matches))
	for _, m := range matches {
		result = append(result, i.entries[m.Index])
	}
	return result
}
