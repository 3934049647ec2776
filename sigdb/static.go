package sigdb

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tranvictor/abiscope/contract"
)

// Static resolves from interfaces known in advance, by default the bundled
// token standards. Unlike text registries it keeps parameter names and
// indexed flags.
type Static struct {
	functions map[[4]byte]*contract.Interface
	events    map[common.Hash][]*contract.Interface
}

func NewStatic(ifaces ...*contract.Interface) (*Static, error) {
	s := &Static{
		functions: map[[4]byte]*contract.Interface{},
		events:    map[common.Hash][]*contract.Interface{},
	}
	for _, iface := range ifaces {
		for _, e := range iface.Entries() {
			if e.Kind != contract.KindFunction && e.Kind != contract.KindEvent {
				continue
			}
			single, err := contract.NewInterface([]contract.Entry{e})
			if err != nil {
				return nil, err
			}
			if e.Kind == contract.KindFunction {
				s.functions[contract.Selector(e.Signature())] = single
			} else {
				topic := contract.TopicHash(e.Signature())
				s.events[topic] = append(s.events[topic], single)
			}
		}
	}
	return s, nil
}

// NewStandardStatic knows the erc20, erc721 and erc1155 interfaces.
func NewStandardStatic() *Static {
	ifaces := []*contract.Interface{}
	for _, standard := range []contract.Standard{contract.StandardERC20, contract.StandardERC721, contract.StandardERC1155} {
		iface, _ := contract.StandardInterface(standard)
		ifaces = append(ifaces, iface)
	}
	s, err := NewStatic(ifaces...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Static) ResolveFunction(ctx context.Context, selector [4]byte) (*contract.Interface, error) {
	iface, found := s.functions[selector]
	if !found {
		return nil, contract.ErrSignatureNotFound
	}
	return iface, nil
}

// ResolveEvent only returns a candidate with exactly indexed indexed
// parameters, so the erc20 and erc721 Transfer events, which share a
// topic, are told apart.
func (s *Static) ResolveEvent(ctx context.Context, topic common.Hash, indexed int) (*contract.Interface, error) {
	for _, iface := range s.events[topic] {
		ev, _ := iface.Event(topic)
		idx, _ := contract.SplitEventArguments(ev.Inputs)
		if len(idx) == indexed {
			return iface, nil
		}
	}
	return nil, contract.ErrSignatureNotFound
}

// Signatures lists everything the resolver knows, for seeding an Index.
func (s *Static) Signatures() []Signature {
	result := []Signature{}
	for _, iface := range s.functions {
		for _, e := range iface.Entries() {
			result = append(result, NewSignature(Function, e.Signature()))
		}
	}
	for _, candidates := range s.events {
		for _, iface := range candidates {
			for _, e := range iface.Entries() {
				result = append(result, NewSignature(Event, e.Signature()))
			}
		}
	}
	return result
}
