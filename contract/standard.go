package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	abiscopecommon "github.com/tranvictor/abiscope/common"
)

var standardInterfaces = map[Standard]*Interface{}

func init() {
	for _, s := range []Standard{StandardERC20, StandardERC721, StandardERC1155} {
		raw, _ := abiscopecommon.StandardABI(string(s))
		iface, err := ParseInterface([]byte(raw))
		if err != nil {
			panic(fmt.Sprintf("bundled %s abi is broken: %s", s, err))
		}
		standardInterfaces[s] = iface
	}
}

// StandardInterface returns the bundled minimal interface for s.
func StandardInterface(s Standard) (*Interface, bool) {
	iface, found := standardInterfaces[s]
	return iface, found
}

var transferTopics = map[[4]byte]bool{}

func init() {
	for _, sig := range []string{
		"Transfer(address,address,uint256)",
		"TransferSingle(address,address,address,uint256,uint256)",
		"TransferBatch(address,address,address,uint256[],uint256[])",
	} {
		transferTopics[topicSelector(TopicHash(sig))] = true
	}
}

func topicSelector(topic common.Hash) [4]byte {
	var sel [4]byte
	copy(sel[:], topic[:4])
	return sel
}

// IsTransferTopic reports whether the first four bytes of topic match a
// known token transfer event.
func IsTransferTopic(topic common.Hash) bool {
	return transferTopics[topicSelector(topic)]
}
