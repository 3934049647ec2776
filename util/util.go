package util

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tranvictor/abiscope/networks"
	"github.com/tranvictor/abiscope/util/reader"
)

var (
	txRe       = regexp.MustCompile("(0x)?[0-9a-fA-F]{64}")
	addressRe  = regexp.MustCompile("0x[0-9a-fA-F]{40}([^0-9a-fA-F]|$)")
	pathAddrRe = regexp.MustCompile("(0x)?[0-9a-fA-F]{40}")
	selectorRe = regexp.MustCompile("^(0x)?[0-9a-fA-F]{8}$")
)

func ScanForTxs(para string) []string {
	result := txRe.FindAllString(para, -1)
	if result == nil {
		return []string{}
	}
	return result
}

func ScanForAddresses(para string) []string {
	result := addressRe.FindAllString(para, -1)
	if result == nil {
		return []string{}
	}
	for i := 0; i < len(result); i++ {
		result[i] = result[i][0:42]
	}
	return result
}

func IsAddress(addr string) bool {
	_, err := PathToAddress(addr)
	return err == nil
}

// PathToAddress finds the first address in path, e.g. the name of an
// ABI file saved as <address>.json.
func PathToAddress(path string) (string, error) {
	result := pathAddrRe.FindAllString(path, -1)
	if result == nil {
		return "", fmt.Errorf("no address in %q", path)
	}
	return result[0], nil
}

// IsSelector reports whether s is a 4 byte function selector, with or
// without 0x.
func IsSelector(s string) bool {
	return selectorRe.MatchString(strings.TrimSpace(s))
}

// IsTopic reports whether s is a 32 byte event topic.
func IsTopic(s string) bool {
	s = strings.TrimSpace(s)
	return len(strings.TrimPrefix(s, "0x")) == 64 && len(ScanForTxs(s)) == 1
}

// GetNodes returns the nodes to read network from. An explicit node wins,
// then the network's node variable, then its default nodes.
func GetNodes(network networks.Network, node string) map[string]string {
	if node = strings.TrimSpace(node); node != "" {
		return map[string]string{"custom-node": node}
	}
	nodes := map[string]string{}
	for name, url := range network.GetDefaultNodes() {
		nodes[name] = url
	}
	if customNode := strings.TrimSpace(os.Getenv(network.GetNodeVariableName())); customNode != "" {
		nodes["custom-node"] = customNode
	}
	return nodes
}

func EthReader(network networks.Network, node string) (*reader.EthReader, error) {
	nodes := GetNodes(network, node)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no nodes configured for %s, set %s", network.GetName(), network.GetNodeVariableName())
	}
	return reader.NewEthReaderGeneric(nodes), nil
}
