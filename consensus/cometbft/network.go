package cometbft

import (
	"encoding/json"
	"fmt"
	"os"
)

// NodeInfo is one entry of the network topology section.
type NodeInfo struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	P2PPort int    `json:"p2pPort"`
	RPCPort int    `json:"rpcPort"`
	// NodeID is the CometBFT node key ID used for persistent peering.
	// Empty for the local node.
	NodeID string `json:"nodeId,omitempty"`
}

// NetworkConfig is the network topology consumed by the engine: the chain
// id, every node of the BFT committee, and which entry is this process.
type NetworkConfig struct {
	ChainID string     `json:"chainId"`
	Self    string     `json:"self"`
	Nodes   []NodeInfo `json:"nodes"`
}

// ParseNetworkFile reads and validates the network section of the chain
// configuration document.
func ParseNetworkFile(path string) (*NetworkConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network config %s: %w", path, err)
	}

	var doc struct {
		Network NetworkConfig `json:"network"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse network config: %w", err)
	}
	nc := doc.Network

	if nc.ChainID == "" {
		return nil, fmt.Errorf("network config missing chainId")
	}
	if len(nc.Nodes) == 0 {
		return nil, fmt.Errorf("network config has no nodes")
	}
	if _, ok := nc.node(nc.Self); !ok {
		return nil, fmt.Errorf("network config self %q not among nodes", nc.Self)
	}

	return &nc, nil
}

func (nc *NetworkConfig) node(name string) (NodeInfo, bool) {
	for _, n := range nc.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeInfo{}, false
}

// selfNode returns this process's topology entry.
func (nc *NetworkConfig) selfNode() NodeInfo {
	n, _ := nc.node(nc.Self)
	return n
}

// persistentPeers renders the peer list for every node except self, in
// CometBFT's id@host:port form. Nodes without a known id are skipped.
func (nc *NetworkConfig) persistentPeers() string {
	peers := ""
	for _, n := range nc.Nodes {
		if n.Name == nc.Self || n.NodeID == "" {
			continue
		}
		if peers != "" {
			peers += ","
		}
		peers += fmt.Sprintf("%s@%s:%d", n.NodeID, n.Host, n.P2PPort)
	}
	return peers
}
