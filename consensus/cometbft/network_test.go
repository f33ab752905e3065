package cometbft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNetworkConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dreamchain.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseNetworkFile(t *testing.T) {
	path := writeNetworkConfig(t, `{
		"agents": {},
		"network": {
			"chainId": "dreamchain-test",
			"self": "node0",
			"nodes": [
				{"name": "node0", "host": "127.0.0.1", "p2pPort": 26656, "rpcPort": 26657},
				{"name": "node1", "host": "10.0.0.2", "p2pPort": 26656, "rpcPort": 26657, "nodeId": "deadbeef"},
				{"name": "node2", "host": "10.0.0.3", "p2pPort": 26656, "rpcPort": 26657, "nodeId": "cafebabe"}
			]
		}
	}`)

	nc, err := ParseNetworkFile(path)
	require.NoError(t, err)

	assert.Equal(t, "dreamchain-test", nc.ChainID)
	assert.Equal(t, "node0", nc.selfNode().Name)
	assert.Equal(t, "deadbeef@10.0.0.2:26656,cafebabe@10.0.0.3:26656", nc.persistentPeers())
}

func TestParseNetworkFileFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ParseNetworkFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("missing chain id", func(t *testing.T) {
		path := writeNetworkConfig(t, `{"network": {"self": "node0", "nodes": [{"name": "node0"}]}}`)
		_, err := ParseNetworkFile(path)
		assert.Error(t, err)
	})

	t.Run("no nodes", func(t *testing.T) {
		path := writeNetworkConfig(t, `{"network": {"chainId": "x", "self": "node0", "nodes": []}}`)
		_, err := ParseNetworkFile(path)
		assert.Error(t, err)
	})

	t.Run("self not listed", func(t *testing.T) {
		path := writeNetworkConfig(t, `{"network": {"chainId": "x", "self": "ghost", "nodes": [{"name": "node0"}]}}`)
		_, err := ParseNetworkFile(path)
		assert.Error(t, err)
	})
}
