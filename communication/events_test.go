package communication

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dream-mind/dreamchain/core"
)

func TestPublishEvents(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	broker, err := core.NewNatsBroker(port)
	require.NoError(t, err)
	defer broker.Close()

	core.NatsBrokerInstance = broker
	defer func() { core.NatsBrokerInstance = nil }()

	agentMsgs := make(chan []byte, 1)
	_, err = broker.Subscribe(SubjectAgentEvents, func(m *nats.Msg) { agentMsgs <- m.Data })
	require.NoError(t, err)

	blockMsgs := make(chan []byte, 1)
	_, err = broker.Subscribe(SubjectBlockEvents, func(m *nats.Msg) { blockMsgs <- m.Data })
	require.NoError(t, err)

	PublishAgentEvent("alice", "registered")
	PublishBlockEvent(EventBlockFinalized, 3, "0xabc")

	var agent AgentEvent
	require.NoError(t, json.Unmarshal(receive(t, agentMsgs), &agent))
	assert.Equal(t, EventAgentRegistered, agent.Type)
	assert.Equal(t, "alice", agent.Agent)
	assert.Equal(t, "registered", agent.Action)

	var block BlockEvent
	require.NoError(t, json.Unmarshal(receive(t, blockMsgs), &block))
	assert.Equal(t, EventBlockFinalized, block.Type)
	assert.Equal(t, uint64(3), block.Height)
	assert.Equal(t, "0xabc", block.Hash)
}

func TestPublishWithoutBroker(t *testing.T) {
	core.NatsBrokerInstance = nil

	// must not panic
	PublishAgentEvent("alice", "registered")
	PublishBlockEvent(EventBlockProposed, 0, "0xabc")
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broker message")
		return nil
	}
}
