package communication

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dream-mind/dreamchain/core"
)

// Event types carried over the broker.
const (
	EventAgentRegistered = "AGENT_REGISTERED"
	EventBlockProposed   = "BLOCK_PROPOSED"
	EventBlockFinalized  = "BLOCK_FINALIZED"
)

// Broker subjects.
const (
	SubjectAgentEvents = "dreamchain.agents"
	SubjectBlockEvents = "dreamchain.blocks"
)

// AgentEvent is published when the registry accepts a new agent.
type AgentEvent struct {
	Type      string `json:"type"`
	Agent     string `json:"agent"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// BlockEvent is published when the consensus engine reports a proposed or
// finalized block. Height is zero for proposal events.
type BlockEvent struct {
	Type      string `json:"type"`
	Height    uint64 `json:"height,omitempty"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
}

// PublishAgentEvent publishes an agent event to the broker. It is a no-op
// when no broker is configured.
func PublishAgentEvent(agent, action string) {
	publish(SubjectAgentEvents, AgentEvent{
		Type:      EventAgentRegistered,
		Agent:     agent,
		Action:    action,
		Timestamp: time.Now().Unix(),
	})
}

// PublishBlockEvent publishes a block event to the broker. It is a no-op
// when no broker is configured.
func PublishBlockEvent(eventType string, height uint64, hash string) {
	publish(SubjectBlockEvents, BlockEvent{
		Type:      eventType,
		Height:    height,
		Hash:      hash,
		Timestamp: time.Now().Unix(),
	})
}

func publish(subject string, event interface{}) {
	if core.NatsBrokerInstance == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}

	if err := core.NatsBrokerInstance.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
