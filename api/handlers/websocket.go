package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/dream-mind/dreamchain/communication"
	"github.com/dream-mind/dreamchain/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// HandleWebSocket streams agent and block events from the broker to the
// client until it disconnects.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	broker := core.NatsBrokerInstance
	if broker == nil {
		h.Log.Warn().Msg("websocket requested but no broker is configured")
		return
	}

	forward := func(m *nats.Msg) {
		if err := conn.WriteMessage(websocket.TextMessage, m.Data); err != nil {
			h.Log.Debug().Err(err).Msg("websocket write failed")
		}
	}

	agentSub, err := broker.Subscribe(communication.SubjectAgentEvents, forward)
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to subscribe to agent events")
		return
	}
	defer agentSub.Unsubscribe()

	blockSub, err := broker.Subscribe(communication.SubjectBlockEvents, forward)
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to subscribe to block events")
		return
	}
	defer blockSub.Unsubscribe()

	// Block until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Log.Debug().Err(err).Msg("websocket connection closed")
			return
		}
	}
}
