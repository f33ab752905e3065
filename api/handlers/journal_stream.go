package handlers

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/dream-mind/dreamchain/communication"
)

// HandleJournalStream replays the finalized-dream journal to the client and
// then follows it, one JSON record per journal line. Unlike the broker
// stream this includes history from before the connection was made.
func (h *Handler) HandleJournalStream(c *gin.Context) {
	if h.JournalPath == "" {
		c.JSON(404, gin.H{"error": "journal not configured"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	// stop must close on client disconnect or write failure, otherwise the
	// journal watcher outlives the connection.
	stop := make(chan struct{})
	var once sync.Once
	closeStop := func() { once.Do(func() { close(stop) }) }
	defer closeStop()

	go func() {
		// Reader loop doubles as disconnect detection.
		defer closeStop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	communication.WatchJournal(h.JournalPath, func(rec communication.DreamRecord) {
		if err := conn.WriteJSON(rec); err != nil {
			h.Log.Debug().Err(err).Msg("journal stream write failed")
			closeStop()
		}
	}, stop)
}
