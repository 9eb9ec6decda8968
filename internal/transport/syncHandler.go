package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Numzn/NUMZSCAN-APP/internal/engine"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

type SyncHandler struct {
	engine *engine.Engine
	queue  *syncqueue.Queue
}

func NewSyncHandler(e *engine.Engine, q *syncqueue.Queue) *SyncHandler {
	return &SyncHandler{engine: e, queue: q}
}

func (h *SyncHandler) GetStatus(c *gin.Context) {
	state := h.queue.State()
	c.JSON(http.StatusOK, gin.H{
		"pending":      state.Pending,
		"syncing":      state.Syncing,
		"lastSyncAt":   state.LastSyncAt,
		"online":       state.Online,
		"phase":        h.engine.Phase(),
		"remoteTotals": h.engine.RemoteTotals(),
	})
}

// TriggerSync runs a full manual sync cycle and blocks until it finishes, so
// the caller sees the real outcome rather than an optimistic acknowledgement.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	if err := h.engine.ManualSync(c.Request.Context()); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "synced",
		"lastSyncAt": h.queue.LastSyncAt(),
	})
}
