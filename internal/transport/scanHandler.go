package transport

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/scanner"
	"github.com/Numzn/NUMZSCAN-APP/pkg/syncqueue"
)

type ScanHandler struct {
	processor *scanner.Processor
	queue     *syncqueue.Queue
}

func NewScanHandler(processor *scanner.Processor, queue *syncqueue.Queue) *ScanHandler {
	return &ScanHandler{processor: processor, queue: queue}
}

type scanRequest struct {
	Code string `json:"code" binding:"required"`
}

// Scan processes one raw scan payload. An accepted redemption kicks off a
// queue flush in the background; the scan response never waits on the network.
func (h *ScanHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.processor.Process(c.Request.Context(), req.Code)
	if result.Outcome == scanner.OutcomeAccepted {
		go func() {
			if err := h.queue.Flush(context.Background()); err != nil {
				logrus.Debugf("post-scan flush: %v", err)
			}
		}()
	}
	c.JSON(http.StatusOK, result)
}
