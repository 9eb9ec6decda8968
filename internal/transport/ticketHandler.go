package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/service"
)

type TicketHandler struct {
	ticketService service.TicketService
}

func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

func (h *TicketHandler) ListTickets(c *gin.Context) {
	tickets := h.ticketService.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.ticketService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.ticketService.Stats(c.Request.Context()))
}

type generateRequest struct {
	Count int `json:"count" binding:"required"`
}

func (h *TicketHandler) GenerateTickets(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := h.ticketService.Generate(c.Request.Context(), req.Count)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (h *TicketHandler) ResetAllTickets(c *gin.Context) {
	n, err := h.ticketService.ResetAll(c.Request.Context())
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": n})
}

type lockRequest struct {
	Locked    bool   `json:"locked"`
	Reason    string `json:"reason"`
	Propagate bool   `json:"propagate"`
}

func (h *TicketHandler) SetGenerationLock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ticketService.SetGenerationLock(c.Request.Context(), req.Locked, req.Reason, req.Propagate); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": req.Locked})
}

func (h *TicketHandler) ImportCSV(c *gin.Context) {
	result, err := h.ticketService.ImportCSV(c.Request.Context(), c.Request.Body)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TicketHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="tickets.csv"`)
	if err := h.ticketService.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
	}
}

func (h *TicketHandler) ImportJSON(c *gin.Context) {
	replace := c.Query("mode") == "replace"
	result, err := h.ticketService.ImportJSON(c.Request.Context(), c.Request.Body, replace)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TicketHandler) ExportJSON(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="tickets.json"`)
	if err := h.ticketService.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// statusFromError maps domain sentinels to HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, entity.ErrTicketNotFound), errors.Is(err, entity.ErrContributionNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrGenerationLocked), errors.Is(err, entity.ErrSyncInProgress),
		errors.Is(err, entity.ErrTicketAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, entity.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, entity.ErrSyncDisabled):
		return http.StatusPreconditionFailed
	case errors.Is(err, entity.ErrInvalidInput), errors.Is(err, entity.ErrMissingIDColumn),
		errors.Is(err, entity.ErrInvalidImportFile), errors.Is(err, entity.ErrNoTickets):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
