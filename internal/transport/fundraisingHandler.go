package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Numzn/NUMZSCAN-APP/internal/service"
)

type FundraisingHandler struct {
	fundraisingService service.FundraisingService
}

func NewFundraisingHandler(fundraisingService service.FundraisingService) *FundraisingHandler {
	return &FundraisingHandler{fundraisingService: fundraisingService}
}

// milestones are the progress thresholds the dashboard celebrates.
var milestones = []int{25, 50, 75, 100}

func (h *FundraisingHandler) GetState(c *gin.Context) {
	state := h.fundraisingService.State(c.Request.Context())

	progress := 0.0
	if state.TargetAmount > 0 {
		progress = state.CurrentAmount / state.TargetAmount * 100
	}
	reached := []int{}
	for _, m := range milestones {
		if progress >= float64(m) {
			reached = append(reached, m)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"targetAmount":  state.TargetAmount,
		"currentAmount": state.CurrentAmount,
		"progress":      progress,
		"milestones":    reached,
		"contributions": state.Contributions,
	})
}

func (h *FundraisingHandler) GetTotals(c *gin.Context) {
	c.JSON(http.StatusOK, h.fundraisingService.Totals(c.Request.Context()))
}

func (h *FundraisingHandler) AddContribution(c *gin.Context) {
	var req service.AddContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contribution, err := h.fundraisingService.AddContribution(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, contribution)
}

func (h *FundraisingHandler) RemoveContribution(c *gin.Context) {
	if err := h.fundraisingService.RemoveContribution(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": c.Param("id")})
}

func (h *FundraisingHandler) ClearContributions(c *gin.Context) {
	removed, err := h.fundraisingService.ClearNonInitial(c.Request.Context())
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type targetRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *FundraisingHandler) SetTarget(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fundraisingService.SetTarget(c.Request.Context(), req.Amount); err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"targetAmount": req.Amount})
}

func (h *FundraisingHandler) ImportCSV(c *gin.Context) {
	added, err := h.fundraisingService.ImportCSV(c.Request.Context(), c.Request.Body)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (h *FundraisingHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="contributions.csv"`)
	if err := h.fundraisingService.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
