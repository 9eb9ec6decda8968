package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Numzn/NUMZSCAN-APP/internal/transport/middleware"
)

func InitRoutes(ticketHandler *TicketHandler, scanHandler *ScanHandler, syncHandler *SyncHandler, fundraisingHandler *FundraisingHandler) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Ticket routes
		tickets := api.Group("/tickets")
		{
			tickets.GET("", ticketHandler.ListTickets)
			tickets.GET("/stats", ticketHandler.GetStats)
			tickets.POST("/generate", ticketHandler.GenerateTickets)
			tickets.POST("/reset", ticketHandler.ResetAllTickets)
			tickets.POST("/lock", ticketHandler.SetGenerationLock)
			tickets.GET("/export/csv", ticketHandler.ExportCSV)
			tickets.GET("/export/json", ticketHandler.ExportJSON)
			tickets.POST("/import/csv", ticketHandler.ImportCSV)
			tickets.POST("/import/json", ticketHandler.ImportJSON)
			tickets.GET("/:id", ticketHandler.GetTicket)
		}

		// Scanner route
		api.POST("/scan", scanHandler.Scan)

		// Sync routes
		sync := api.Group("/sync")
		{
			sync.GET("/status", syncHandler.GetStatus)
			sync.POST("", syncHandler.TriggerSync)
		}

		// Fundraising routes
		fundraising := api.Group("/fundraising")
		{
			fundraising.GET("", fundraisingHandler.GetState)
			fundraising.GET("/totals", fundraisingHandler.GetTotals)
			fundraising.POST("/contributions", fundraisingHandler.AddContribution)
			fundraising.DELETE("/contributions/:id", fundraisingHandler.RemoveContribution)
			fundraising.POST("/clear", fundraisingHandler.ClearContributions)
			fundraising.POST("/target", fundraisingHandler.SetTarget)
			fundraising.GET("/export/csv", fundraisingHandler.ExportCSV)
			fundraising.POST("/import/csv", fundraisingHandler.ImportCSV)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return router
}
