// Package api wires the HTTP surface: one router, one session, JSON in
// and out.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"

	"logscope/internal/api/handlers"
	"logscope/internal/session"
	"logscope/internal/version"
)

// NewRouter builds the gin engine with every route registered.
func NewRouter(s *session.Session, logger *pterm.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	logs := handlers.NewLogsHandler(s, logger)
	system := handlers.NewSystemHandler(s, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/logs", logs.UploadLogs)
		apiGroup.GET("/logs", logs.GetLogs)

		apiGroup.POST("/filters", logs.AddFilter)
		apiGroup.DELETE("/filters/:index", logs.RemoveFilter)
		apiGroup.DELETE("/filters", logs.ClearFilters)

		apiGroup.PUT("/search", logs.SetSearch)
		apiGroup.PUT("/dates", logs.SetDateRange)
		apiGroup.PUT("/sort", logs.SetSort)

		apiGroup.GET("/stats", logs.GetStats)
		apiGroup.GET("/meta", logs.GetMeta)
		apiGroup.GET("/ip/:ip", logs.GetIPInfo)
		apiGroup.GET("/system", system.GetSystemStats)
	}

	return router
}
