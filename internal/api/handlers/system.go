package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"

	"logscope/internal/session"
	"logscope/internal/version"
)

// SystemHandler reports process health and the size of the loaded set
type SystemHandler struct {
	session   *session.Session
	logger    *pterm.Logger
	startTime time.Time
}

// SystemStats holds process and engine statistics
type SystemStats struct {
	AppVersion    string  `json:"app_version"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`
	GoVersion     string  `json:"go_version"`
	NumCPU        int     `json:"num_cpu"`
	NumGoroutines int     `json:"num_goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemorySysMB   float64 `json:"memory_sys_mb"`

	LoadedRecords int    `json:"loaded_records"`
	SessionID     string `json:"session_id"`
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(s *session.Session, logger *pterm.Logger) *SystemHandler {
	return &SystemHandler{
		session:   s,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetSystemStats returns process and engine statistics
func (h *SystemHandler) GetSystemStats(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := time.Since(h.startTime)
	meta := h.session.Meta()

	c.JSON(http.StatusOK, SystemStats{
		AppVersion:    version.Version,
		Uptime:        formatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime.Format(time.RFC3339),
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
		NumGoroutines: runtime.NumGoroutine(),
		MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
		MemorySysMB:   float64(mem.Sys) / 1024 / 1024,
		LoadedRecords: meta.Count,
		SessionID:     meta.SessionID,
	})
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, d/time.Second)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, d/time.Second)
	}
	return fmt.Sprintf("%dm %ds", minutes, d/time.Second)
}
