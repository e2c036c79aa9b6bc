package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"

	"logscope/internal/ingestion"
	"logscope/internal/parser/accesslog"
	"logscope/internal/query"
	"logscope/internal/session"
)

// maxUploadBytes caps one log upload at 256 MiB.
const maxUploadBytes = 256 << 20

// LogsHandler serves the log set of one session: uploads, the filtered
// view and the query mutations that shape it.
type LogsHandler struct {
	session *session.Session
	logger  *pterm.Logger
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(s *session.Session, logger *pterm.Logger) *LogsHandler {
	return &LogsHandler{session: s, logger: logger}
}

// recordDTO is the wire shape of one log record.
type recordDTO struct {
	IP               string    `json:"ip"`
	Timestamp        time.Time `json:"timestamp"`
	Method           string    `json:"method"`
	URL              string    `json:"url"`
	HTTPVersion      string    `json:"http_version"`
	Status           int       `json:"status"`
	Bytes            int64     `json:"bytes"`
	Referer          string    `json:"referer"`
	UserAgent        string    `json:"user_agent"`
	LineNumber       int       `json:"line_number"`
	TimestampGuessed bool      `json:"timestamp_guessed,omitempty"`
}

func toDTO(r *accesslog.Record) recordDTO {
	return recordDTO{
		IP:               r.IP,
		Timestamp:        r.Timestamp,
		Method:           r.Method,
		URL:              r.URL,
		HTTPVersion:      r.HTTPVersion,
		Status:           r.Status,
		Bytes:            r.Bytes,
		Referer:          r.Referer,
		UserAgent:        r.UserAgent,
		LineNumber:       r.LineNumber,
		TimestampGuessed: r.TimestampGuessed,
	}
}

type viewResponse struct {
	Records    []recordDTO `json:"records"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
}

func viewToResponse(v query.View) viewResponse {
	records := make([]recordDTO, len(v.Page))
	for i, r := range v.Page {
		records[i] = toDTO(r)
	}
	return viewResponse{
		Records:    records,
		Page:       v.PageNumber,
		TotalPages: v.TotalPages,
		Total:      v.Total,
	}
}

// UploadLogs ingests the request body as raw log text and replaces the
// session's record set.
func (h *LogsHandler) UploadLogs(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
	if err != nil {
		h.logger.WithCaller().Error("Failed to read upload body", h.logger.Args("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty request body"})
		return
	}

	result, err := h.session.Load(c.Request.Context(), string(body))
	switch {
	case errors.Is(err, ingestion.ErrNoValidRecords):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No valid log entries found"})
		return
	case errors.Is(err, session.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "Upload superseded by a newer one"})
		return
	case err != nil:
		h.logger.WithCaller().Error("Ingestion failed", h.logger.Args("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":         len(result.Records),
		"lines_processed": result.LinesProcessed,
		"lines_rejected":  result.LinesRejected,
	})
}

// GetLogs renders the current filtered page. Optional page and page_size
// query parameters move the view before rendering.
func (h *LogsHandler) GetLogs(c *gin.Context) {
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size"})
			return
		}
		h.session.SetPageSize(size)
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return
		}
		h.session.GoToPage(page)
	}

	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

type filterRequest struct {
	Column  string `json:"column" binding:"required"`
	Value   string `json:"value" binding:"required"`
	Exclude bool   `json:"exclude"`
}

// AddFilter installs an include or exclude filter and returns the updated
// view.
func (h *LogsHandler) AddFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "column and value are required"})
		return
	}

	kind := query.Include
	if req.Exclude {
		kind = query.Exclude
	}
	if err := h.session.AddFilter(query.Criterion{Column: req.Column, Value: req.Value, Kind: kind}); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

// RemoveFilter drops the filter at the index in the URL.
func (h *LogsHandler) RemoveFilter(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter index"})
		return
	}
	if err := h.session.RemoveFilter(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

// ClearFilters drops every filter.
func (h *LogsHandler) ClearFilters(c *gin.Context) {
	h.session.ClearFilters()
	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

type searchRequest struct {
	Query string `json:"query"`
}

// SetSearch replaces the free-text search query. An empty query clears it.
func (h *LogsHandler) SetSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search request"})
		return
	}
	h.session.SetSearch(req.Query)
	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

type dateRangeRequest struct {
	Preset   string `json:"preset"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	TimeFrom string `json:"time_from"`
	TimeTo   string `json:"time_to"`
}

// SetDateRange installs date bounds, either a named preset or explicit
// date/time strings.
func (h *LogsHandler) SetDateRange(c *gin.Context) {
	var req dateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date range request"})
		return
	}

	if req.Preset != "" {
		if err := h.session.SetDatePreset(session.DatePreset(req.Preset)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		h.session.SetDateRange(req.DateFrom, req.DateTo, req.TimeFrom, req.TimeTo)
	}
	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

type sortRequest struct {
	Field string `json:"field" binding:"required"`
}

// SetSort selects the sort field; repeating the field reverses direction.
func (h *LogsHandler) SetSort(c *gin.Context) {
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field is required"})
		return
	}
	h.session.SortBy(req.Field)
	c.JSON(http.StatusOK, viewToResponse(h.session.View()))
}

// GetStats returns aggregate statistics, over the filtered set when
// filtered=true.
func (h *LogsHandler) GetStats(c *gin.Context) {
	filtered := c.Query("filtered") == "true"
	c.JSON(http.StatusOK, h.session.Statistics(filtered))
}

// GetMeta reports the filter vocabularies and the loaded date span.
func (h *LogsHandler) GetMeta(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Meta())
}

// GetIPInfo resolves one address through the enrichment cache.
func (h *LogsHandler) GetIPInfo(c *gin.Context) {
	ip := c.Param("ip")
	if ip == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing IP address"})
		return
	}
	c.JSON(http.StatusOK, h.session.IPInfo(c.Request.Context(), ip))
}
