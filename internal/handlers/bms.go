package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bms_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errStartInvalid = "invalid 'start' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errEndInvalid   = "invalid 'end' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; use a positive integer"
	errNoHardware   = "hardware controller did not answer"

	layoutDateTime      = "2006-01-02 15:04:05"
	layoutLocalDateTime = "2006-01-02T15:04:05"
	layoutDate          = "2006-01-02"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Latest BMS status
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  models.BmsStatus
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/bms/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.LatestStatus(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoTelemetry) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load status", "bms_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Telemetry history
// @Description  Readings with start <= timestamp <= end, newest first. A date-only 'end' covers the whole day.
// @Tags         telemetry
// @Produce      json
// @Param        start  query  string  true  "Start (RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD')"  example(2025-08-13T06:00:00Z)
// @Param        end    query  string  true  "End (RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD')"    example(2025-08-13T07:00:00Z)
// @Success      200    {array}   models.Snapshot
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/bms/history [get]
// @Security     BearerAuth
func (h *Handler) getHistory(c *gin.Context) {
	startQ, endQ := c.Query("start"), c.Query("end")
	start, err := parseQueryTime(startQ)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errStartInvalid})
		return
	}
	end, err := parseQueryTime(endQ)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEndInvalid})
		return
	}
	if isDateOnly(endQ) {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	rows, err := h.services.Monitoring.History(c.Request.Context(), start, end)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'start' must be <= 'end'"})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load history", "bms_history_failed", err,
			"start", start, "end", end)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary      Recent readings for the temperature chart
// @Tags         telemetry
// @Produce      json
// @Param        limit  query  int  false  "Number of readings"  default(10)
// @Success      200    {array}   models.Snapshot
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/bms/temperature/history [get]
// @Security     BearerAuth
func (h *Handler) getTemperatureHistory(c *gin.Context) {
	limit := 10
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
		limit = n
	}
	rows, err := h.services.Monitoring.RecentReadings(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load readings", "bms_recent_failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary      Live status from the hardware controller
// @Tags         hardware
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/bms/hardware/status [get]
// @Security     BearerAuth
func (h *Handler) getHardwareStatus(c *gin.Context) {
	h.respondHardware(c, h.services.Hardware.HardwareStatus(c.Request.Context()))
}

// @Summary      Protection settings from the hardware controller
// @Tags         hardware
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/bms/hardware/settings [get]
// @Security     BearerAuth
func (h *Handler) getHardwareSettings(c *gin.Context) {
	h.respondHardware(c, h.services.Hardware.HardwareSettings(c.Request.Context()))
}

func (h *Handler) respondHardware(c *gin.Context, body map[string]any) {
	if body == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoHardware})
		return
	}
	c.JSON(http.StatusOK, body)
}

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseQueryTime accepts RFC3339, a zone-less local date-time (read as UTC),
// 'YYYY-MM-DD HH:MM:SS' and 'YYYY-MM-DD'.
func parseQueryTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, layoutLocalDateTime, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-13T06:27:01.010Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
