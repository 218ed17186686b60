package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop

	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

type MonitorHandler struct {
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// LiveSessions godoc
// GET /api/v1/admin/monitor/live?exam_id=
// Snapshot of every in-progress session, highest risk first.
func (h *MonitorHandler) LiveSessions(c *gin.Context) {
	examID, ok := queryUUID(c, "exam_id")
	if !ok {
		return
	}

	snapshot, err := h.monitorService.Snapshot(c.Request.Context(), examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// FraudAlerts godoc
// GET /api/v1/admin/fraud-alerts?limit=50
// Sessions with a risk of at least 30 or any fraud event, newest first.
func (h *MonitorHandler) FraudAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAlertLimit)))
	if err != nil || limit < 1 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	alerts, err := h.monitorService.FraudAlerts(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"alerts": alerts})
}

// MonitorSSE godoc
// GET /api/v1/admin/monitor/stream?exam_id=
// Streams the live snapshot, then every session event as it happens. The
// snapshot is refreshed periodically while events keep arriving.
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	examID, ok := queryUUID(c, "exam_id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, examID)

	pubsub := h.monitorService.Subscribe(reqCtx, examID)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refreshes while the board is quiet.
	dirty := false

	scope := "all"
	if examID != nil {
		scope = examID.String()
	}
	h.log.Info().Str("exam_id", scope).Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", scope).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			// Events are already JSON; forward them as-is.
			writeSSE(c, []byte(msg.Payload))
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendSnapshot(c, reqCtx, examID)
			dirty = false

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

// sendSnapshot writes the current board and open alerts as one SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context, examID *uuid.UUID) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	snapshot, alerts, err := h.monitorService.Overview(fetchCtx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Monitor snapshot failed")
		return
	}

	payload, err := json.Marshal(gin.H{
		"type":     "snapshot",
		"snapshot": snapshot,
		"alerts":   alerts,
	})
	if err != nil {
		return
	}
	writeSSE(c, payload)
}

func writeSSE(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
