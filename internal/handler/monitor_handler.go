package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/response"
	"github.com/stemsi/admissions-backend/internal/service"
	ws "github.com/stemsi/admissions-backend/internal/websocket"
)

const (
	refreshInterval = 30 * time.Second
	refreshTimeout  = 5 * time.Second // keeps a slow count from stalling the stream
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler serves the live key monitor and the recorded metrics.
type MonitorHandler struct {
	rdb      *redis.Client
	monitor  *service.MonitorService
	metrics  *service.MetricsService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	monitor *service.MonitorService,
	metrics *service.MetricsService,
	log zerolog.Logger,
	allowedOrigins []string,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		monitor:  monitor,
		metrics:  metrics,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Snapshot godoc
// @Summary Trailing-day key activity counts
// @Tags Monitor
// @Produce json
// @Success 200 {object} response.Response{data=service.MonitorSnapshot}
// @Failure 503 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/monitor/snapshot [get]
func (h *MonitorHandler) Snapshot(c *gin.Context) {
	snap, err := h.monitor.Snapshot(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// ListMetrics godoc
// @Summary Recorded periodic metrics, newest first
// @Tags Monitor
// @Produce json
// @Param limit query int false "Maximum rows" default(30)
// @Success 200 {object} response.Response{data=object}
// @Security BearerAuth
// @Router /api/v1/admin/metrics [get]
func (h *MonitorHandler) ListMetrics(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	ms, err := h.metrics.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"metrics": ms})
}

// MonitorStream godoc
// @Summary Live key monitor (WebSocket)
// @Description Sends a snapshot on connect, relays key started/answered events as they
// @Description happen and refreshes the snapshot periodically.
// @Tags Monitor
// @Param token query string true "Admin JWT"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} response.Response
// @Router /ws/v1/admin/monitor [get]
func (h *MonitorHandler) MonitorStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.KeyMonitorChannel())
	defer pubsub.Close()
	events := pubsub.Channel()

	// Reads happen on their own goroutine; every write stays on this one.
	actions := make(chan ws.Action)
	go func() {
		defer cancel()
		ws.PrepareRead(conn)
		for {
			var req ws.Request
			if err := ws.ReadJSON(conn, &req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warn().Err(err).Msg("monitor closed unexpectedly")
				}
				return
			}
			select {
			case actions <- req.Action:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.log.Info().Msg("admin attached to key monitor")
	defer h.log.Info().Msg("admin detached from key monitor")

	if err := h.sendSnapshot(ctx, conn); err != nil {
		return
	}

	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()
	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-events:
			if !ok {
				return
			}
			err = ws.WriteTyped(conn, ws.ActivityResponse{
				Event:    ws.EventKeyActivity,
				Envelope: json.RawMessage(msg.Payload),
			})

		case action := <-actions:
			switch action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionRefresh:
				err = h.sendSnapshot(ctx, conn)
			default:
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}

		case <-refresh.C:
			err = h.sendSnapshot(ctx, conn)

		case <-ping.C:
			err = ws.WritePing(conn)
		}
		if err != nil {
			h.log.Debug().Err(err).Msg("monitor write failed")
			return
		}
	}
}

func (h *MonitorHandler) sendSnapshot(parent context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	snap, err := h.monitor.Snapshot(ctx, time.Now())
	if err != nil {
		h.log.Warn().Err(err).Msg("monitor snapshot failed")
		return ws.WriteError(conn, "snapshot unavailable")
	}
	return ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Data: snap})
}
