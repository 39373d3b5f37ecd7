package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/middleware"
	"github.com/invigil/invigil-backend/internal/model"
	ws "github.com/invigil/invigil-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams live integrity events to watching proctors.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ProctoringStream godoc
// WS /ws/proctoring-stream/:exam_id/:student_id
// Upgrades to WebSocket and forwards the session's live integrity
// events as they are published by the monitor.
func (h *WSHandler) ProctoringStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if claims.Role == model.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff only"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}
	studentID := c.Param("student_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Str("watcher", claims.Email).
		Logger()
	wsLog.Info().Msg("Proctor connected")

	channel := config.CacheKey.ProctoringChannel(examID.String(), studentID)
	sub := h.rdb.Subscribe(c.Request.Context(), channel)
	defer sub.Close()

	// Reader goroutine: only pings and the close handshake come from
	// the client.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	events := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Proctor disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				wsLog.Warn().Msg("Subscription channel closed")
				return
			}
			var event model.IntegrityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				wsLog.Warn().Err(err).Msg("Dropping malformed published event")
				continue
			}
			if err := ws.WriteTyped(conn, ws.IntegrityEventMessage{Event: ws.EventIntegrity, Payload: event}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing stream")
				return
			}
		}
	}
}
