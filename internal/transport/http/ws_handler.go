package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gamelink/gamelink-server/internal/auth"
	"github.com/gamelink/gamelink-server/internal/metrics"
	"github.com/gamelink/gamelink-server/internal/presence"
	"github.com/gamelink/gamelink-server/internal/proto"
)

// eventBufferSize bounds per-connection queued pushes; a full buffer drops
// the push rather than blocking a sender's request.
const eventBufferSize = 16

// wsConn is the presence handle for one websocket connection.
type wsConn struct {
	events chan proto.Outbound
}

// TryPush enqueues an event without blocking.
func (c *wsConn) TryPush(event proto.Outbound) bool {
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

// WSHandler upgrades HTTP connections into the persistent push channel and
// registers them in the presence registry.
type WSHandler struct {
	authService *auth.Service
	registry    *presence.Registry
	metrics     *metrics.Metrics
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(authService *auth.Service, registry *presence.Registry, mets *metrics.Metrics, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		authService: authService,
		registry:    registry,
		metrics:     mets,
		log:         logger,
	}
}

// Handle authenticates the caller, upgrades the connection and pumps push
// events until either side closes.
// GET /ws?token=<jwt>
func (h *WSHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing token"})
		return
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth failed")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := &wsConn{events: make(chan proto.Outbound, eventBufferSize)}
	h.registry.Register(claims.UserID, client)
	if h.metrics != nil {
		h.metrics.ConnectedClients.Inc()
	}
	h.log.Info().Int64("user_id", claims.UserID).Msg("ws connected")

	defer func() {
		h.registry.Unregister(claims.UserID, client)
		if h.metrics != nil {
			h.metrics.ConnectedClients.Dec()
		}
		h.log.Info().Int64("user_id", claims.UserID).Msg("ws disconnected")
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Int64("user_id", claims.UserID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop drains inbound frames. The push channel is one-way; reading only
// serves to answer pings and to observe the peer closing.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *wsConn) error {
	for {
		select {
		case event := <-client.events:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
