package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/observability"
	"dealmatch-service/internal/repositories"
)

// ChatWSHandler upgrades chat subscriptions for one match.
type ChatWSHandler struct {
	hub       *Hub
	matchRepo repositories.MatchRepository
	jwtSecret []byte
}

// NewChatWSHandler constructs a ChatWSHandler.
func NewChatWSHandler(hub *Hub, matchRepo repositories.MatchRepository, jwtSecret []byte) *ChatWSHandler {
	return &ChatWSHandler{hub: hub, matchRepo: matchRepo, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authorizes the viewer as a match participant, upgrades the
// connection and registers it with the hub. The read loop exists to
// detect close; clients do not send chat payloads over the socket, they
// POST messages and receive broadcasts here. Only plain values and the
// raw connection cross into the read loop goroutine: gin reclaims the
// request context once this handler returns.
func (h *ChatWSHandler) Handle(c *gin.Context) {
	matchID := c.Param("match_id")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return
	}

	ctx, span := otel.Tracer("dealmatch-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := middleware.TokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := middleware.ValidateToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.matchRepo.IsParticipant(ctx, matchID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for match"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	meta := observability.ClientMetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Subscribe(matchID, conn, info)

	observability.IncWSActive()
	h.publishLifecycleEvent(ctx, matchID, "ws_connect", info, "")

	go h.readLoop(matchID, conn, info)
}

// readLoop blocks on the connection until it closes, then unregisters the
// subscription exactly once. Missed messages during an outage are not
// replayed; the transcript reload is the recovery path. Lifecycle events
// here publish on a background context: the request context belongs to
// gin and is recycled after the handshake returns.
func (h *ChatWSHandler) readLoop(matchID string, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Unsubscribe(matchID, conn)
		observability.DecWSActive()
		h.publishLifecycleEvent(context.Background(), matchID, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.publishLifecycleEvent(context.Background(), matchID, "ws_error", info, closeReason)
			}
			return
		}
	}
}

func (h *ChatWSHandler) publishLifecycleEvent(ctx context.Context, matchID, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(event)

	duration := time.Duration(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt)
	}
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	envelope := observability.NewEnvelope("ws_events", event, wsEventPayload(matchID, event, info, duration, reason))
	_ = observability.PublishEvent(ctx, "ws_events.matches", envelope, headers)
}
