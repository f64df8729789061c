package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dealmatch-service/internal/models"
	"dealmatch-service/internal/observability"
)

// Conn is the subset of a websocket connection the hub writes to.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const textMessage = 1 // websocket.TextMessage

// seenLimit bounds the per-connection dedup window. Older ids fall out;
// transcript reload covers anything beyond it.
const seenLimit = 1024

type subscriber struct {
	info ConnInfo

	// writeMu serializes writes to the connection (gorilla allows one
	// writer at a time) and guards the dedup window below.
	writeMu   sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

func (s *subscriber) alreadySeen(messageID string) bool {
	_, dup := s.seen[messageID]
	return dup
}

// markSeen records a delivered message id. Only called after a successful
// write so a failed delivery never consumes the dedup slot.
func (s *subscriber) markSeen(messageID string) {
	s.seen[messageID] = struct{}{}
	s.seenOrder = append(s.seenOrder, messageID)
	if len(s.seenOrder) > seenLimit {
		delete(s.seen, s.seenOrder[0])
		s.seenOrder = s.seenOrder[1:]
	}
}

// Hub fans newly appended messages out to the live subscribers of each
// match. Delivery is at-least-once: the transport may retry, so each
// connection suppresses message ids it has already received, and a
// message is never echoed back to the connection of its own sender.
type Hub struct {
	rooms map[string]map[Conn]*subscriber
	mu    sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]*subscriber)}
}

// Subscribe registers a connection as a live feed for one match.
func (h *Hub) Subscribe(matchID string, conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[matchID]; !ok {
		h.rooms[matchID] = make(map[Conn]*subscriber)
	}
	h.rooms[matchID][conn] = &subscriber{info: info, seen: make(map[string]struct{})}
}

// Unsubscribe releases the live feed. Idempotent: a second call for the
// same connection is a no-op.
func (h *Hub) Unsubscribe(matchID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[matchID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, matchID)
		}
	}
}

// Subscribers reports the number of live connections for a match.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[matchID])
}

// BroadcastMessage delivers a just-persisted message to the match's
// subscribers, skipping the sender's own connections and any connection
// that already received this message id. Writes to one connection are
// serialized across overlapping broadcasts by the subscriber's write
// mutex; h.mu is not held while writing.
func (h *Hub) BroadcastMessage(matchID string, msg models.Message) {
	event := models.ChatEvent{Type: "message", Message: &msg}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("marshal chat event")
		return
	}

	h.mu.Lock()
	conns := make([]Conn, 0, len(h.rooms[matchID]))
	subs := make([]*subscriber, 0, len(h.rooms[matchID]))
	for conn, sub := range h.rooms[matchID] {
		if sub.info.UserID == msg.SenderID {
			observability.IncWSDropped("own_echo")
			continue
		}
		conns = append(conns, conn)
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for i, sub := range subs {
		conn := conns[i]

		sub.writeMu.Lock()
		if sub.alreadySeen(msg.ID) {
			sub.writeMu.Unlock()
			observability.IncWSDropped("duplicate")
			continue
		}
		writeErr := conn.WriteMessage(textMessage, payload)
		if writeErr == nil {
			sub.markSeen(msg.ID)
		}
		sub.writeMu.Unlock()

		if writeErr != nil {
			log.Warn().Err(writeErr).Str("match_id", matchID).Msg("websocket write error")
			conn.Close()
			h.Unsubscribe(matchID, conn)
			h.publishWSError(matchID, sub.info, writeErr)
		}
	}
}

func (h *Hub) publishWSError(matchID string, info ConnInfo, err error) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	envelope := observability.NewEnvelope("ws_events", "ws_error", wsEventPayload(matchID, "ws_error", info, time.Since(info.ConnectedAt), err.Error()))
	_ = observability.PublishEvent(context.Background(), "ws_events.matches", envelope, headers)
	observability.IncWSEvent("ws_error")
}

func wsEventPayload(matchID, event string, info ConnInfo, duration time.Duration, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"match_id":    matchID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
