package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/observability"
	"dealmatch-service/internal/repositories"
	"dealmatch-service/internal/ws"
)

// ChatHandler serves the per-match transcript and accepts new messages.
type ChatHandler struct {
	matchRepo   repositories.MatchRepository
	messageRepo repositories.MessageRepository
	hub         *ws.Hub
	opTimeout   time.Duration
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(matchRepo repositories.MatchRepository, messageRepo repositories.MessageRepository, hub *ws.Hub, opTimeout time.Duration) *ChatHandler {
	return &ChatHandler{
		matchRepo:   matchRepo,
		messageRepo: messageRepo,
		hub:         hub,
		opTimeout:   opTimeout,
	}
}

// ListMessages returns the full transcript for a match, oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	matchID, ok := h.authorizeParticipant(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	messages, err := h.messageRepo.ListForMatch(ctx, matchID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

type postMessageRequest struct {
	Text        string `json:"text" binding:"required"`
	ClientMsgID string `json:"client_msg_id"`
}

// PostMessage appends a message to the transcript and fans it out to the
// match's live subscribers. A retried client_msg_id returns the message
// already stored for it instead of appending twice.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	matchID, ok := h.authorizeParticipant(c)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text must not be empty"})
		return
	}
	if req.ClientMsgID == "" {
		req.ClientMsgID = uuid.NewString()
	}

	userID := c.GetString(middleware.UserIDContextKey)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	msg, err := h.messageRepo.Append(ctx, matchID, userID, req.ClientMsgID, req.Text)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to store message"})
		return
	}
	observability.IncMessageAppended()

	h.hub.BroadcastMessage(matchID, msg)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// authorizeParticipant resolves the match from the path and rejects
// viewers who are not one of its two participants.
func (h *ChatHandler) authorizeParticipant(c *gin.Context) (string, bool) {
	matchID := c.Param("match_id")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return "", false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	match, err := h.matchRepo.GetMatch(ctx, matchID)
	if errors.Is(err, repositories.ErrMatchNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return "", false
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load match"})
		return "", false
	}

	userID := c.GetString(middleware.UserIDContextKey)
	if !match.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for match"})
		return "", false
	}

	return matchID, true
}
