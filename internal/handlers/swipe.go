package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dealmatch-service/internal/matching"
	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/models"
	"dealmatch-service/internal/observability"
	"dealmatch-service/internal/repositories"
	"dealmatch-service/internal/telemetry"
)

// SwipeHandler records swipe decisions and triggers match resolution.
type SwipeHandler struct {
	swipeRepo repositories.SwipeRepository
	resolver  *matching.Resolver
	emitter   *telemetry.AuditEmitter
	opTimeout time.Duration
}

// NewSwipeHandler builds a SwipeHandler. emitter may be nil.
func NewSwipeHandler(swipeRepo repositories.SwipeRepository, resolver *matching.Resolver, emitter *telemetry.AuditEmitter, opTimeout time.Duration) *SwipeHandler {
	return &SwipeHandler{
		swipeRepo: swipeRepo,
		resolver:  resolver,
		emitter:   emitter,
		opTimeout: opTimeout,
	}
}

// PostSwipe records the user's decision on a deal. A repeated decision on
// the same deal is not an error: the first one stands and is returned with
// status "already_decided". A right-swipe additionally runs the match
// resolver; a resolver failure never loses the recorded swipe.
func (h *SwipeHandler) PostSwipe(c *gin.Context) {
	dealID := c.Param("deal_id")
	if dealID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	var req struct {
		Direction string `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidDirection(req.Direction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be left or right"})
		return
	}

	userID := c.GetString(middleware.UserIDContextKey)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	swipe, err := h.swipeRepo.Create(ctx, userID, dealID, req.Direction)
	if errors.Is(err, repositories.ErrDuplicateSwipe) {
		observability.IncDuplicateSwipe()
		existing, err := h.swipeRepo.GetForUserDeal(ctx, userID, dealID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load existing decision"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "already_decided", "swipe": existing})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to record swipe"})
		return
	}
	observability.IncSwipeRecorded(swipe.Direction)

	resp := gin.H{"status": "recorded", "swipe": swipe}

	if swipe.Direction == models.DirectionRight {
		match, created, err := h.resolver.Resolve(ctx, userID, dealID)
		if err != nil {
			// The decision is persisted; resolution retries on the next
			// relevant swipe event.
			requestID := requestIDFromContext(c)
			h.emitter.Emit(ctx, "WARN", "match resolution failed after swipe", requestID, userIDFromContext(c))
		} else if match != nil {
			resp["match"] = match
			resp["match_created"] = created
		}
	}

	c.JSON(http.StatusCreated, resp)
}
