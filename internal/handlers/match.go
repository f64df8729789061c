package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/models"
	"dealmatch-service/internal/observability"
	"dealmatch-service/internal/repositories"
)

// MatchHandler serves the user's matches and the one-time notification
// surfacing.
type MatchHandler struct {
	matchRepo   repositories.MatchRepository
	profileRepo repositories.ProfileRepository
	opTimeout   time.Duration
}

// NewMatchHandler builds a MatchHandler.
func NewMatchHandler(matchRepo repositories.MatchRepository, profileRepo repositories.ProfileRepository, opTimeout time.Duration) *MatchHandler {
	return &MatchHandler{matchRepo: matchRepo, profileRepo: profileRepo, opTimeout: opTimeout}
}

// ListMatches returns the user's matches with counterpart display names.
func (h *MatchHandler) ListMatches(c *gin.Context) {
	userID := c.GetString(middleware.UserIDContextKey)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	matches, err := h.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": h.summarize(ctx, userID, matches)})
}

// ConsumeNotifications atomically claims and returns the matches not yet
// surfaced to this user. Safe to call repeatedly: once claimed, a match
// never reappears here.
func (h *MatchHandler) ConsumeNotifications(c *gin.Context) {
	userID := c.GetString(middleware.UserIDContextKey)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opTimeout)
	defer cancel()

	claimed, err := h.matchRepo.ConsumeUnnotified(ctx, userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to consume notifications"})
		return
	}
	observability.AddNotificationsConsumed(len(claimed))

	c.JSON(http.StatusOK, gin.H{
		"matches": h.summarize(ctx, userID, claimed),
		"count":   len(claimed),
	})
}

// summarize converts matches to the per-user view. Profile lookup failure
// degrades to summaries without names rather than failing the request.
func (h *MatchHandler) summarize(ctx context.Context, userID string, matches []models.Match) []models.MatchSummary {
	counterpartIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		counterpartIDs = append(counterpartIDs, m.Counterpart(userID))
	}

	names := map[string]string{}
	if profiles, err := h.profileRepo.GetMany(ctx, counterpartIDs); err == nil {
		for _, p := range profiles {
			names[p.UserID] = p.DisplayName
		}
	}

	summaries := make([]models.MatchSummary, 0, len(matches))
	for _, m := range matches {
		counterpart := m.Counterpart(userID)
		summaries = append(summaries, models.MatchSummary{
			MatchID:         m.ID,
			DealID:          m.DealID,
			CounterpartID:   counterpart,
			CounterpartName: names[counterpart],
			CreatedAt:       m.CreatedAt,
		})
	}
	return summaries
}
