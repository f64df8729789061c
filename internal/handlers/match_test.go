package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/mocks"
	"dealmatch-service/internal/models"
)

func setupMatchRouter(handler *MatchHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, "alice")
		c.Next()
	})
	r.GET("/matches", handler.ListMatches)
	r.POST("/matches/notifications/consume", handler.ConsumeNotifications)
	return r
}

func TestListMatchesWithCounterpartNames(t *testing.T) {
	matches := new(mocks.MatchRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	handler := NewMatchHandler(matches, profiles, time.Second)
	router := setupMatchRouter(handler)

	matches.On("ListForUser", mock.Anything, "alice").Return([]models.Match{
		{ID: "m1", User1ID: "alice", User2ID: "bob", DealID: "deal-1"},
		{ID: "m2", User1ID: "carol", User2ID: "alice", DealID: "deal-2"},
	}, nil).Once()
	profiles.On("GetMany", mock.Anything, []string{"bob", "carol"}).Return([]models.Profile{
		{UserID: "bob", DisplayName: "Bob"},
		{UserID: "carol", DisplayName: "Carol"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matches []models.MatchSummary `json:"matches"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, "bob", resp.Matches[0].CounterpartID)
	assert.Equal(t, "Bob", resp.Matches[0].CounterpartName)
	assert.Equal(t, "carol", resp.Matches[1].CounterpartID)
	matches.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestListMatchesProfileLookupFailureDegrades(t *testing.T) {
	matches := new(mocks.MatchRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	handler := NewMatchHandler(matches, profiles, time.Second)
	router := setupMatchRouter(handler)

	matches.On("ListForUser", mock.Anything, "alice").Return([]models.Match{
		{ID: "m1", User1ID: "alice", User2ID: "bob", DealID: "deal-1"},
	}, nil).Once()
	profiles.On("GetMany", mock.Anything, []string{"bob"}).Return(([]models.Profile)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matches []models.MatchSummary `json:"matches"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Matches, 1)
	assert.Empty(t, resp.Matches[0].CounterpartName)
}

func TestListMatchesRepoError(t *testing.T) {
	matches := new(mocks.MatchRepositoryMock)
	handler := NewMatchHandler(matches, new(mocks.ProfileRepositoryMock), time.Second)
	router := setupMatchRouter(handler)

	matches.On("ListForUser", mock.Anything, "alice").Return(([]models.Match)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConsumeNotificationsClaimsOnce(t *testing.T) {
	matches := new(mocks.MatchRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	handler := NewMatchHandler(matches, profiles, time.Second)
	router := setupMatchRouter(handler)

	matches.On("ConsumeUnnotified", mock.Anything, "alice").Return([]models.Match{
		{ID: "m1", User1ID: "alice", User2ID: "bob", DealID: "deal-1"},
	}, nil).Once()
	matches.On("ConsumeUnnotified", mock.Anything, "alice").Return([]models.Match{}, nil).Once()
	profiles.On("GetMany", mock.Anything, []string{"bob"}).Return([]models.Profile{{UserID: "bob", DisplayName: "Bob"}}, nil).Once()
	profiles.On("GetMany", mock.Anything, []string{}).Return([]models.Profile{}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/matches/notifications/consume", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var first map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.Equal(t, float64(1), first["count"])

	// second call finds everything already claimed
	req = httptest.NewRequest(http.MethodPost, "/matches/notifications/consume", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var second map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, float64(0), second["count"])
	matches.AssertExpectations(t)
}

func TestConsumeNotificationsRepoError(t *testing.T) {
	matches := new(mocks.MatchRepositoryMock)
	handler := NewMatchHandler(matches, new(mocks.ProfileRepositoryMock), time.Second)
	router := setupMatchRouter(handler)

	matches.On("ConsumeUnnotified", mock.Anything, "alice").Return(([]models.Match)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/matches/notifications/consume", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
