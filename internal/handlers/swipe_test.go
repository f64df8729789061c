package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dealmatch-service/internal/matching"
	"dealmatch-service/internal/middleware"
	"dealmatch-service/internal/mocks"
	"dealmatch-service/internal/models"
	"dealmatch-service/internal/repositories"
)

func setupSwipeRouter(handler *SwipeHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, "alice")
		c.Next()
	})
	r.POST("/deals/:deal_id/swipes", handler.PostSwipe)
	return r
}

func newSwipeHandler(swipes *mocks.SwipeRepositoryMock, matches *mocks.MatchRepositoryMock, checker *mocks.CheckerMock) *SwipeHandler {
	resolver := matching.NewResolver(swipes, matches, checker, nil, zerolog.Nop())
	return NewSwipeHandler(swipes, resolver, nil, time.Second)
}

func TestPostSwipeLeftRecorded(t *testing.T) {
	swipes := new(mocks.SwipeRepositoryMock)
	handler := newSwipeHandler(swipes, new(mocks.MatchRepositoryMock), new(mocks.CheckerMock))
	router := setupSwipeRouter(handler)

	swipes.On("Create", mock.Anything, "alice", "deal-1", "left").
		Return(models.Swipe{ID: "s1", UserID: "alice", DealID: "deal-1", Direction: "left"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/deals/deal-1/swipes", bytes.NewBufferString(`{"direction":"left"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "recorded", resp["status"])
	assert.NotContains(t, resp, "match")

	// left swipes never touch the resolver
	swipes.AssertNotCalled(t, "RightSwipesOnDeal", mock.Anything, mock.Anything, mock.Anything)
	swipes.AssertExpectations(t)
}

func TestPostSwipeRightCreatesMatch(t *testing.T) {
	swipes := new(mocks.SwipeRepositoryMock)
	matches := new(mocks.MatchRepositoryMock)
	checker := new(mocks.CheckerMock)
	handler := newSwipeHandler(swipes, matches, checker)
	router := setupSwipeRouter(handler)

	swipes.On("Create", mock.Anything, "alice", "deal-1", "right").
		Return(models.Swipe{ID: "s1", UserID: "alice", DealID: "deal-1", Direction: "right"}, nil).Once()
	swipes.On("RightSwipesOnDeal", mock.Anything, "deal-1", "alice").
		Return([]models.Swipe{{ID: "s0", UserID: "bob"}}, nil).Once()
	checker.On("IsCompatible", mock.Anything, "alice", "bob").Return(true, nil).Once()
	matches.On("CreateIfAbsent", mock.Anything, "alice", "bob", "deal-1").
		Return(models.Match{ID: "m1", User1ID: "alice", User2ID: "bob", DealID: "deal-1"}, true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/deals/deal-1/swipes", bytes.NewBufferString(`{"direction":"right"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["match_created"])
	require.Contains(t, resp, "match")
	swipes.AssertExpectations(t)
	matches.AssertExpectations(t)
}

func TestPostSwipeDuplicateReturnsFirstDecision(t *testing.T) {
	swipes := new(mocks.SwipeRepositoryMock)
	handler := newSwipeHandler(swipes, new(mocks.MatchRepositoryMock), new(mocks.CheckerMock))
	router := setupSwipeRouter(handler)

	swipes.On("Create", mock.Anything, "alice", "deal-1", "right").
		Return(models.Swipe{}, repositories.ErrDuplicateSwipe).Once()
	swipes.On("GetForUserDeal", mock.Anything, "alice", "deal-1").
		Return(models.Swipe{ID: "s1", UserID: "alice", DealID: "deal-1", Direction: "left"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/deals/deal-1/swipes", bytes.NewBufferString(`{"direction":"right"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "already_decided", resp["status"])

	swipe := resp["swipe"].(map[string]any)
	assert.Equal(t, "left", swipe["direction"])
	swipes.AssertExpectations(t)
}

func TestPostSwipeInvalidDirection(t *testing.T) {
	handler := newSwipeHandler(new(mocks.SwipeRepositoryMock), new(mocks.MatchRepositoryMock), new(mocks.CheckerMock))
	router := setupSwipeRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/deals/deal-1/swipes", bytes.NewBufferString(`{"direction":"up"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostSwipeResolverFailureStillRecords(t *testing.T) {
	swipes := new(mocks.SwipeRepositoryMock)
	handler := newSwipeHandler(swipes, new(mocks.MatchRepositoryMock), new(mocks.CheckerMock))
	router := setupSwipeRouter(handler)

	swipes.On("Create", mock.Anything, "alice", "deal-1", "right").
		Return(models.Swipe{ID: "s1", UserID: "alice", DealID: "deal-1", Direction: "right"}, nil).Once()
	swipes.On("RightSwipesOnDeal", mock.Anything, "deal-1", "alice").
		Return(([]models.Swipe)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/deals/deal-1/swipes", bytes.NewBufferString(`{"direction":"right"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "recorded", resp["status"])
	assert.NotContains(t, resp, "match")
	swipes.AssertExpectations(t)
}

func TestPostSwipeStorageError(t *testing.T) {
	swipes := new(mocks.SwipeRepositoryMock)
	handler := newSwipeHandler(swipes, new(mocks.MatchRepositoryMock), new(mocks.CheckerMock))
	router := setupSwipeRouter(handler)

	swipes.On("Create", mock.Anything, "alice", "deal-1", "left").
		Return(models.Swipe{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/deals/deal-1/swipes", bytes.NewBufferString(`{"direction":"left"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	swipes.AssertExpectations(t)
}
