package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dealmatch-service/internal/compat"
	"dealmatch-service/internal/models"
	"dealmatch-service/internal/repositories"
)

type SwipeRepositoryMock struct {
	mock.Mock
}

func (m *SwipeRepositoryMock) Create(ctx context.Context, userID, dealID, direction string) (models.Swipe, error) {
	args := m.Called(ctx, userID, dealID, direction)
	var swipe models.Swipe
	if val := args.Get(0); val != nil {
		swipe = val.(models.Swipe)
	}
	return swipe, args.Error(1)
}

func (m *SwipeRepositoryMock) GetForUserDeal(ctx context.Context, userID, dealID string) (models.Swipe, error) {
	args := m.Called(ctx, userID, dealID)
	var swipe models.Swipe
	if val := args.Get(0); val != nil {
		swipe = val.(models.Swipe)
	}
	return swipe, args.Error(1)
}

func (m *SwipeRepositoryMock) RightSwipesOnDeal(ctx context.Context, dealID, excludeUserID string) ([]models.Swipe, error) {
	args := m.Called(ctx, dealID, excludeUserID)
	var swipes []models.Swipe
	if val := args.Get(0); val != nil {
		swipes = val.([]models.Swipe)
	}
	return swipes, args.Error(1)
}

type MatchRepositoryMock struct {
	mock.Mock
}

func (m *MatchRepositoryMock) CreateIfAbsent(ctx context.Context, userA, userB, dealID string) (models.Match, bool, error) {
	args := m.Called(ctx, userA, userB, dealID)
	var match models.Match
	if val := args.Get(0); val != nil {
		match = val.(models.Match)
	}
	return match, args.Bool(1), args.Error(2)
}

func (m *MatchRepositoryMock) GetMatch(ctx context.Context, matchID string) (models.Match, error) {
	args := m.Called(ctx, matchID)
	var match models.Match
	if val := args.Get(0); val != nil {
		match = val.(models.Match)
	}
	return match, args.Error(1)
}

func (m *MatchRepositoryMock) GetByPairAndDeal(ctx context.Context, userA, userB, dealID string) (models.Match, error) {
	args := m.Called(ctx, userA, userB, dealID)
	var match models.Match
	if val := args.Get(0); val != nil {
		match = val.(models.Match)
	}
	return match, args.Error(1)
}

func (m *MatchRepositoryMock) IsParticipant(ctx context.Context, matchID, userID string) (bool, error) {
	args := m.Called(ctx, matchID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MatchRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Match, error) {
	args := m.Called(ctx, userID)
	var matches []models.Match
	if val := args.Get(0); val != nil {
		matches = val.([]models.Match)
	}
	return matches, args.Error(1)
}

func (m *MatchRepositoryMock) ConsumeUnnotified(ctx context.Context, userID string) ([]models.Match, error) {
	args := m.Called(ctx, userID)
	var matches []models.Match
	if val := args.Get(0); val != nil {
		matches = val.([]models.Match)
	}
	return matches, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, matchID, senderID, clientMsgID, text string) (models.Message, error) {
	args := m.Called(ctx, matchID, senderID, clientMsgID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForMatch(ctx context.Context, matchID string) ([]models.Message, error) {
	args := m.Called(ctx, matchID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) Get(ctx context.Context, userID string) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetMany(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	args := m.Called(ctx, userIDs)
	var profiles []models.Profile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.Profile)
	}
	return profiles, args.Error(1)
}

type CheckerMock struct {
	mock.Mock
}

func (m *CheckerMock) IsCompatible(ctx context.Context, userA, userB string) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

var _ repositories.SwipeRepository = (*SwipeRepositoryMock)(nil)
var _ repositories.MatchRepository = (*MatchRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)
var _ compat.Checker = (*CheckerMock)(nil)
