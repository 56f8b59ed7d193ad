package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmorales/periogame/internal/backend"
	"github.com/dmorales/periogame/internal/models"
)

// MockGameAPI is a mock implementation of backend.GameAPI
type MockGameAPI struct {
	mock.Mock
}

func (m *MockGameAPI) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameAPI) StartGame(ctx context.Context, gameID, userID string) (*models.Game, error) {
	args := m.Called(ctx, gameID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameAPI) CreateGame(ctx context.Context, userID, groupCode string) (*models.Game, error) {
	args := m.Called(ctx, userID, groupCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameAPI) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGameAPI) GetGroupQuestions(ctx context.Context, groupID string) ([]models.Question, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockGameAPI) ProbeAnswer(ctx context.Context, key backend.AnswerKey) (*models.Answer, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Answer), args.Error(1)
}

func (m *MockGameAPI) FinalizeAnswer(ctx context.Context, key backend.AnswerKey, answerID, optionID string) (*models.Answer, error) {
	args := m.Called(ctx, key, answerID, optionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Answer), args.Error(1)
}

var _ backend.GameAPI = (*MockGameAPI)(nil)
