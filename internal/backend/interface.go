package backend

import (
	"context"

	"github.com/dmorales/periogame/internal/models"
)

// GameAPI defines the backend operations the game core depends on.
// This interface enables testability by allowing mock implementations.
type GameAPI interface {
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	StartGame(ctx context.Context, gameID, userID string) (*models.Game, error)
	CreateGame(ctx context.Context, userID, groupCode string) (*models.Game, error)
	GetGroupByCode(ctx context.Context, code string) (*models.Group, error)
	GetGroupQuestions(ctx context.Context, groupID string) ([]models.Question, error)
	ProbeAnswer(ctx context.Context, key AnswerKey) (*models.Answer, error)
	FinalizeAnswer(ctx context.Context, key AnswerKey, answerID, optionID string) (*models.Answer, error)
}

// Ensure Client implements the interface
var _ GameAPI = (*Client)(nil)
