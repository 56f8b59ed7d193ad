// Package backend is the HTTP client for the Serious Game REST backend. The
// backend is a black box: every call exchanges the uniform JSON envelope and
// the envelope's semantic status field, not the HTTP status, decides success.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmorales/periogame/internal/apperr"
	"github.com/dmorales/periogame/internal/logger"
	"github.com/dmorales/periogame/internal/models"
)

// alreadyAnsweredMarker is the backend's (Spanish) message fragment signalling
// that a probed question already has a finalized answer. The backend reports
// this inside a status-500 envelope, so the message is the only way to tell
// it apart from a real server error.
const alreadyAnsweredMarker = "ya respondió esta pregunta"

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a backend client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.Default().WithPrefix("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetGame fetches the current session snapshot. Idempotent and side-effect
// free; callers must replace, never merge, prior local state with the result.
func (c *Client) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	env, err := c.postJSON(ctx, "/games/save", map[string]any{
		"action":  "SEL_ID",
		"game_id": gameID,
	})
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		if env.Status == 400 {
			return nil, apperr.NewNotFoundError("game", gameID)
		}
		return nil, apperr.NewServerError(env.Message, nil)
	}
	return decodeGame(env)
}

// StartGame marks the session started and returns the updated snapshot.
func (c *Client) StartGame(ctx context.Context, gameID, userID string) (*models.Game, error) {
	env, err := c.postJSON(ctx, "/games/save", map[string]any{
		"action":  "STR",
		"game_id": gameID,
		"user_id": userID,
	})
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, apperr.NewServerError(env.Message, nil)
	}
	return decodeGame(env)
}

// CreateGame creates a new session for the user in the group identified by
// its join code. A conflict (an active session already exists) surfaces as a
// validation error carrying the backend's message.
func (c *Client) CreateGame(ctx context.Context, userID, groupCode string) (*models.Game, error) {
	env, err := c.postJSON(ctx, "/games/save", map[string]any{
		"action":   "INS",
		"user_id":  userID,
		"group_id": groupCode,
		"grade":    0,
	})
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		if env.Status == 400 || env.Status == 409 {
			return nil, apperr.NewValidationError("game", conflictMessage(env.Message))
		}
		return nil, apperr.NewServerError(env.Message, nil)
	}
	return decodeGame(env)
}

// GetGroupByCode looks up a group by its 6-character join code.
func (c *Client) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	env, err := c.getJSON(ctx, "/groups/code/"+code)
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		if env.Status == 400 {
			return nil, apperr.NewNotFoundError("group", code)
		}
		return nil, apperr.NewServerError(env.Message, nil)
	}
	var g models.Group
	if err := json.Unmarshal(env.Data, &g); err != nil {
		return nil, apperr.NewServerError("malformed group payload", err)
	}
	return &g, nil
}

// GetGroupQuestions fetches the ordered question set for a group. Called once
// per session; an empty set is an error so callers never advance over nothing.
func (c *Client) GetGroupQuestions(ctx context.Context, groupID string) ([]models.Question, error) {
	env, err := c.getJSON(ctx, "/groups/"+groupID+"/questions/all")
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, apperr.NewServerError(env.Message, nil)
	}
	var questions []models.Question
	if err := json.Unmarshal(env.Data, &questions); err != nil {
		return nil, apperr.NewServerError("malformed question set payload", err)
	}
	if len(questions) == 0 {
		return nil, apperr.NewServerError(fmt.Sprintf("group %s has no questions", groupID), nil)
	}
	return questions, nil
}

// AnswerKey identifies one user's attempt at one question in one session.
type AnswerKey struct {
	GroupID    string
	UserID     string
	QuestionID string
	GameID     string
}

// ProbeAnswer asks whether the question is answered and, if not, opens a
// slot for it. Returns the open slot, or an ALREADY_ANSWERED outcome, or a
// SERVER_ERROR. Despite looking like a read this call mutates server state
// (it may create a new open slot), so callers must not probe a question
// again once they hold a slot id for it.
func (c *Client) ProbeAnswer(ctx context.Context, key AnswerKey) (*models.Answer, error) {
	env, err := c.postJSON(ctx, "/questions/answer/save", map[string]any{
		"answer_id":   nil,
		"group_id":    key.GroupID,
		"user_id":     key.UserID,
		"question_id": key.QuestionID,
		"q_option_id": nil,
		"game_id":     key.GameID,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case env.OK():
		return decodeAnswer(env)
	case env.Status == 500 && strings.Contains(env.Message, alreadyAnsweredMarker):
		return nil, apperr.NewAlreadyAnswered(key.QuestionID)
	default:
		// Anything else is ambiguous and must never be read as "skip".
		return nil, apperr.NewServerError(env.Message, nil)
	}
}

// FinalizeAnswer submits the chosen option for a previously opened slot. On
// failure the caller must not assume the answer was recorded and may retry
// with the same slot id; the session snapshot is not embedded in the
// response and must be re-fetched separately.
func (c *Client) FinalizeAnswer(ctx context.Context, key AnswerKey, answerID, optionID string) (*models.Answer, error) {
	env, err := c.postJSON(ctx, "/questions/answer/save", map[string]any{
		"answer_id":   answerID,
		"group_id":    key.GroupID,
		"user_id":     key.UserID,
		"question_id": key.QuestionID,
		"q_option_id": optionID,
		"game_id":     key.GameID,
	})
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		return nil, apperr.NewServerError(env.Message, nil)
	}
	return decodeAnswer(env)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*models.Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.NewServerError("failed to encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.NewServerError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string) (*models.Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperr.NewServerError("failed to create request", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*models.Envelope, error) {
	log := logger.FromContext(req.Context()).WithPrefix("backend").
		WithField("path", req.URL.Path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("request failed: %v", err)
		return nil, apperr.NewServerError("backend unreachable", err)
	}
	defer resp.Body.Close()

	log.Debug("%s %s -> http %d in %v", req.Method, req.URL.Path, resp.StatusCode, time.Since(start))

	// Branch on the envelope's semantic status, not the HTTP status: the
	// backend overloads HTTP success with non-success JSON statuses.
	var env models.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		log.Error("malformed response body: %v", err)
		return nil, apperr.NewServerError("malformed backend response", err)
	}
	if !env.OK() {
		log.Debug("non-success envelope: status=%d message=%s", env.Status, env.Message)
	}
	return &env, nil
}

func decodeGame(env *models.Envelope) (*models.Game, error) {
	var g models.Game
	if err := json.Unmarshal(env.Data, &g); err != nil {
		return nil, apperr.NewServerError("malformed game payload", err)
	}
	return &g, nil
}

func decodeAnswer(env *models.Envelope) (*models.Answer, error) {
	var a models.Answer
	if err := json.Unmarshal(env.Data, &a); err != nil {
		return nil, apperr.NewServerError("malformed answer payload", err)
	}
	return &a, nil
}

// conflictMessage strips the backend's "Error: reason" prefix from conflict
// messages before display.
func conflictMessage(msg string) string {
	if idx := strings.Index(msg, ":"); idx >= 0 {
		return strings.TrimSpace(msg[idx+1:])
	}
	return msg
}
