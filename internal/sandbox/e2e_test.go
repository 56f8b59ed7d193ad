package sandbox_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorales/periogame/internal/backend"
	"github.com/dmorales/periogame/internal/game"
	"github.com/dmorales/periogame/internal/models"
	"github.com/dmorales/periogame/internal/sandbox"
)

// These tests play whole sessions through the real HTTP client against the
// sandbox, exercising the full protocol: envelope decoding, probe semantics
// and server-side scoring.

func newE2EEngine(t *testing.T, srv *httptest.Server, userID string) (*game.Engine, *backend.Client) {
	t.Helper()
	ctx := context.Background()
	client := backend.New(srv.URL)

	sess, err := client.CreateGame(ctx, userID, sandbox.DemoGroupCode)
	require.NoError(t, err)

	engine, err := game.New(client, models.AuthUser{ID: userID, Name: "Dana"}, sess.ID)
	require.NoError(t, err)
	return engine, client
}

// answerCurrent submits the current question choosing a correct or incorrect
// option, then continues unless the session ended.
func answerCurrent(t *testing.T, engine *game.Engine, correct bool) {
	t.Helper()
	ctx := context.Background()

	q, ok := engine.Current()
	require.True(t, ok)

	var optionID string
	for _, o := range q.Options {
		if (o.IsCorrect == 1) == correct {
			optionID = o.OptionID()
			break
		}
	}
	require.NotEmpty(t, optionID)

	ans, err := engine.Submit(ctx, optionID)
	require.NoError(t, err)
	assert.Equal(t, correct, ans.Correct())

	if engine.Phase() == game.PhaseAwaitingContinue {
		require.NoError(t, engine.Continue(ctx))
	}
}

func TestPlayFullSessionToCompletion(t *testing.T) {
	srv, _, _ := newTestServer(t)
	engine, _ := newE2EEngine(t, srv, "player-1")
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	require.Equal(t, game.PhaseAwaitingStart, engine.Phase())
	require.NoError(t, engine.Start(ctx))
	require.Equal(t, game.PhaseInProgress, engine.Phase())

	total := engine.TotalQuestions()
	require.Equal(t, 5, total)

	for engine.Phase() == game.PhaseInProgress {
		answerCurrent(t, engine, true)
	}

	require.Equal(t, game.PhaseFinished, engine.Phase())
	snap := engine.Snapshot()
	assert.Equal(t, total*100, snap.Grade)
	assert.Equal(t, 3, snap.Lives)
	assert.Equal(t, total, snap.TotalAnswered)
	assert.True(t, snap.Finished())
}

func TestPlayUntilLivesRunOut(t *testing.T) {
	srv, _, _ := newTestServer(t)
	engine, _ := newE2EEngine(t, srv, "player-2")
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	require.NoError(t, engine.Start(ctx))

	answered := 0
	for engine.Phase() == game.PhaseInProgress {
		answerCurrent(t, engine, false)
		answered++
	}

	// Three wrong answers exhaust the lives; the server closes the session
	// early and the engine follows.
	assert.Equal(t, 3, answered)
	require.Equal(t, game.PhaseFinished, engine.Phase())
	snap := engine.Snapshot()
	assert.Equal(t, 0, snap.Lives)
	assert.Equal(t, 0, snap.Grade)
	assert.True(t, snap.Finished())
}

func TestResumeSkipsAnsweredQuestions(t *testing.T) {
	srv, _, _ := newTestServer(t)
	engine, client := newE2EEngine(t, srv, "player-3")
	ctx := context.Background()

	require.NoError(t, engine.Load(ctx))
	require.NoError(t, engine.Start(ctx))

	// Answer the first two questions, then abandon the session.
	answerCurrent(t, engine, true)
	answerCurrent(t, engine, true)
	require.Equal(t, 2, engine.Index())
	gameID := engine.Snapshot().ID

	// A fresh engine over the same session resumes at the third question
	// with the score intact.
	resumed, err := game.New(client, models.AuthUser{ID: "player-3"}, gameID)
	require.NoError(t, err)
	require.NoError(t, resumed.Load(ctx))
	require.Equal(t, game.PhaseAwaitingStart, resumed.Phase())
	require.NoError(t, resumed.Start(ctx))

	assert.Equal(t, game.PhaseInProgress, resumed.Phase())
	assert.Equal(t, 2, resumed.Index())
	assert.Equal(t, 200, resumed.Snapshot().Grade)

	for resumed.Phase() == game.PhaseInProgress {
		answerCurrent(t, resumed, true)
	}
	assert.Equal(t, game.PhaseFinished, resumed.Phase())
	assert.Equal(t, 500, resumed.Snapshot().Grade)
}
