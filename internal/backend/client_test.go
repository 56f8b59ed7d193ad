package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmorales/periogame/internal/apperr"
	"github.com/dmorales/periogame/internal/backend"
)

// envelopeHandler serves one canned JSON envelope for every request and
// records the last decoded request body.
type envelopeHandler struct {
	status   int
	message  string
	data     string
	httpCode int
	lastBody map[string]any
	lastPath string
}

func (h *envelopeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.lastPath = r.URL.Path
	if r.Body != nil {
		h.lastBody = nil
		_ = json.NewDecoder(r.Body).Decode(&h.lastBody)
	}
	code := h.httpCode
	if code == 0 {
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	data := h.data
	if data == "" {
		data = "null"
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  h.status,
		"message": h.message,
		"data":    json.RawMessage(data),
	})
}

func newTestClient(t *testing.T, h http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL)
}

func testKey() backend.AnswerKey {
	return backend.AnswerKey{
		GroupID:    "grp-1",
		UserID:     "user-7",
		QuestionID: "q1",
		GameID:     "game-1",
	}
}

func TestGetGame(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes snapshot", func(t *testing.T) {
		h := &envelopeHandler{
			status: 200,
			data:   `{"id":"game-1","group_id":"grp-1","grade":200,"lifes":2,"started_on":"2026-03-14 10:00:00","finished_on":null}`,
		}
		c := newTestClient(t, h)

		g, err := c.GetGame(ctx, "game-1")
		require.NoError(t, err)
		assert.Equal(t, "/games/save", h.lastPath)
		assert.Equal(t, "SEL_ID", h.lastBody["action"])
		assert.Equal(t, "game-1", h.lastBody["game_id"])
		assert.Equal(t, 200, g.Grade)
		assert.Equal(t, 2, g.Lives)
		assert.False(t, g.Finished())
	})

	t.Run("json status overrides http status", func(t *testing.T) {
		// HTTP 200 carrying a semantic failure must fail, and the reverse
		// never happens: branching is on the envelope alone.
		h := &envelopeHandler{status: 500, message: "boom", httpCode: http.StatusOK}
		c := newTestClient(t, h)

		_, err := c.GetGame(ctx, "game-1")
		require.Error(t, err)
		assert.True(t, apperr.IsServerError(err))
	})

	t.Run("status 400 is not found", func(t *testing.T) {
		h := &envelopeHandler{status: 400, message: "no such game"}
		c := newTestClient(t, h)

		_, err := c.GetGame(ctx, "missing")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestStartGame(t *testing.T) {
	h := &envelopeHandler{
		status: 200,
		data:   `{"id":"game-1","started_on":"2026-03-14 10:00:00"}`,
	}
	c := newTestClient(t, h)

	g, err := c.StartGame(context.Background(), "game-1", "user-7")
	require.NoError(t, err)
	assert.Equal(t, "STR", h.lastBody["action"])
	assert.Equal(t, "user-7", h.lastBody["user_id"])
	assert.False(t, g.StartedOn.IsZero())
}

func TestCreateGame(t *testing.T) {
	ctx := context.Background()

	t.Run("creates session", func(t *testing.T) {
		h := &envelopeHandler{
			status: 201,
			data:   `{"id":"game-2","group_id":"grp-1","lifes":3}`,
		}
		c := newTestClient(t, h)

		g, err := c.CreateGame(ctx, "user-7", "PERIO1")
		require.NoError(t, err)
		assert.Equal(t, "INS", h.lastBody["action"])
		assert.Equal(t, "PERIO1", h.lastBody["group_id"])
		assert.EqualValues(t, 0, h.lastBody["grade"])
		assert.Equal(t, 3, g.Lives)
	})

	t.Run("active session conflict", func(t *testing.T) {
		h := &envelopeHandler{status: 409, message: "Conflict: an active game already exists"}
		c := newTestClient(t, h)

		_, err := c.CreateGame(ctx, "user-7", "PERIO1")
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Contains(t, err.Error(), "an active game already exists")
	})
}

func TestGetGroupByCode(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		h := &envelopeHandler{status: 200, data: `{"id":"grp-1","code":"PERIO1","name":"Periodontitis"}`}
		c := newTestClient(t, h)

		g, err := c.GetGroupByCode(ctx, "PERIO1")
		require.NoError(t, err)
		assert.Equal(t, "/groups/code/PERIO1", h.lastPath)
		assert.Equal(t, "grp-1", g.ID)
	})

	t.Run("unknown code", func(t *testing.T) {
		h := &envelopeHandler{status: 400, message: "group not found"}
		c := newTestClient(t, h)

		_, err := c.GetGroupByCode(ctx, "NOPE")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestGetGroupQuestions(t *testing.T) {
	ctx := context.Background()

	t.Run("ordered set", func(t *testing.T) {
		h := &envelopeHandler{
			status: 200,
			data: `[{"id":"q1","title":"first","options":[{"option_id":"o1","text_option":"a","is_correct":1}]},
			        {"id":"q2","title":"second","options":[]}]`,
		}
		c := newTestClient(t, h)

		qs, err := c.GetGroupQuestions(ctx, "grp-1")
		require.NoError(t, err)
		assert.Equal(t, "/groups/grp-1/questions/all", h.lastPath)
		require.Len(t, qs, 2)
		assert.Equal(t, "q1", qs[0].ID)
		// The questions endpoint ships option ids under "option_id".
		require.Len(t, qs[0].Options, 1)
		assert.Equal(t, "o1", qs[0].Options[0].OptionID())
	})

	t.Run("empty set is an error", func(t *testing.T) {
		h := &envelopeHandler{status: 200, data: `[]`}
		c := newTestClient(t, h)

		_, err := c.GetGroupQuestions(ctx, "grp-1")
		require.Error(t, err)
		assert.True(t, apperr.IsServerError(err))
	})
}

func TestProbeAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a slot", func(t *testing.T) {
		h := &envelopeHandler{
			status: 200,
			data:   `{"id":"ans-1","question_id":"q1","finished_on":null}`,
		}
		c := newTestClient(t, h)

		ans, err := c.ProbeAnswer(ctx, testKey())
		require.NoError(t, err)
		assert.Equal(t, "/questions/answer/save", h.lastPath)
		// A probe sends explicit nulls for both the slot and the option.
		assert.Contains(t, h.lastBody, "answer_id")
		assert.Nil(t, h.lastBody["answer_id"])
		assert.Contains(t, h.lastBody, "q_option_id")
		assert.Nil(t, h.lastBody["q_option_id"])
		assert.Equal(t, "ans-1", ans.ID)
		assert.False(t, ans.Finalized())
	})

	t.Run("already answered is detected by message", func(t *testing.T) {
		// The backend wraps this outcome in the same status-500 envelope it
		// uses for genuine failures; only the message distinguishes them.
		h := &envelopeHandler{status: 500, message: "El usuario ya respondió esta pregunta"}
		c := newTestClient(t, h)

		_, err := c.ProbeAnswer(ctx, testKey())
		require.Error(t, err)
		assert.True(t, apperr.IsAlreadyAnswered(err))
	})

	t.Run("other status 500 stays a server error", func(t *testing.T) {
		h := &envelopeHandler{status: 500, message: "database exploded"}
		c := newTestClient(t, h)

		_, err := c.ProbeAnswer(ctx, testKey())
		require.Error(t, err)
		assert.True(t, apperr.IsServerError(err))
		assert.False(t, apperr.IsAlreadyAnswered(err))
	})
}

func TestFinalizeAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("submits option", func(t *testing.T) {
		h := &envelopeHandler{
			status: 200,
			data:   `{"id":"ans-1","question_id":"q1","q_option_id":"o1","is_correct":1,"finished_on":"2026-03-14 10:00:30"}`,
		}
		c := newTestClient(t, h)

		ans, err := c.FinalizeAnswer(ctx, testKey(), "ans-1", "o1")
		require.NoError(t, err)
		assert.Equal(t, "ans-1", h.lastBody["answer_id"])
		assert.Equal(t, "o1", h.lastBody["q_option_id"])
		assert.True(t, ans.Finalized())
		assert.True(t, ans.Correct())
	})

	t.Run("failure surfaces for retry", func(t *testing.T) {
		h := &envelopeHandler{status: 500, message: "write failed"}
		c := newTestClient(t, h)

		_, err := c.FinalizeAnswer(ctx, testKey(), "ans-1", "o1")
		require.Error(t, err)
		assert.True(t, apperr.IsServerError(err))
	})
}

func TestTransportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		t.Cleanup(srv.Close)
		c := backend.New(srv.URL)

		_, err := c.GetGame(ctx, "game-1")
		require.Error(t, err)
		assert.True(t, apperr.IsServerError(err))
	})

	t.Run("unreachable backend", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := backend.New(url)

		_, err := c.GetGame(ctx, "game-1")
		require.Error(t, err)
		assert.True(t, apperr.IsServerError(err))
	})
}
