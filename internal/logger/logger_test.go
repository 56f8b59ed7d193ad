package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(WithOutput(&buf), WithLevel(level), WithColors(false))
	return l, &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("Error"))
	assert.Equal(t, INFO, ParseLevel("whatever"))
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufLogger(WARN)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")
	l.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "also shown")
}

func TestPrefixAndFields(t *testing.T) {
	l, buf := newBufLogger(INFO)

	l.WithPrefix("game").WithField("game_id", "g1").WithField("attempt", 2).
		Info("positioned at question %d", 3)

	out := buf.String()
	assert.Contains(t, out, "[game]")
	assert.Contains(t, out, "positioned at question 3")
	// Fields render sorted by key.
	assert.Contains(t, out, "attempt=2 game_id=g1")
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	l, buf := newBufLogger(INFO)

	child := l.WithField("k", "v")
	l.Info("from parent")
	child.Info("from child")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.NotContains(t, string(lines[0]), "k=v")
	assert.Contains(t, string(lines[1]), "k=v")
}

func TestFromContext(t *testing.T) {
	l, _ := newBufLogger(INFO)
	ctx := NewContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, Default(), FromContext(context.Background()))
}
