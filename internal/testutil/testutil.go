package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmorales/periogame/internal/sandbox"
)

// NewTestStore creates an in-memory sandbox store with migrations applied.
func NewTestStore(t *testing.T) *sandbox.Store {
	t.Helper()
	store, err := sandbox.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	t.Helper()
	require.NoError(t, closer.Close())
}
