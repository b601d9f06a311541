package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadis/amblue/internal/agent/react"
)

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(t.Context(), "conv-1", "sql")
	assert.ErrorIs(t, err, react.ErrNoCheckpoint)
}

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory()

	snap := react.Snapshot{
		Messages: []react.Message{react.NewHumanMessage("hi"), react.NewAIMessage("hello")},
		Step:     3,
	}
	require.NoError(t, m.Put(t.Context(), "conv-1", "sql", snap))

	got, err := m.Get(t.Context(), "conv-1", "sql")
	require.NoError(t, err)
	assert.Equal(t, snap.Messages, got.Messages)
	assert.Equal(t, int64(3), got.Step)
}

func TestMemory_NamespacedByAgent(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Put(t.Context(), "conv-1", "sql",
		react.Snapshot{Messages: []react.Message{react.NewHumanMessage("sql history")}}))

	_, err := m.Get(t.Context(), "conv-1", "docs")
	assert.ErrorIs(t, err, react.ErrNoCheckpoint)
}

func TestMemory_CopiesState(t *testing.T) {
	m := NewMemory()

	msgs := []react.Message{react.NewHumanMessage("original")}
	require.NoError(t, m.Put(t.Context(), "conv-1", "sql", react.Snapshot{Messages: msgs}))

	// Mutating the caller's slice must not affect stored state.
	msgs[0].Content = "mutated"

	got, err := m.Get(t.Context(), "conv-1", "sql")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Messages[0].Content)

	// Mutating a returned snapshot must not affect stored state either.
	got.Messages[0].Content = "mutated again"
	again, err := m.Get(t.Context(), "conv-1", "sql")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Messages[0].Content)
}
