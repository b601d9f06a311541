//go:build integration
// +build integration

package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadis/amblue/internal/testutil"
)

func TestStore_EnsureIdempotent_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := New(dbContainer.Pool, testutil.QuietLogger())

	require.NoError(t, s.Ensure(ctx, "conv-1", "user-1"))
	require.NoError(t, s.Ensure(ctx, "conv-1", "user-1"))

	exists, err := s.Exists(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, exists)

	var count int
	err = dbContainer.Pool.QueryRow(ctx,
		`SELECT count(*) FROM conversations WHERE id = $1`, "conv-1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_MessageLog_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := New(dbContainer.Pool, testutil.QuietLogger())

	require.NoError(t, s.Ensure(ctx, "conv-1", "user-1"))

	firstID, err := s.AddMessage(ctx, "conv-1", "human", "how much did we spend?")
	require.NoError(t, err)
	secondID, err := s.AddMessage(ctx, "conv-1", "ai", "Total spend was $1,204.")
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)

	msgs, err := s.Messages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "human", msgs[0].Role)
	assert.Equal(t, "ai", msgs[1].Role)
}
