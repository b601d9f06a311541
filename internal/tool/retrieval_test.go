package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadis/amblue/internal/log"
)

type fakeSearcher struct {
	docs      []string
	err       error
	lastQuery string
	lastLimit int
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) ([]string, error) {
	f.lastQuery = query
	f.lastLimit = limit
	return f.docs, f.err
}

func TestRetrievalTool_FormatsDocuments(t *testing.T) {
	s := &fakeSearcher{docs: []string{"first doc", "second doc"}}
	tl, err := NewRetrievalTool(s, log.NewNop())
	require.NoError(t, err)

	out, err := tl.Execute(t.Context(), map[string]any{"query": "billing anomalies"})
	require.NoError(t, err)

	assert.Equal(t, "Document 1:\nfirst doc\n\nDocument 2:\nsecond doc", out)
	assert.Equal(t, "billing anomalies", s.lastQuery)
	assert.Equal(t, retrievalTopK, s.lastLimit)
}

func TestRetrievalTool_NoResults(t *testing.T) {
	tl, err := NewRetrievalTool(&fakeSearcher{}, log.NewNop())
	require.NoError(t, err)

	out, err := tl.Execute(t.Context(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsFound, out)
}

func TestRetrievalTool_SearchErrorPropagates(t *testing.T) {
	tl, err := NewRetrievalTool(&fakeSearcher{err: errors.New("index offline")}, log.NewNop())
	require.NoError(t, err)

	_, err = tl.Execute(t.Context(), map[string]any{"query": "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index offline")
}
