package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadis/amblue/internal/log"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	embedErr    error
	returnEmpty bool
	embeddings  []float32
	lastInput   string
	callCount   int
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInput = req.Input[0].Content[0].Text
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{}, nil
	}
	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: embeddings}},
	}, nil
}

// fakeRows implements pgx.Rows over in-memory data.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.idx-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *[]byte:
			*p = row[i].([]byte)
		case *int64:
			*p = row[i].(int64)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("fakeRows: unsupported scan target %T", d)
		}
	}
	return nil
}

// mockQuerier records statements and returns canned rows.
type mockQuerier struct {
	rows         *fakeRows
	execErr      error
	queryErr     error
	execSQL      []string
	execArgs     [][]any
	querySQL     []string
	rowsAffected int64
}

func (m *mockQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	m.querySQL = append(m.querySQL, sql)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.rows == nil {
		return &fakeRows{}, nil
	}
	return &fakeRows{rows: m.rows.rows}, nil
}

func (m *mockQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execSQL = append(m.execSQL, sql)
	m.execArgs = append(m.execArgs, args)
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", m.rowsAffected)), nil
}

func TestStore_Add_GeneratesID(t *testing.T) {
	embedder := &mockEmbedder{}
	db := &mockQuerier{}
	store := New(db, embedder, log.NewNop())

	id, err := store.Add(t.Context(), Document{Content: "EC2 costs spiked in March."})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "INSERT INTO knowledge_documents")
	assert.Contains(t, db.execSQL[0], "ON CONFLICT (id) DO UPDATE")
	assert.Equal(t, "EC2 costs spiked in March.", embedder.lastInput)
}

func TestStore_Add_KeepsGivenID(t *testing.T) {
	db := &mockQuerier{}
	store := New(db, &mockEmbedder{}, log.NewNop())

	id, err := store.Add(t.Context(), Document{ID: "doc-1", Content: "content"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	require.Len(t, db.execArgs, 1)
	assert.Equal(t, "doc-1", db.execArgs[0][0])
}

func TestStore_Add_EmbedderFailure(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{embedErr: errors.New("rate limited")}, log.NewNop())

	_, err := store.Add(t.Context(), Document{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestStore_Add_EmptyEmbedding(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, log.NewNop())

	_, err := store.Add(t.Context(), Document{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding")
}

func TestStore_Search_ReturnsContentsInOrder(t *testing.T) {
	now := time.Now()
	db := &mockQuerier{rows: &fakeRows{rows: [][]any{
		{"id-1", "nearest doc", []byte(`{"source":"report"}`), now},
		{"id-2", "second doc", []byte(`{}`), now},
	}}}
	embedder := &mockEmbedder{}
	store := New(db, embedder, log.NewNop())

	contents, err := store.Search(t.Context(), "cost anomalies", 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"nearest doc", "second doc"}, contents)
	assert.Equal(t, "cost anomalies", embedder.lastInput)
	require.Len(t, db.querySQL, 1)
	assert.Contains(t, db.querySQL[0], "embedding <=>")
}

func TestStore_SearchDocuments_ParsesMetadata(t *testing.T) {
	now := time.Now()
	db := &mockQuerier{rows: &fakeRows{rows: [][]any{
		{"id-1", "doc", []byte(`{"source":"report"}`), now},
	}}}
	store := New(db, &mockEmbedder{}, log.NewNop())

	docs, err := store.SearchDocuments(t.Context(), "q", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "report", docs[0].Metadata["source"])
}

func TestStore_Search_EmptyResult(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, log.NewNop())

	contents, err := store.Search(t.Context(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, contents)
}

func TestStore_Delete_MissingDocument(t *testing.T) {
	store := New(&mockQuerier{rowsAffected: 0}, &mockEmbedder{}, log.NewNop())

	err := store.Delete(t.Context(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestStore_Delete(t *testing.T) {
	db := &mockQuerier{rowsAffected: 1}
	store := New(db, &mockEmbedder{}, log.NewNop())

	require.NoError(t, store.Delete(t.Context(), "doc-1"))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "DELETE FROM knowledge_documents")
}
