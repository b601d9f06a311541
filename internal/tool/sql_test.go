package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadis/amblue/internal/log"
)

// fakeRows implements pgx.Rows over in-memory data.
type fakeRows struct {
	fields []string
	rows   [][]any
	idx    int
	err    error
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	descs := make([]pgconn.FieldDescription, len(r.fields))
	for i, name := range r.fields {
		descs[i] = pgconn.FieldDescription{Name: name}
	}
	return descs
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		p, ok := d.(*string)
		if !ok {
			return fmt.Errorf("fakeRows: unsupported scan target %T", d)
		}
		*p = fmt.Sprintf("%v", row[i])
	}
	return nil
}

// fakeQuerier returns canned result sets keyed by a substring of the query.
type fakeQuerier struct {
	results map[string]*fakeRows
	err     error
	queries []string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	if q.err != nil {
		return nil, q.err
	}
	for key, rows := range q.results {
		if strings.Contains(sql, key) {
			return &fakeRows{fields: rows.fields, rows: rows.rows}, nil
		}
	}
	return &fakeRows{}, nil
}

func newSQLToolRegistry(t *testing.T, q Querier) *Registry {
	t.Helper()
	tools, err := NewSQLTools(q, log.NewNop())
	require.NoError(t, err)
	reg, err := NewRegistry(tools...)
	require.NoError(t, err)
	return reg
}

func TestSQLTools_ListTables(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{
		"information_schema.tables": {
			fields: []string{"table_name"},
			rows:   [][]any{{"cost"}, {"usage"}},
		},
	}}
	reg := newSQLToolRegistry(t, q)

	out, err := reg.Execute(t.Context(), ToolListTables, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "cost, usage", out)
}

func TestSQLTools_TableSchema(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{
		"information_schema.columns": {
			fields: []string{"column_name", "data_type", "is_nullable"},
			rows: [][]any{
				{"id", "bigint", "NO"},
				{"blendedCost", "numeric", "YES"},
			},
		},
	}}
	reg := newSQLToolRegistry(t, q)

	out, err := reg.Execute(t.Context(), ToolTableSchema, map[string]any{"tables": "cost"})
	require.NoError(t, err)
	assert.Contains(t, out, `Table "cost":`)
	assert.Contains(t, out, `"id" bigint NOT NULL`)
	assert.Contains(t, out, `"blendedCost" numeric`)
}

func TestSQLTools_TableSchema_MissingTable(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{}}
	reg := newSQLToolRegistry(t, q)

	_, err := reg.Execute(t.Context(), ToolTableSchema, map[string]any{"tables": "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost" does not exist`)
}

func TestSQLTools_Query(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{
		"SELECT": {
			fields: []string{"productCode", "total"},
			rows: [][]any{
				{"AmazonEC2", 1234.5},
				{"AmazonS3", nil},
			},
		},
	}}
	reg := newSQLToolRegistry(t, q)

	out, err := reg.Execute(t.Context(), ToolQuery,
		map[string]any{"query": `SELECT "productCode", SUM("blendedCost") AS total FROM cost GROUP BY 1`})
	require.NoError(t, err)

	assert.Equal(t, "productCode | total\nAmazonEC2 | 1234.5\nAmazonS3 | NULL", out)
}

func TestSQLTools_Query_EmptyResult(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{
		"SELECT": {fields: []string{"x"}},
	}}
	reg := newSQLToolRegistry(t, q)

	out, err := reg.Execute(t.Context(), ToolQuery, map[string]any{"query": "SELECT 1 WHERE false"})
	require.NoError(t, err)
	assert.Equal(t, "(no rows)", out)
}

func TestSQLTools_Query_DatabaseError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("relation does not exist")}
	reg := newSQLToolRegistry(t, q)

	_, err := reg.Execute(t.Context(), ToolQuery, map[string]any{"query": "SELECT * FROM nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"select", `SELECT 1`, false},
		{"lowercase select", `select * from cost`, false},
		{"cte", `WITH t AS (SELECT 1) SELECT * FROM t`, false},
		{"trailing semicolon", `SELECT 1;`, false},
		{"leading whitespace", "  \n SELECT 1", false},
		{"empty", "", true},
		{"insert", `INSERT INTO cost VALUES (1)`, true},
		{"delete", `DELETE FROM cost`, true},
		{"drop", `DROP TABLE cost`, true},
		{"stacked statements", `SELECT 1; DROP TABLE cost`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkReadOnly(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
