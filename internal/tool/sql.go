package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/amadis/amblue/internal/log"
)

// SQL tool names. The analytics agent's prompt refers to these by name, so
// they must stay in sync with it.
const (
	ToolListTables  = "sql_db_list_tables"
	ToolTableSchema = "sql_db_schema"
	ToolQuery       = "sql_db_query"
)

// Querier is the database access the SQL tools need. *pgxpool.Pool satisfies
// it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type listTablesInput struct{}

type tableSchemaInput struct {
	Tables string `json:"tables" jsonschema:"Comma-separated list of table names to describe" jsonschema_description:"Comma-separated list of table names to describe"`
}

type queryInput struct {
	Query string `json:"query" jsonschema:"A detailed and correct SQL SELECT query to execute" jsonschema_description:"A detailed and correct SQL SELECT query to execute"`
}

// NewSQLTools builds the database inspection and query tools backed by q.
func NewSQLTools(q Querier, logger log.Logger) ([]*Tool, error) {
	logger = logger.With("component", "sql_tools")

	list, err := New(ToolListTables,
		"Input is an empty object, output is a comma-separated list of tables in the database.",
		func(ctx context.Context, _ listTablesInput) (string, error) {
			return listTables(ctx, q)
		})
	if err != nil {
		return nil, err
	}

	schema, err := New(ToolTableSchema,
		"Input is a comma-separated list of tables, output is the schema for those tables. "+
			"Be sure the tables exist by calling "+ToolListTables+" first.",
		func(ctx context.Context, input tableSchemaInput) (string, error) {
			return describeTables(ctx, q, input.Tables)
		})
	if err != nil {
		return nil, err
	}

	query, err := New(ToolQuery,
		"Input is a detailed and correct SQL query, output is a result from the database. "+
			"If the query is not correct, an error message will be returned. "+
			"If an error is returned, rewrite the query, check the query, and try again.",
		func(ctx context.Context, input queryInput) (string, error) {
			logger.Debug("executing SQL query", "query", input.Query)
			return runReadOnlyQuery(ctx, q, input.Query)
		})
	if err != nil {
		return nil, err
	}

	return []*Tool{list, schema, query}, nil
}

func listTables(ctx context.Context, q Querier) (string, error) {
	rows, err := q.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	return strings.Join(names, ", "), nil
}

func describeTables(ctx context.Context, q Querier, tables string) (string, error) {
	var sections []string
	for _, raw := range strings.Split(tables, ",") {
		table := strings.TrimSpace(raw)
		if table == "" {
			continue
		}

		section, err := describeTable(ctx, q, table)
		if err != nil {
			return "", err
		}
		sections = append(sections, section)
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("no table names given")
	}
	return strings.Join(sections, "\n\n"), nil
}

func describeTable(ctx context.Context, q Querier, table string) (string, error) {
	rows, err := q.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return "", fmt.Errorf("describing table %q: %w", table, err)
	}
	defer rows.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "Table %q:\n", table)

	found := false
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return "", fmt.Errorf("scanning column of %q: %w", table, err)
		}
		found = true
		fmt.Fprintf(&b, "  %q %s", name, dataType)
		if nullable == "NO" {
			b.WriteString(" NOT NULL")
		}
		b.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("describing table %q: %w", table, err)
	}
	if !found {
		return "", fmt.Errorf("table %q does not exist", table)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// runReadOnlyQuery executes a single read-only statement and renders the
// result set as text.
func runReadOnlyQuery(ctx context.Context, q Querier, query string) (string, error) {
	if err := checkReadOnly(query); err != nil {
		return "", err
	}

	rows, err := q.Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	return renderRows(rows)
}

// checkReadOnly rejects anything that is not a single SELECT (or WITH)
// statement. The model is instructed to only read; this is a second line of
// defense, not a SQL parser.
func checkReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("empty query")
	}

	if i := strings.Index(trimmed, ";"); i >= 0 && strings.TrimSpace(trimmed[i+1:]) != "" {
		return fmt.Errorf("only a single statement is allowed")
	}

	head := strings.ToUpper(trimmed)
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed")
	}
	return nil
}

// renderRows renders a result set as a header line followed by one line per
// row, columns separated by " | ".
func renderRows(rows pgx.Rows) (string, error) {
	fields := rows.FieldDescriptions()
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Name
	}

	var b strings.Builder
	b.WriteString(strings.Join(headers, " | "))

	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return "", fmt.Errorf("reading row: %w", err)
		}

		cells := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("executing query: %w", err)
	}

	if count == 0 {
		return "(no rows)", nil
	}
	return b.String(), nil
}
