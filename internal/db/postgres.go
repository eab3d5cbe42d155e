package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/fdnorm/internal/relation"
	"github.com/tordrt/fdnorm/internal/schema"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// PostgresSource loads source relations from one PostgreSQL schema.
type PostgresSource struct {
	client *PostgresClient
	schema string
}

// NewPostgresSource creates a loader for schemaName ("public" when empty).
func NewPostgresSource(client *PostgresClient, schemaName string) *PostgresSource {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresSource{client: client, schema: schemaName}
}

// TableNames lists the base tables of the schema, sorted by name
func (s *PostgresSource) TableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := s.client.GetConnection().Query(ctx, query, s.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// columns returns a table's column names in ordinal order.
func (s *PostgresSource) columns(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := s.client.GetConnection().Query(ctx, query, s.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// LoadTable reads a table as a relation, casting every column to text.
// NULL becomes the empty string. limit <= 0 reads every row.
func (s *PostgresSource) LoadTable(ctx context.Context, name string, limit int) (*relation.Table, error) {
	cols, err := s.columns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", s.schema, name)
	}

	selects := make([]string, len(cols))
	for i, c := range cols {
		selects[i] = Postgres.Quote(c) + "::text"
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), pgx.Identifier{s.schema, name}.Sanitize())
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.client.GetConnection().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", name, err)
	}
	defer rows.Close()

	values := make([]*string, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var data [][]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			if v != nil {
				row[i] = *v
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return relation.New(name, cols, data)
}

// PostgresWriter persists decompositions into one PostgreSQL schema, loading
// rows with COPY.
type PostgresWriter struct {
	client *PostgresClient
	schema string
	opts   WriteOptions
}

// NewPostgresWriter creates a writer for schemaName ("public" when empty).
func NewPostgresWriter(client *PostgresClient, schemaName string, opts WriteOptions) *PostgresWriter {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresWriter{client: client, schema: schemaName, opts: opts}
}

// WriteSchema replaces every table of s and the keymap table in a single
// transaction.
func (w *PostgresWriter) WriteSchema(ctx context.Context, s *schema.Schema) error {
	tx, err := w.client.GetConnection().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range s.Tables {
		t := &s.Tables[i]
		if err := w.writeTable(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to write table %s: %w", t.Name, err)
		}
	}
	if err := w.writeKeyMap(ctx, tx, s.KeyMap()); err != nil {
		return fmt.Errorf("failed to write keymap: %w", err)
	}
	return tx.Commit(ctx)
}

func (w *PostgresWriter) writeTable(ctx context.Context, tx pgx.Tx, t *schema.Table) error {
	ident := pgx.Identifier{w.schema, t.Name}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, Postgres.CreateTable(ident.Sanitize(), t, w.opts.PrimaryKeys)); err != nil {
		return err
	}
	if len(t.Rows) == 0 {
		return nil
	}

	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]any, len(r))
		for j, v := range r {
			rows[i][j] = v
		}
	}
	_, err := tx.CopyFrom(ctx, ident, t.ColumnNames(), pgx.CopyFromRows(rows))
	return err
}

func (w *PostgresWriter) writeKeyMap(ctx context.Context, tx pgx.Tx, km schema.KeyMap) error {
	ident := pgx.Identifier{w.schema, w.opts.keyMapTable()}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, Postgres.CreateKeyMapTable(ident.Sanitize())); err != nil {
		return err
	}

	var rows [][]any
	for _, table := range km.Names() {
		doc, err := json.Marshal(km[table])
		if err != nil {
			return err
		}
		rows = append(rows, []any{table, string(doc)})
	}
	_, err := tx.CopyFrom(ctx, ident, []string{"table_name", "keymap"}, pgx.CopyFromRows(rows))
	return err
}
