package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/fdnorm/internal/relation"
)

// SQLSource loads source relations through database/sql (SQLite, MySQL).
type SQLSource struct {
	db         *sql.DB
	dialect    Dialect
	schemaName string
}

// NewSQLSource creates a loader. schemaName is the MySQL database tables are
// listed and read from; SQLite passes "".
func NewSQLSource(db *sql.DB, dialect Dialect, schemaName string) *SQLSource {
	return &SQLSource{db: db, dialect: dialect, schemaName: schemaName}
}

// TableNames lists the base tables, sorted by name
func (s *SQLSource) TableNames(ctx context.Context) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch s.dialect.Name {
	case MySQL.Name:
		rows, err = s.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, s.schemaName)
	default:
		rows, err = s.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	}
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

// LoadTable reads a table as a relation. Values are read as text and NULL
// becomes the empty string. limit <= 0 reads every row.
func (s *SQLSource) LoadTable(ctx context.Context, name string, limit int) (*relation.Table, error) {
	query := "SELECT * FROM " + s.dialect.Qualify(s.schemaName, name)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
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
			row[i] = v.String
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return relation.New(name, columns, data)
}
