package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tordrt/fdnorm/internal/schema"
)

// DefaultKeyMapTable receives one keymap document per decomposed table.
const DefaultKeyMapTable = "_keymap"

// WriteOptions configures how a decomposition is persisted.
type WriteOptions struct {
	// PrimaryKeys declares each table's primary key. Inserts fail when the
	// rows violate a dependency the key was derived from.
	PrimaryKeys bool
	// KeyMapTable names the keymap table; empty means DefaultKeyMapTable.
	KeyMapTable string
}

func (o WriteOptions) keyMapTable() string {
	if o.KeyMapTable == "" {
		return DefaultKeyMapTable
	}
	return o.KeyMapTable
}

// SQLWriter persists decompositions through database/sql (SQLite, MySQL).
type SQLWriter struct {
	db         *sql.DB
	dialect    Dialect
	schemaName string
	opts       WriteOptions
}

// NewSQLWriter creates a writer. Tables are created in the MySQL database
// schemaName; an empty name uses the connection's default.
func NewSQLWriter(db *sql.DB, dialect Dialect, schemaName string, opts WriteOptions) *SQLWriter {
	return &SQLWriter{db: db, dialect: dialect, schemaName: schemaName, opts: opts}
}

// WriteSchema replaces every table of s and the keymap table in a single
// transaction.
func (w *SQLWriter) WriteSchema(ctx context.Context, s *schema.Schema) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range s.Tables {
		if err := w.writeTable(ctx, tx, &s.Tables[i]); err != nil {
			return fmt.Errorf("failed to write table %s: %w", s.Tables[i].Name, err)
		}
	}
	if err := w.writeKeyMap(ctx, tx, s.KeyMap()); err != nil {
		return fmt.Errorf("failed to write keymap: %w", err)
	}
	return tx.Commit()
}

func (w *SQLWriter) writeTable(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	name := w.dialect.Qualify(w.schemaName, t.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, w.dialect.CreateTable(name, t, w.opts.PrimaryKeys)); err != nil {
		return err
	}
	if len(t.Rows) == 0 {
		return nil
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, w.dialect.QuoteAll(t.ColumnNames()), w.dialect.Placeholders(len(t.Columns)))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (w *SQLWriter) writeKeyMap(ctx context.Context, tx *sql.Tx, km schema.KeyMap) error {
	name := w.dialect.Qualify(w.schemaName, w.opts.keyMapTable())
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, w.dialect.CreateKeyMapTable(name)); err != nil {
		return err
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?)", name, w.dialect.QuoteAll([]string{"table_name", "keymap"}))
	for _, table := range km.Names() {
		doc, err := json.Marshal(km[table])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, table, string(doc)); err != nil {
			return err
		}
	}
	return nil
}
