package db

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/fdnorm/internal/schema"
)

// Dialect holds the SQL spelling differences between engines.
//
// KeyType is used for the columns of a declared primary key. On MySQL it is
// VARCHAR(255), since TEXT cannot be indexed without a prefix length; InnoDB
// caps an index at 3072 bytes, so a declared utf8mb4 key spans at most three
// columns and key values are limited to 255 characters.
type Dialect struct {
	Name     string
	TextType string
	KeyType  string
	quote    func(string) string
}

var (
	SQLite = Dialect{
		Name:     "sqlite",
		TextType: "TEXT",
		KeyType:  "TEXT",
		quote:    func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
	}
	MySQL = Dialect{
		Name:     "mysql",
		TextType: "TEXT",
		KeyType:  "VARCHAR(255)",
		quote:    func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
	}
	Postgres = Dialect{
		Name:     "postgres",
		TextType: "text",
		KeyType:  "text",
		quote:    func(s string) string { return pgx.Identifier{s}.Sanitize() },
	}
)

// Quote quotes an identifier.
func (d Dialect) Quote(ident string) string { return d.quote(ident) }

// Qualify quotes name, prefixed by schemaName when it is set.
func (d Dialect) Qualify(schemaName, name string) string {
	if schemaName == "" {
		return d.quote(name)
	}
	return d.quote(schemaName) + "." + d.quote(name)
}

// QuoteAll quotes and joins identifiers with ", ".
func (d Dialect) QuoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, s := range idents {
		quoted[i] = d.quote(s)
	}
	return strings.Join(quoted, ", ")
}

// Placeholders returns n comma-separated "?" markers.
func (d Dialect) Placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// CreateTable returns the DDL for a decomposed table. Every column is text;
// withKey also declares the primary key, whose columns get KeyType.
func (d Dialect) CreateTable(qualified string, t *schema.Table, withKey bool) string {
	withKey = withKey && len(t.PrimaryKey) > 0
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		typ := d.TextType
		if withKey && slices.Contains(t.PrimaryKey, c.Name) {
			typ = d.KeyType
		}
		defs = append(defs, fmt.Sprintf("%s %s", d.quote(c.Name), typ))
	}
	if withKey {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", d.QuoteAll(t.PrimaryKey)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", qualified, strings.Join(defs, ", "))
}

// CreateKeyMapTable returns the DDL for the keymap table: one JSON document
// per decomposed table.
func (d Dialect) CreateKeyMapTable(qualified string) string {
	return fmt.Sprintf("CREATE TABLE %s (%s %s, %s TEXT)",
		qualified, d.quote("table_name"), d.TextType, d.quote("keymap"))
}
