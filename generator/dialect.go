package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/relational/schema"
)

// Dialect maps schema types and capabilities onto one SQL engine.
type Dialect interface {
	Name() string
	ColumnType(f *schema.Field) string
	// PrimaryKeyColumn renders the full definition of an implicit single-field key.
	PrimaryKeyColumn(f *schema.Field) string
	SupportsChangeColumn() bool
	SupportsComments() bool
}

type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) ColumnType(f *schema.Field) string {
	switch f.Type {
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Integer:
		return "INTEGER"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.String:
		return fmt.Sprintf("VARCHAR(%d)", stringSize(f))
	case schema.Binary:
		return "BYTEA"
	case schema.Date:
		return "DATE"
	case schema.DateTime:
		return "TIMESTAMP"
	case schema.Price:
		return "NUMERIC(12,2)"
	default:
		return "TEXT"
	}
}

func (p Postgres) PrimaryKeyColumn(f *schema.Field) string {
	if f.Type == schema.Integer {
		return fmt.Sprintf(`%s SERIAL PRIMARY KEY`, quote(f.Name))
	}
	return fmt.Sprintf(`%s %s PRIMARY KEY`, quote(f.Name), p.ColumnType(f))
}

func (Postgres) SupportsChangeColumn() bool { return true }
func (Postgres) SupportsComments() bool     { return true }

type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) ColumnType(f *schema.Field) string {
	switch f.Type {
	case schema.Boolean, schema.Integer:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.String:
		return fmt.Sprintf("VARCHAR(%d)", stringSize(f))
	case schema.Binary:
		return "BLOB"
	case schema.Date:
		return "DATE"
	case schema.DateTime:
		return "DATETIME"
	case schema.Price:
		return "NUMERIC(12,2)"
	default:
		return "TEXT"
	}
}

func (s SQLite) PrimaryKeyColumn(f *schema.Field) string {
	if f.Type == schema.Integer {
		return fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, quote(f.Name))
	}
	return fmt.Sprintf(`%s %s PRIMARY KEY`, quote(f.Name), s.ColumnType(f))
}

func (SQLite) SupportsChangeColumn() bool { return false }
func (SQLite) SupportsComments() bool     { return false }

// DialectFor resolves a dialect by name; the empty name selects Postgres.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "postgres", "postgresql", "pg":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

func stringSize(f *schema.Field) int {
	if f.Size > 0 {
		return f.Size
	}
	return schema.DefaultStringSize
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
