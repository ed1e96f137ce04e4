package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ridoystarlord/relational/database"
	"github.com/ridoystarlord/relational/schema"
)

const maxIdentifierLength = 63

var reservedKeywords = map[string]bool{
	"user": true, "order": true, "group": true, "table": true,
	"index": true, "view": true, "schema": true, "select": true,
	"from": true, "where": true, "key": true, "primary": true,
}

// ValidationError represents a validation finding with details
type ValidationError struct {
	Type     string `json:"type"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}
}

func (r *ValidationResult) addError(typ, table, column, msg string) {
	r.Errors = append(r.Errors, ValidationError{Type: typ, Table: table, Column: column, Message: msg, Severity: "error"})
}

func (r *ValidationResult) addWarning(typ, table, column, msg string) {
	r.Warnings = append(r.Warnings, ValidationError{Type: typ, Table: table, Column: column, Message: msg, Severity: "warning"})
}

func (r *ValidationResult) addInfo(typ, table, column, msg string) {
	r.Info = append(r.Info, ValidationError{Type: typ, Table: table, Column: column, Message: msg, Severity: "info"})
}

// Validate lints a model without a database connection. Structural problems found by
// Model.Check are errors; naming and design smells are warnings.
func Validate(m *schema.Model) *ValidationResult {
	result := newResult()

	addCheckErrors(m.Check(), result)
	for _, r := range m.Relations() {
		validateRelation(r, m, result)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateAgainst runs Validate and additionally reports the relations that already exist
// in the connected database.
func ValidateAgainst(ctx context.Context, m *schema.Model, db database.DB) (*ValidationResult, error) {
	result := Validate(m)

	tables, err := TableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get database tables: %w", err)
	}
	for _, r := range m.Relations() {
		if tables[r.Name] {
			result.addInfo("table_exists", r.Name, "", fmt.Sprintf("Table '%s' already exists in database", r.Name))
		}
	}
	return result, nil
}

func addCheckErrors(err error, result *ValidationResult) {
	if err == nil {
		return
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		var ce *schema.CheckError
		if errors.As(e, &ce) {
			result.addError(checkType(ce.Kind), ce.Relation, ce.Field, ce.Error())
			continue
		}
		result.addError("schema", "", "", e.Error())
	}
}

// checkType turns a check sentinel into a snake_case finding type.
func checkType(kind error) string {
	return strings.ReplaceAll(kind.Error(), " ", "_")
}

func validateRelation(r *schema.Relation, m *schema.Model, result *ValidationResult) {
	if err := validateIdentifier("table", r.Name); err != nil {
		result.addError("table_name", r.Name, "", err.Error())
	} else if reservedKeywords[strings.ToLower(r.Name)] {
		result.addWarning("reserved_keyword", r.Name, "", fmt.Sprintf("Table name '%s' is a reserved keyword", r.Name))
	}

	if len(r.PrimaryKey) == 0 {
		result.addWarning("no_primary_key", r.Name, "", fmt.Sprintf("Table '%s' has no primary key defined", r.Name))
	}

	for _, f := range r.Fields {
		if err := validateIdentifier("column", f.Name); err != nil {
			result.addError("column_name", r.Name, f.Name, err.Error())
		} else if reservedKeywords[strings.ToLower(f.Name)] {
			result.addWarning("reserved_keyword", r.Name, f.Name, fmt.Sprintf("Column name '%s' is a reserved keyword", f.Name))
		}
		if f.Name != strings.ToLower(f.Name) {
			result.addWarning("column_case", r.Name, f.Name, fmt.Sprintf("Column '%s' is not lower case and must be quoted in every query", f.Name))
		}
		if f.References != nil {
			validateReference(r, f, m, result)
		}
	}

	for _, idx := range r.Indexes {
		if len(idx) == 1 && len(r.PrimaryKey) == 1 && idx[0] == r.PrimaryKey[0] {
			result.addInfo("redundant_index", r.Name, idx[0], fmt.Sprintf("Index on primary key '%s' is redundant", idx[0]))
		}
	}
}

// validateReference warns when a referencing field and its target disagree on type.
// Unknown targets are already reported by Model.Check.
func validateReference(r *schema.Relation, f *schema.Field, m *schema.Model, result *ValidationResult) {
	target := m.RelationByName(f.References.Relation)
	if target == nil {
		return
	}
	tf := target.FieldByName(f.References.Field)
	if tf == nil {
		return
	}
	if tf.Type != f.Type {
		result.addWarning("foreign_key_type", r.Name, f.Name,
			fmt.Sprintf("Column '%s' (%s) references %s.%s (%s)", f.Name, f.Type, target.Name, tf.Name, tf.Type))
	}
}

// validateIdentifier applies PostgreSQL identifier rules.
func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%s name '%s' is too long (max %d characters)", kind, name, maxIdentifierLength)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Errorf("%s name '%s' cannot start with a digit", kind, name)
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", kind, name, char)
		}
	}
	return nil
}

// TableNames lists the tables of the connected database.
func TableNames(ctx context.Context, db database.DB) (map[string]bool, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
	`
	if db.Dialect() == "sqlite" {
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	}

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables[name] = true
	}
	return tables, rows.Err()
}
