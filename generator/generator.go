package generator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ridoystarlord/relational/diff"
	"github.com/ridoystarlord/relational/schema"
)

var ErrUnsupported = errors.New("operation not supported by dialect")

// GenerateSQL converts a list of Operations into raw SQL statements.
func GenerateSQL(ops []diff.Operation, d Dialect) ([]string, error) {
	var sqlStatements []string

	for _, op := range ops {
		switch op.Type {
		case diff.CreateTable:
			sqlStatements = append(sqlStatements, createTable(d, op.TableName, op.Field, op.Fields)...)

		case diff.AddColumn:
			if op.Field == nil {
				return nil, fmt.Errorf("generate ADD COLUMN on %s: field is nil", op.TableName)
			}
			sqlStatements = append(sqlStatements, addColumn(d, op.TableName, op.Field)...)

		case diff.DropColumn:
			stmt := fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`,
				quote(op.TableName),
				quote(op.FieldName),
			)
			sqlStatements = append(sqlStatements, stmt)

		case diff.ChangeColumn:
			stmts, err := changeColumn(d, op.TableName, op.Previous, op.Field)
			if err != nil {
				return nil, fmt.Errorf("generate CHANGE COLUMN: %w", err)
			}
			sqlStatements = append(sqlStatements, stmts...)

		case diff.DropTable:
			stmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, quote(op.TableName))
			sqlStatements = append(sqlStatements, stmt)

		case diff.AddIndex:
			sqlStatements = append(sqlStatements, createIndex(op.TableName, op.Index, op.Unique))

		case diff.DropIndex:
			sqlStatements = append(sqlStatements, dropIndex(op.TableName, op.Index, op.Unique))

		default:
			return nil, fmt.Errorf("unsupported operation: %s", op.Type)
		}
	}

	return sqlStatements, nil
}

// GenerateRollbackSQL converts a list of Operations into the statements undoing them,
// last operation first.
func GenerateRollbackSQL(ops []diff.Operation, d Dialect) ([]string, error) {
	var sqlStatements []string

	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Type {
		case diff.CreateTable:
			stmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, quote(op.TableName))
			sqlStatements = append(sqlStatements, stmt)

		case diff.AddColumn:
			stmt := fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`,
				quote(op.TableName),
				quote(op.Field.Name),
			)
			sqlStatements = append(sqlStatements, stmt)

		case diff.DropColumn:
			if op.Previous == nil {
				return nil, fmt.Errorf("rollback DROP COLUMN %s.%s: previous definition unknown", op.TableName, op.FieldName)
			}
			sqlStatements = append(sqlStatements, addColumn(d, op.TableName, op.Previous)...)

		case diff.ChangeColumn:
			stmts, err := changeColumn(d, op.TableName, op.Field, op.Previous)
			if err != nil {
				return nil, fmt.Errorf("generate CHANGE COLUMN rollback: %w", err)
			}
			sqlStatements = append(sqlStatements, stmts...)

		case diff.DropTable:
			if op.Relation == nil {
				return nil, fmt.Errorf("rollback DROP TABLE %s: previous definition unknown", op.TableName)
			}
			stmts, err := recreateTable(d, op.Relation)
			if err != nil {
				return nil, err
			}
			sqlStatements = append(sqlStatements, stmts...)

		case diff.AddIndex:
			sqlStatements = append(sqlStatements, dropIndex(op.TableName, op.Index, op.Unique))

		case diff.DropIndex:
			sqlStatements = append(sqlStatements, createIndex(op.TableName, op.Index, op.Unique))

		default:
			return nil, fmt.Errorf("unsupported rollback operation: %s", op.Type)
		}
	}

	return sqlStatements, nil
}

// IndexName derives the name of an index from its table and columns.
func IndexName(table string, idx schema.Index, unique bool) string {
	prefix := "idx"
	if unique {
		prefix = "uniq"
	}
	return fmt.Sprintf("%s_%s_%s", prefix, table, strings.Join(idx, "_"))
}

func createTable(d Dialect, table string, key *schema.Field, fields []*schema.Field) []string {
	var cols []string
	if key != nil {
		cols = append(cols, d.PrimaryKeyColumn(key))
	}
	for _, f := range fields {
		cols = append(cols, columnDefinition(d, table, f))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quote(table), strings.Join(cols, ",\n  "))}
	if key != nil {
		stmts = append(stmts, commentOn(d, table, key)...)
	}
	for _, f := range fields {
		stmts = append(stmts, commentOn(d, table, f)...)
	}
	return stmts
}

// recreateTable rebuilds a dropped relation together with its indexes.
func recreateTable(d Dialect, rel *schema.Relation) ([]string, error) {
	var stmts []string
	switch len(rel.PrimaryKey) {
	case 0:
		stmts = createTable(d, rel.Name, nil, rel.Fields)
	case 1:
		key := rel.FieldByName(rel.PrimaryKey[0])
		fields := slices.DeleteFunc(slices.Clone(rel.Fields), func(f *schema.Field) bool { return f == key })
		stmts = createTable(d, rel.Name, key, fields)
	default:
		return nil, fmt.Errorf("rollback DROP TABLE %s: %w", rel.Name, diff.ErrCompositePrimaryKey)
	}
	for _, idx := range rel.Indexes {
		stmts = append(stmts, createIndex(rel.Name, idx, false))
	}
	for _, idx := range rel.UniqueIndexes {
		stmts = append(stmts, createIndex(rel.Name, idx, true))
	}
	return stmts, nil
}

func addColumn(d Dialect, table string, f *schema.Field) []string {
	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s;`, quote(table), columnDefinition(d, table, f))
	return append([]string{stmt}, commentOn(d, table, f)...)
}

func columnDefinition(d Dialect, table string, f *schema.Field) string {
	def := quote(f.Name) + " " + d.ColumnType(f)
	if !f.Nullable {
		def += " NOT NULL"
	}
	if f.Default != nil {
		def += " DEFAULT " + defaultLiteral(f)
	}
	if f.Type == schema.Enum {
		def += fmt.Sprintf(" CONSTRAINT %s CHECK %s", quote(checkName(table, f.Name)), enumCheck(f))
	}
	if ref := f.References; ref != nil {
		def += fmt.Sprintf(" CONSTRAINT %s REFERENCES %s (%s)",
			quote(foreignKeyName(table, f.Name)),
			quote(ref.Relation),
			quote(ref.Field),
		)
	}
	return def
}

func commentOn(d Dialect, table string, f *schema.Field) []string {
	if !d.SupportsComments() || f.Comment == "" {
		return nil
	}
	return []string{fmt.Sprintf(`COMMENT ON COLUMN %s.%s IS %s;`, quote(table), quote(f.Name), quoteLiteral(f.Comment))}
}

// changeColumn moves a column from its old definition to the new one.
func changeColumn(d Dialect, table string, old, f *schema.Field) ([]string, error) {
	if f == nil || old == nil {
		return nil, fmt.Errorf("column or old column is nil")
	}

	onlyComment := old.Clone(old.Name)
	onlyComment.Comment = f.Comment
	if !d.SupportsChangeColumn() {
		if onlyComment.Equal(f) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s cannot change column %s.%s", ErrUnsupported, d.Name(), table, f.Name)
	}

	alter := fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN %s`, quote(table), quote(f.Name))
	var statements []string

	if d.ColumnType(old) != d.ColumnType(f) {
		statements = append(statements, fmt.Sprintf(`%s TYPE %s;`, alter, d.ColumnType(f)))
	}

	if old.Nullable != f.Nullable {
		if f.Nullable {
			statements = append(statements, alter+" DROP NOT NULL;")
		} else {
			statements = append(statements, alter+" SET NOT NULL;")
		}
	}

	if old.Default == nil && f.Default != nil || old.Default != nil && f.Default == nil ||
		old.Default != nil && f.Default != nil && *old.Default != *f.Default {
		if f.Default == nil {
			statements = append(statements, alter+" DROP DEFAULT;")
		} else {
			statements = append(statements, fmt.Sprintf(`%s SET DEFAULT %s;`, alter, defaultLiteral(f)))
		}
	}

	if old.Type == schema.Enum && (f.Type != schema.Enum || !slices.Equal(old.Values, f.Values)) {
		statements = append(statements, fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;`,
			quote(table), quote(checkName(table, f.Name))))
	}
	if f.Type == schema.Enum && (old.Type != schema.Enum || !slices.Equal(old.Values, f.Values)) {
		statements = append(statements, fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK %s;`,
			quote(table), quote(checkName(table, f.Name)), enumCheck(f)))
	}

	if !sameReference(old.References, f.References) {
		if old.References != nil {
			statements = append(statements, fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;`,
				quote(table), quote(foreignKeyName(table, f.Name))))
		}
		if ref := f.References; ref != nil {
			statements = append(statements, fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);`,
				quote(table), quote(foreignKeyName(table, f.Name)), quote(f.Name), quote(ref.Relation), quote(ref.Field)))
		}
	}

	if old.Comment != f.Comment {
		if f.Comment == "" {
			statements = append(statements, fmt.Sprintf(`COMMENT ON COLUMN %s.%s IS NULL;`, quote(table), quote(f.Name)))
		} else {
			statements = append(statements, commentOn(d, table, f)...)
		}
	}

	return statements, nil
}

func createIndex(table string, idx schema.Index, unique bool) string {
	stmt := "CREATE"
	if unique {
		stmt += " UNIQUE"
	}
	cols := make([]string, len(idx))
	for i, c := range idx {
		cols[i] = quote(c)
	}
	return fmt.Sprintf(`%s INDEX %s ON %s (%s);`, stmt, quote(IndexName(table, idx, unique)), quote(table), strings.Join(cols, ", "))
}

func dropIndex(table string, idx schema.Index, unique bool) string {
	return fmt.Sprintf(`DROP INDEX IF EXISTS %s;`, quote(IndexName(table, idx, unique)))
}

func defaultLiteral(f *schema.Field) string {
	switch f.Type {
	case schema.Boolean, schema.Integer, schema.Float, schema.Price:
		return *f.Default
	}
	return quoteLiteral(*f.Default)
}

func enumCheck(f *schema.Field) string {
	values := make([]string, len(f.Values))
	for i, v := range f.Values {
		values[i] = quoteLiteral(v)
	}
	return fmt.Sprintf("(%s IN (%s))", quote(f.Name), strings.Join(values, ", "))
}

func checkName(table, column string) string      { return fmt.Sprintf("chk_%s_%s", table, column) }
func foreignKeyName(table, column string) string { return fmt.Sprintf("fk_%s_%s", table, column) }

func sameReference(a, b *schema.Reference) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
