package diff

import (
	"errors"
	"fmt"

	"github.com/ridoystarlord/relational/schema"
)

type OperationType string

const (
	CreateTable  OperationType = "CREATE_TABLE"
	DropTable    OperationType = "DROP_TABLE"
	AddColumn    OperationType = "ADD_COLUMN"
	DropColumn   OperationType = "DROP_COLUMN"
	ChangeColumn OperationType = "CHANGE_COLUMN"
	AddIndex     OperationType = "ADD_INDEX"
	DropIndex    OperationType = "DROP_INDEX"
)

// OperationTypes lists every operation type in plan order.
var OperationTypes = []OperationType{
	CreateTable, DropIndex, AddColumn, DropColumn, ChangeColumn, AddIndex, DropTable,
}

type Operation struct {
	Type       OperationType
	TableName  string
	Fields     []*schema.Field  // for CREATE_TABLE, without the implicit primary key
	PrimaryKey string           // for CREATE_TABLE with a single primary key field
	Field      *schema.Field    // ADD_COLUMN, CHANGE_COLUMN; the key field for CREATE_TABLE
	Previous   *schema.Field    // old version for DROP_COLUMN, CHANGE_COLUMN
	FieldName  string           // for DROP_COLUMN
	Index      schema.Index     // for ADD_INDEX, DROP_INDEX
	Unique     bool             // for ADD_INDEX, DROP_INDEX
	Relation   *schema.Relation // the relation created or dropped
}

var (
	ErrCompositePrimaryKey = errors.New("composite primary keys are not supported")
	ErrPrimaryKeyChange    = errors.New("primary key changes are not supported")
)

// PlanError names the relation a plan could not be produced for.
type PlanError struct {
	Relation string
	Err      error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("relation %s: %v", e.Relation, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// Plan turns a model diff into an ordered list of operations: table creations with their
// indexes, then changes on common tables, then table drops. Relations keep their input
// order; a new table referencing another new table must come after it in the desired model.
func Plan(md *schema.ModelDiff) ([]Operation, error) {
	var ops []Operation

	for _, rel := range md.Relations.Right {
		create, err := createTable(rel)
		if err != nil {
			return nil, err
		}
		ops = append(ops, create)
		ops = append(ops, indexOps(AddIndex, rel.Name, rel.Indexes, false)...)
		ops = append(ops, indexOps(AddIndex, rel.Name, rel.UniqueIndexes, true)...)
	}

	for _, rd := range md.Relations.Both {
		if rd.PrimaryKey != nil {
			return nil, &PlanError{Relation: rd.Name, Err: ErrPrimaryKeyChange}
		}
		ops = append(ops, changeTable(rd)...)
	}

	for _, rel := range md.Relations.Left {
		ops = append(ops, Operation{
			Type:      DropTable,
			TableName: rel.Name,
			Relation:  rel,
		})
	}

	return ops, nil
}

func createTable(rel *schema.Relation) (Operation, error) {
	op := Operation{
		Type:      CreateTable,
		TableName: rel.Name,
		Relation:  rel,
	}
	switch len(rel.PrimaryKey) {
	case 0:
		op.Fields = rel.Fields
	case 1:
		op.PrimaryKey = rel.PrimaryKey[0]
		for _, f := range rel.Fields {
			if f.Name == op.PrimaryKey {
				op.Field = f
				continue
			}
			op.Fields = append(op.Fields, f)
		}
	default:
		return Operation{}, &PlanError{Relation: rel.Name, Err: ErrCompositePrimaryKey}
	}
	return op, nil
}

func changeTable(rd *schema.RelationDiff) []Operation {
	var ops []Operation

	// drop indexes before the columns they cover
	ops = append(ops, indexOps(DropIndex, rd.Name, rd.Indexes.Left, false)...)
	ops = append(ops, indexOps(DropIndex, rd.Name, rd.UniqueIndexes.Left, true)...)

	for _, f := range rd.Fields.Right {
		ops = append(ops, Operation{Type: AddColumn, TableName: rd.Name, Field: f})
	}
	for _, f := range rd.Fields.Left {
		ops = append(ops, Operation{Type: DropColumn, TableName: rd.Name, FieldName: f.Name, Previous: f})
	}
	for _, p := range rd.Fields.Both {
		ops = append(ops, Operation{Type: ChangeColumn, TableName: rd.Name, Field: p.Right, Previous: p.Left})
	}

	ops = append(ops, indexOps(AddIndex, rd.Name, rd.Indexes.Right, false)...)
	ops = append(ops, indexOps(AddIndex, rd.Name, rd.UniqueIndexes.Right, true)...)
	return ops
}

func indexOps(t OperationType, table string, indexes []schema.Index, unique bool) []Operation {
	ops := make([]Operation, 0, len(indexes))
	for _, idx := range indexes {
		ops = append(ops, Operation{Type: t, TableName: table, Index: idx, Unique: unique})
	}
	return ops
}

// Summary counts operations per type.
func Summary(ops []Operation) map[OperationType]int {
	counts := make(map[OperationType]int)
	for _, op := range ops {
		counts[op.Type]++
	}
	return counts
}

// Describe renders a one-line human description of an operation.
func (op Operation) Describe() string {
	switch op.Type {
	case CreateTable:
		return fmt.Sprintf("create table %s", op.TableName)
	case DropTable:
		return fmt.Sprintf("drop table %s", op.TableName)
	case AddColumn:
		return fmt.Sprintf("add column %s.%s (%s)", op.TableName, op.Field.Name, op.Field.Type)
	case DropColumn:
		return fmt.Sprintf("drop column %s.%s", op.TableName, op.FieldName)
	case ChangeColumn:
		return fmt.Sprintf("change column %s.%s", op.TableName, op.Field.Name)
	case AddIndex, DropIndex:
		verb := "add"
		if op.Type == DropIndex {
			verb = "drop"
		}
		kind := "index"
		if op.Unique {
			kind = "unique index"
		}
		return fmt.Sprintf("%s %s on %s %v", verb, kind, op.TableName, []string(op.Index))
	}
	return string(op.Type)
}
