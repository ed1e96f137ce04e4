package schema

import (
	"errors"
	"fmt"
)

var (
	// construction errors
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrInvalidOption    = errors.New("option not supported by field type")

	// structural consistency errors reported by Model.Check
	ErrDuplicateRelation     = errors.New("duplicate relation")
	ErrDuplicateField        = errors.New("duplicate field")
	ErrUnknownIndexField     = errors.New("index references unknown field")
	ErrDanglingReference     = errors.New("reference to unknown relation or field")
	ErrMissingRelation       = errors.New("relationship references unknown relation")
	ErrMissingPrimaryKey     = errors.New("relationship references relation without primary key")
	ErrDuplicateRelationship = errors.New("relationship declared twice")
	ErrEnumWithoutValues     = errors.New("enum field without values")
	ErrInvalidDefault        = errors.New("default does not match field type")
)

// CheckError locates one structural problem in a Model.
type CheckError struct {
	Kind     error
	Relation string
	Field    string
	Detail   string
}

func (e *CheckError) Error() string {
	msg := e.Kind.Error()
	switch {
	case e.Relation != "" && e.Field != "":
		msg = fmt.Sprintf("%s: %s.%s", msg, e.Relation, e.Field)
	case e.Relation != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Relation)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *CheckError) Unwrap() error { return e.Kind }
