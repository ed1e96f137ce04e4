package schema

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// FieldType is the closed set of column types a Field can carry.
type FieldType string

const (
	Boolean  FieldType = "boolean"
	Integer  FieldType = "integer"
	Float    FieldType = "float"
	String   FieldType = "string"
	Text     FieldType = "text"
	Binary   FieldType = "binary"
	Date     FieldType = "date"
	DateTime FieldType = "datetime"
	Price    FieldType = "price" // currency, two decimal places
	Enum     FieldType = "enum"
)

// DefaultStringSize is used for string fields declared without a size.
const DefaultStringSize = 100

// Reference points a field at the column it refers to.
type Reference struct {
	Relation string `yaml:"relation"`
	Field    string `yaml:"field"`
}

// Field describes a single column.
type Field struct {
	Name       string
	Type       FieldType
	Nullable   bool
	Default    *string
	Comment    string
	Size       int
	Values     []string
	References *Reference
}

// option names, used by the registry to reject settings a type does not take
const (
	optSize   = "size"
	optValues = "values"
)

type typeSpec struct {
	options  []string
	fill     func(f *Field)
	validate func(literal string) error
}

var fieldTypes = map[FieldType]typeSpec{
	Boolean: {validate: func(s string) error { _, err := strconv.ParseBool(s); return err }},
	Integer: {validate: func(s string) error { _, err := strconv.ParseInt(s, 10, 64); return err }},
	Float:   {validate: func(s string) error { _, err := strconv.ParseFloat(s, 64); return err }},
	Price:   {validate: func(s string) error { _, err := strconv.ParseFloat(s, 64); return err }},
	String: {
		options: []string{optSize},
		fill: func(f *Field) {
			if f.Size == 0 {
				f.Size = DefaultStringSize
			}
		},
	},
	Text:   {},
	Binary: {},
	Date: {validate: func(s string) error {
		_, err := time.Parse(time.DateOnly, s)
		return err
	}},
	DateTime: {validate: func(s string) error {
		_, err := time.Parse(time.RFC3339, s)
		return err
	}},
	Enum: {options: []string{optValues}},
}

// FieldTypes returns every registered field type.
func FieldTypes() []FieldType {
	out := make([]FieldType, 0, len(fieldTypes))
	for t := range fieldTypes {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// ParseFieldType maps a type name onto a registered FieldType.
func ParseFieldType(name string) (FieldType, error) {
	t := FieldType(name)
	if _, ok := fieldTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFieldType, name)
	}
	return t, nil
}

// FieldOption sets one optional attribute on a Field under construction.
type FieldOption struct {
	name  string
	apply func(f *Field)
}

// Nullable allows NULL in the column. Null is opt-in.
func Nullable() FieldOption {
	return FieldOption{name: "nullable", apply: func(f *Field) { f.Nullable = true }}
}

// Default sets the literal default value of the column.
func Default(v string) FieldOption {
	return FieldOption{name: "default", apply: func(f *Field) { f.Default = &v }}
}

// Comment documents the column.
func Comment(c string) FieldOption {
	return FieldOption{name: "comment", apply: func(f *Field) { f.Comment = c }}
}

// Size sets the length of a string column.
func Size(n int) FieldOption {
	return FieldOption{name: optSize, apply: func(f *Field) { f.Size = n }}
}

// Values sets the symbols of an enum column.
func Values(v ...string) FieldOption {
	return FieldOption{name: optValues, apply: func(f *Field) { f.Values = slices.Clone(v) }}
}

// References marks the column as pointing at relation.field.
func References(relation, field string) FieldOption {
	return FieldOption{name: "references", apply: func(f *Field) {
		f.References = &Reference{Relation: relation, Field: field}
	}}
}

// NewField builds a Field of the given type, rejecting options the type does not take.
func NewField(name string, t FieldType, opts ...FieldOption) (*Field, error) {
	spec, ok := fieldTypes[t]
	if !ok {
		return nil, fmt.Errorf("field %s: %w: %q", name, ErrUnknownFieldType, t)
	}
	f := &Field{Name: name, Type: t}
	for _, opt := range opts {
		if (opt.name == optSize || opt.name == optValues) && !slices.Contains(spec.options, opt.name) {
			return nil, fmt.Errorf("field %s: %w: %s does not take %s", name, ErrInvalidOption, t, opt.name)
		}
		opt.apply(f)
	}
	if spec.fill != nil {
		spec.fill(f)
	}
	return f, nil
}

// Equal reports whether both fields describe the same column.
func (f *Field) Equal(other *Field) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Name == other.Name &&
		f.Type == other.Type &&
		f.Nullable == other.Nullable &&
		equalPtr(f.Default, other.Default) &&
		f.Comment == other.Comment &&
		f.Size == other.Size &&
		slices.Equal(f.Values, other.Values) &&
		equalPtr(f.References, other.References)
}

// Clone deep-copies the field under a new name.
func (f *Field) Clone(name string) *Field {
	c := *f
	c.Name = name
	c.Values = slices.Clone(f.Values)
	if f.Default != nil {
		d := *f.Default
		c.Default = &d
	}
	if f.References != nil {
		r := *f.References
		c.References = &r
	}
	return &c
}

// validateDefault checks the default literal against the field's type.
func (f *Field) validateDefault() error {
	if f.Default == nil {
		return nil
	}
	if f.Type == Enum {
		if !slices.Contains(f.Values, *f.Default) {
			return fmt.Errorf("default %q is not one of %v", *f.Default, f.Values)
		}
		return nil
	}
	spec := fieldTypes[f.Type]
	if spec.validate == nil {
		return nil
	}
	if err := spec.validate(*f.Default); err != nil {
		return fmt.Errorf("default %q is not a valid %s", *f.Default, f.Type)
	}
	return nil
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
