package schema

import (
	"fmt"
	"slices"
)

// Index is an ordered list of field names. It has no identity beyond its composition.
type Index []string

// Key is the structural representation used to compare indexes.
func (i Index) Key() string {
	return fmt.Sprintf("%q", []string(i))
}

// Relation is a table.
type Relation struct {
	Name          string
	Fields        []*Field
	PrimaryKey    []string
	Indexes       []Index
	UniqueIndexes []Index
}

// FieldByName returns the named field or nil.
func (r *Relation) FieldByName(name string) *Field {
	for _, f := range r.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// PrimaryKeyFields resolves the primary key names to fields, skipping unknown names.
func (r *Relation) PrimaryKeyFields() []*Field {
	out := make([]*Field, 0, len(r.PrimaryKey))
	for _, name := range r.PrimaryKey {
		if f := r.FieldByName(name); f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Equal compares name, fields (in order), primary key, indexes and unique indexes.
func (r *Relation) Equal(other *Relation) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Name == other.Name &&
		slices.EqualFunc(r.Fields, other.Fields, (*Field).Equal) &&
		slices.Equal(r.PrimaryKey, other.PrimaryKey) &&
		slices.EqualFunc(r.Indexes, other.Indexes, slices.Equal[Index]) &&
		slices.EqualFunc(r.UniqueIndexes, other.UniqueIndexes, slices.Equal[Index])
}

// Clone deep-copies the relation under a new name.
func (r *Relation) Clone(name string) *Relation {
	c := &Relation{
		Name:          name,
		Fields:        make([]*Field, len(r.Fields)),
		PrimaryKey:    slices.Clone(r.PrimaryKey),
		Indexes:       cloneIndexes(r.Indexes),
		UniqueIndexes: cloneIndexes(r.UniqueIndexes),
	}
	for i, f := range r.Fields {
		c.Fields[i] = f.Clone(f.Name)
	}
	return c
}

func (r *Relation) check(m *Model) []error {
	var errs []error
	seen := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		if seen[f.Name] {
			errs = append(errs, &CheckError{Kind: ErrDuplicateField, Relation: r.Name, Field: f.Name})
		}
		seen[f.Name] = true
		errs = append(errs, f.check(m, r)...)
	}

	for _, name := range r.PrimaryKey {
		if !seen[name] {
			errs = append(errs, &CheckError{Kind: ErrUnknownIndexField, Relation: r.Name, Field: name, Detail: "primary key"})
		}
	}
	errs = append(errs, checkIndexes(r.Name, "index", r.Indexes, seen)...)
	errs = append(errs, checkIndexes(r.Name, "unique index", r.UniqueIndexes, seen)...)
	return errs
}

func checkIndexes(relation, kind string, indexes []Index, fields map[string]bool) []error {
	var errs []error
	for _, idx := range indexes {
		for _, name := range idx {
			if !fields[name] {
				errs = append(errs, &CheckError{Kind: ErrUnknownIndexField, Relation: relation, Field: name, Detail: kind})
			}
		}
	}
	return errs
}

func (f *Field) check(m *Model, r *Relation) []error {
	var errs []error
	if f.Type == Enum && len(f.Values) == 0 {
		errs = append(errs, &CheckError{Kind: ErrEnumWithoutValues, Relation: r.Name, Field: f.Name})
	}
	if err := f.validateDefault(); err != nil {
		errs = append(errs, &CheckError{Kind: ErrInvalidDefault, Relation: r.Name, Field: f.Name, Detail: err.Error()})
	}
	if ref := f.References; ref != nil {
		target := m.RelationByName(ref.Relation)
		if target == nil || target.FieldByName(ref.Field) == nil {
			errs = append(errs, &CheckError{
				Kind:     ErrDanglingReference,
				Relation: r.Name,
				Field:    f.Name,
				Detail:   ref.Relation + "." + ref.Field,
			})
		}
	}
	return errs
}

func cloneIndexes(in []Index) []Index {
	if in == nil {
		return nil
	}
	out := make([]Index, len(in))
	for i, idx := range in {
		out[i] = slices.Clone(idx)
	}
	return out
}
