package schema

import (
	"fmt"
	"slices"
	"strings"
)

// RelationshipKind selects how a Relationship expands.
type RelationshipKind string

const (
	OneToMany  RelationshipKind = "one-to-many"
	ManyToMany RelationshipKind = "many-to-many"
)

// Relationship generates derived fields or relations when a Model is materialized.
//
// For OneToMany, From is the "one" side and To the "many" side: the primary key of From is
// projected onto To as foreign key columns named Prefix+<field>.
//
// For ManyToMany, a junction relation named Junction (default rel_<From>_<To>) is created
// holding Fields followed by the primary keys of both sides.
type Relationship struct {
	Kind     RelationshipKind
	From     string
	To       string
	Prefix   string
	Junction string
	Fields   []*Field
}

// RelationshipOption customizes a relationship declaration.
type RelationshipOption func(*Relationship)

// WithPrefix sets the prefix of projected one-to-many foreign key columns.
func WithPrefix(prefix string) RelationshipOption {
	return func(r *Relationship) { r.Prefix = prefix }
}

// WithJunction names the junction relation of a many-to-many relationship.
func WithJunction(name string) RelationshipOption {
	return func(r *Relationship) { r.Junction = name }
}

// WithJunctionFields adds extra columns to a many-to-many junction relation.
func WithJunctionFields(fields ...*Field) RelationshipOption {
	return func(r *Relationship) { r.Fields = append(r.Fields, fields...) }
}

// JunctionName is the name of the relation a many-to-many relationship materializes.
func (rs *Relationship) JunctionName() string {
	if rs.Junction != "" {
		return rs.Junction
	}
	return fmt.Sprintf("rel_%s_%s", rs.From, rs.To)
}

// Equal compares all relationship parameters.
func (rs *Relationship) Equal(other *Relationship) bool {
	if rs == nil || other == nil {
		return rs == other
	}
	return rs.Kind == other.Kind &&
		rs.From == other.From &&
		rs.To == other.To &&
		rs.Prefix == other.Prefix &&
		rs.JunctionName() == other.JunctionName() &&
		slices.EqualFunc(rs.Fields, other.Fields, (*Field).Equal)
}

func (rs *Relationship) String() string {
	return fmt.Sprintf("%s %s -> %s", rs.Kind, rs.From, rs.To)
}

// projections returns the foreign key fields a one-to-many adds to its many side.
func (rs *Relationship) projections(one *Relation) []*Field {
	out := make([]*Field, 0, len(one.PrimaryKey))
	for _, pk := range one.PrimaryKeyFields() {
		f := pk.Clone(rs.Prefix + pk.Name)
		f.References = &Reference{Relation: one.Name, Field: pk.Name}
		out = append(out, f)
	}
	return out
}

// junction builds the relation a many-to-many materializes into.
func (rs *Relationship) junction(left, right *Relation) *Relation {
	r := &Relation{Name: rs.JunctionName()}
	for _, f := range rs.Fields {
		r.Fields = append(r.Fields, f.Clone(f.Name))
	}
	for _, side := range []*Relation{left, right} {
		var group Index
		for _, pk := range side.PrimaryKeyFields() {
			f := pk.Clone(junctionColumn(side.Name, pk.Name))
			f.References = &Reference{Relation: side.Name, Field: pk.Name}
			r.Fields = append(r.Fields, f)
			group = append(group, f.Name)
		}
		r.Indexes = append(r.Indexes, group)
	}
	return r
}

func junctionColumn(relation, field string) string {
	if strings.HasPrefix(field, relation+"_") {
		return field
	}
	return relation + "_" + field
}

func (rs *Relationship) check(declared map[string]*Relation) []error {
	var errs []error
	sides := []string{rs.From, rs.To}
	for i, name := range sides {
		r, ok := declared[name]
		if !ok {
			errs = append(errs, &CheckError{Kind: ErrMissingRelation, Relation: name, Detail: rs.String()})
			continue
		}
		// the many side of a one-to-many needs no key of its own
		if rs.Kind == OneToMany && i == 1 {
			continue
		}
		if len(r.PrimaryKey) == 0 {
			errs = append(errs, &CheckError{Kind: ErrMissingPrimaryKey, Relation: name, Detail: rs.String()})
		}
	}
	return errs
}
