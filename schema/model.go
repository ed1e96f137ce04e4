package schema

import (
	"errors"
	"slices"
	"sync"
)

// Model is a complete schema snapshot: declared relations plus the relationships that
// derive further fields and relations from them. A Model is not modified after Build.
type Model struct {
	Declared      []*Relation
	Relationships []*Relationship

	once      sync.Once
	effective []*Relation
}

// NewModel wraps already constructed relations and relationships into a Model and
// materializes its effective relation set.
func NewModel(relations []*Relation, relationships []*Relationship) *Model {
	m := &Model{Declared: relations, Relationships: relationships}
	m.Relations()
	return m
}

// Relations returns the effective relation set: declared relations with one-to-many
// projections applied, followed by many-to-many junction relations. It is computed at most once.
func (m *Model) Relations() []*Relation {
	m.once.Do(m.materialize)
	return m.effective
}

func (m *Model) materialize() {
	byName := make(map[string]*Relation, len(m.Declared))
	out := make([]*Relation, 0, len(m.Declared))
	for _, r := range m.Declared {
		c := r.Clone(r.Name)
		out = append(out, c)
		if _, dup := byName[r.Name]; !dup {
			byName[r.Name] = c
		}
	}

	// projections read the declared keys, so a chain of one-to-many never feeds itself
	for _, rs := range m.Relationships {
		if rs.Kind != OneToMany {
			continue
		}
		one, many := m.declared(rs.From), byName[rs.To]
		if one == nil || many == nil {
			continue
		}
		many.Fields = append(many.Fields, rs.projections(one)...)
	}
	for _, rs := range m.Relationships {
		if rs.Kind != ManyToMany {
			continue
		}
		left, right := m.declared(rs.From), m.declared(rs.To)
		if left == nil || right == nil {
			continue
		}
		out = append(out, rs.junction(left, right))
	}
	m.effective = out
}

func (m *Model) declared(name string) *Relation {
	for _, r := range m.Declared {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// RelationByName looks a relation up in the effective set.
func (m *Model) RelationByName(name string) *Relation {
	for _, r := range m.Relations() {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Check validates the structural consistency of the model. All problems are returned
// joined; each one is a *CheckError.
func (m *Model) Check() error {
	var errs []error

	for i, rs := range m.Relationships {
		if slices.ContainsFunc(m.Relationships[:i], rs.Equal) {
			errs = append(errs, &CheckError{Kind: ErrDuplicateRelationship, Detail: rs.String()})
		}
	}

	declared := make(map[string]*Relation, len(m.Declared))
	for _, r := range m.Declared {
		if _, ok := declared[r.Name]; !ok {
			declared[r.Name] = r
		}
	}
	for _, rs := range m.Relationships {
		errs = append(errs, rs.check(declared)...)
	}

	seen := make(map[string]bool)
	for _, r := range m.Relations() {
		if seen[r.Name] {
			errs = append(errs, &CheckError{Kind: ErrDuplicateRelation, Relation: r.Name})
			continue
		}
		seen[r.Name] = true
		errs = append(errs, r.check(m)...)
	}
	return errors.Join(errs...)
}

// Equal compares the effective relation sets and the relationship declarations.
func (m *Model) Equal(other *Model) bool {
	if m == nil || other == nil {
		return m == other
	}
	return slices.EqualFunc(m.Relations(), other.Relations(), (*Relation).Equal) &&
		slices.EqualFunc(m.Relationships, other.Relationships, (*Relationship).Equal)
}

// Diff compares m (the current schema) against other (the desired schema).
func (m *Model) Diff(other *Model) *ModelDiff {
	return NewModelDiff(m, other)
}
