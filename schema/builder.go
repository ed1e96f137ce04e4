package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jinzhu/inflection"
)

// Builder collects relation and relationship declarations in a single pass.
//
//	b := schema.NewBuilder()
//	b.Relation("users", func(r *schema.RelationBuilder) {
//		r.Primary()
//		r.String("email", schema.Size(200))
//		r.UniqueIndex("email")
//	})
//	m, err := b.Build()
type Builder struct {
	relations     []*Relation
	relationships []*Relationship
	errs          []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Relation declares a relation, or extends it when already declared.
func (b *Builder) Relation(name string, fn func(r *RelationBuilder)) *Builder {
	rel := b.find(name)
	if rel == nil {
		rel = &Relation{Name: name}
		b.relations = append(b.relations, rel)
	}
	if fn != nil {
		fn(&RelationBuilder{b: b, rel: rel})
	}
	return b
}

func (b *Builder) find(name string) *Relation {
	for _, r := range b.relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// AddRelation appends a fully constructed relation.
func (b *Builder) AddRelation(r *Relation) *Builder {
	b.relations = append(b.relations, r)
	return b
}

// OneToMany projects the primary key of one onto many.
func (b *Builder) OneToMany(one, many string, opts ...RelationshipOption) *Builder {
	return b.relationship(OneToMany, one, many, opts)
}

// ManyToMany joins left and right through a junction relation.
func (b *Builder) ManyToMany(left, right string, opts ...RelationshipOption) *Builder {
	return b.relationship(ManyToMany, left, right, opts)
}

func (b *Builder) relationship(kind RelationshipKind, from, to string, opts []RelationshipOption) *Builder {
	rs := &Relationship{Kind: kind, From: from, To: to}
	for _, opt := range opts {
		opt(rs)
	}
	b.relationships = append(b.relationships, rs)
	return b
}

// Build returns the Model, or every construction error joined.
func (b *Builder) Build() (*Model, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return NewModel(b.relations, b.relationships), nil
}

// RelationBuilder declares the content of one relation.
type RelationBuilder struct {
	b   *Builder
	rel *Relation
}

// Name of the relation being declared.
func (r *RelationBuilder) Name() string { return r.rel.Name }

// Primary adds an integer <relation>_id field and makes it the primary key.
func (r *RelationBuilder) Primary() *RelationBuilder {
	key := r.rel.Name + "_id"
	r.Field(key, Integer)
	r.rel.PrimaryKey = []string{key}
	return r
}

// PrimaryKey sets the primary key to the named fields.
func (r *RelationBuilder) PrimaryKey(names ...string) *RelationBuilder {
	r.rel.PrimaryKey = slices.Clone(names)
	return r
}

// Field declares a field of any registered type.
func (r *RelationBuilder) Field(name string, t FieldType, opts ...FieldOption) *RelationBuilder {
	f, err := NewField(name, t, opts...)
	if err != nil {
		r.b.errs = append(r.b.errs, fmt.Errorf("relation %s: %w", r.rel.Name, err))
		return r
	}
	r.rel.Fields = append(r.rel.Fields, f)
	return r
}

func (r *RelationBuilder) Boolean(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Boolean, opts...)
}

func (r *RelationBuilder) Integer(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Integer, opts...)
}

func (r *RelationBuilder) Float(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Float, opts...)
}

func (r *RelationBuilder) String(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, String, opts...)
}

func (r *RelationBuilder) Text(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Text, opts...)
}

func (r *RelationBuilder) Binary(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Binary, opts...)
}

func (r *RelationBuilder) Date(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Date, opts...)
}

func (r *RelationBuilder) DateTime(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, DateTime, opts...)
}

func (r *RelationBuilder) Price(name string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Price, opts...)
}

// Enum declares an enum field; values are mandatory.
func (r *RelationBuilder) Enum(name string, values []string, opts ...FieldOption) *RelationBuilder {
	return r.Field(name, Enum, append([]FieldOption{Values(values...)}, opts...)...)
}

// Index adds a regular index over the named fields.
func (r *RelationBuilder) Index(names ...string) *RelationBuilder {
	r.rel.Indexes = append(r.rel.Indexes, Index(slices.Clone(names)))
	return r
}

// UniqueIndex adds a unique index over the named fields.
func (r *RelationBuilder) UniqueIndex(names ...string) *RelationBuilder {
	r.rel.UniqueIndexes = append(r.rel.UniqueIndexes, Index(slices.Clone(names)))
	return r
}

// Parent declares this relation as the "one" side of a one-to-many towards the plural
// of every given child name.
func (r *RelationBuilder) Parent(children ...string) *RelationBuilder {
	for _, child := range children {
		r.b.OneToMany(r.rel.Name, inflection.Plural(child))
	}
	return r
}
