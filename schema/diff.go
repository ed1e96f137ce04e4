package schema

import (
	"fmt"
	"slices"
)

// Pair holds the left and right value found under the same key.
type Pair[T any] struct {
	Left  T
	Right T
}

// Diff partitions two collections by key: Left holds values whose key only appears on the
// left, Right those only on the right and Both the pairs found on both sides. Equal pairs
// are kept; dropping unchanged values is up to the caller.
type Diff[T any] struct {
	Left  []T
	Right []T
	Both  []Pair[T]
}

type keyed[T any, K comparable] struct {
	keys   []K
	values map[K]T
}

// a repeated key keeps its first position and its last value
func index[T any, K comparable](items []T, key func(T) K) keyed[T, K] {
	k := keyed[T, K]{values: make(map[K]T, len(items))}
	for _, item := range items {
		id := key(item)
		if _, ok := k.values[id]; !ok {
			k.keys = append(k.keys, id)
		}
		k.values[id] = item
	}
	return k
}

// NewDiff partitions left and right by the key function.
func NewDiff[T any, K comparable](left, right []T, key func(T) K) *Diff[T] {
	l, r := index(left, key), index(right, key)
	d := &Diff[T]{}
	for _, k := range l.keys {
		if rv, ok := r.values[k]; ok {
			d.Both = append(d.Both, Pair[T]{Left: l.values[k], Right: rv})
		} else {
			d.Left = append(d.Left, l.values[k])
		}
	}
	for _, k := range r.keys {
		if _, ok := l.values[k]; !ok {
			d.Right = append(d.Right, r.values[k])
		}
	}
	return d
}

// NewIdentityDiff partitions comparable values using the values themselves as keys.
func NewIdentityDiff[T comparable](left, right []T) *Diff[T] {
	return NewDiff(left, right, func(v T) T { return v })
}

// Empty reports whether the diff holds nothing at all.
func (d *Diff[T]) Empty() bool {
	return len(d.Left) == 0 && len(d.Right) == 0 && len(d.Both) == 0
}

// Changed reports whether anything was added or removed.
func (d *Diff[T]) Changed() bool {
	return len(d.Left) > 0 || len(d.Right) > 0
}

// RelationDiff compares two versions of the same relation.
type RelationDiff struct {
	Name  string
	Left  *Relation
	Right *Relation

	// PrimaryKey is nil when both versions share the same primary key.
	PrimaryKey    *Pair[[]string]
	Indexes       *Diff[Index]
	UniqueIndexes *Diff[Index]
	// Fields.Both only holds fields that differ between the versions.
	Fields *Diff[*Field]
}

// NewRelationDiff diffs two versions of one relation. It panics when the names differ.
func NewRelationDiff(left, right *Relation) *RelationDiff {
	if left.Name != right.Name {
		panic(fmt.Sprintf("schema: diffing relation %q against %q", left.Name, right.Name))
	}
	rd := &RelationDiff{
		Name:          left.Name,
		Left:          left,
		Right:         right,
		Indexes:       NewDiff(left.Indexes, right.Indexes, Index.Key),
		UniqueIndexes: NewDiff(left.UniqueIndexes, right.UniqueIndexes, Index.Key),
		Fields:        NewDiff(left.Fields, right.Fields, func(f *Field) string { return f.Name }),
	}
	if !slices.Equal(left.PrimaryKey, right.PrimaryKey) {
		rd.PrimaryKey = &Pair[[]string]{Left: left.PrimaryKey, Right: right.PrimaryKey}
	}
	rd.Fields.Both = slices.DeleteFunc(rd.Fields.Both, func(p Pair[*Field]) bool {
		return p.Left.Equal(p.Right)
	})
	return rd
}

// Changed reports whether the two versions differ in any way the diff tracks.
func (rd *RelationDiff) Changed() bool {
	return rd.PrimaryKey != nil ||
		rd.Indexes.Changed() ||
		rd.UniqueIndexes.Changed() ||
		!rd.Fields.Empty()
}

// RelationSet is the relation-level partition of a ModelDiff.
type RelationSet struct {
	Left  []*Relation     // dropped
	Right []*Relation     // created
	Both  []*RelationDiff // present on both sides
}

// ModelDiff compares two schema snapshots.
type ModelDiff struct {
	Left      *Model
	Right     *Model
	Relations RelationSet
}

// NewModelDiff diffs the effective relation sets of left and right by relation name.
func NewModelDiff(left, right *Model) *ModelDiff {
	d := NewDiff(left.Relations(), right.Relations(), func(r *Relation) string { return r.Name })
	md := &ModelDiff{
		Left:  left,
		Right: right,
		Relations: RelationSet{
			Left:  d.Left,
			Right: d.Right,
		},
	}
	for _, p := range d.Both {
		md.Relations.Both = append(md.Relations.Both, NewRelationDiff(p.Left, p.Right))
	}
	return md
}

// Empty reports whether there is nothing to migrate.
func (md *ModelDiff) Empty() bool {
	if len(md.Relations.Left) > 0 || len(md.Relations.Right) > 0 {
		return false
	}
	for _, rd := range md.Relations.Both {
		if rd.Changed() {
			return false
		}
	}
	return true
}
