package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/relational/schema"
)

type yamlFile struct {
	Relations     []yamlRelation     `yaml:"relations"`
	Relationships []yamlRelationship `yaml:"relationships,omitempty"`
}

type yamlRelation struct {
	Name          string      `yaml:"name"`
	Primary       bool        `yaml:"primary,omitempty"`
	PrimaryKey    []string    `yaml:"primary_key,omitempty,flow"`
	Fields        []yamlField `yaml:"fields,omitempty"`
	Indexes       [][]string  `yaml:"indexes,omitempty,flow"`
	UniqueIndexes [][]string  `yaml:"unique_indexes,omitempty,flow"`
	Parents       []string    `yaml:"parents,omitempty,flow"`
}

type yamlField struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Size       int               `yaml:"size,omitempty"`
	Nullable   bool              `yaml:"nullable,omitempty"`
	Default    *string           `yaml:"default,omitempty"`
	Comment    string            `yaml:"comment,omitempty"`
	Values     []string          `yaml:"values,omitempty,flow"`
	References *schema.Reference `yaml:"references,omitempty"`
}

type yamlRelationship struct {
	Kind     string      `yaml:"kind"`
	From     string      `yaml:"from"`
	To       string      `yaml:"to"`
	Prefix   string      `yaml:"prefix,omitempty"`
	Junction string      `yaml:"junction,omitempty"`
	Fields   []yamlField `yaml:"fields,omitempty"`
}

// LoadModelFromYAML reads a schema document from disk.
func LoadModelFromYAML(filename string) (*schema.Model, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// ParseModel decodes a schema document. Unknown keys are rejected.
func ParseModel(data []byte) (*schema.Model, error) {
	var yf yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&yf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	b := schema.NewBuilder()
	var errs []error
	seen := make(map[string]bool, len(yf.Relations))
	for _, yr := range yf.Relations {
		if seen[yr.Name] {
			errs = append(errs, fmt.Errorf("%w: %s", schema.ErrDuplicateRelation, yr.Name))
			continue
		}
		seen[yr.Name] = true
		b.Relation(yr.Name, func(r *schema.RelationBuilder) {
			if yr.Primary {
				r.Primary()
			}
			for _, f := range yr.Fields {
				r.Field(f.Name, schema.FieldType(f.Type), f.options()...)
			}
			if len(yr.PrimaryKey) > 0 {
				r.PrimaryKey(yr.PrimaryKey...)
			}
			for _, idx := range yr.Indexes {
				r.Index(idx...)
			}
			for _, idx := range yr.UniqueIndexes {
				r.UniqueIndex(idx...)
			}
			r.Parent(yr.Parents...)
		})
	}

	for _, yr := range yf.Relationships {
		opts := []schema.RelationshipOption{}
		if yr.Prefix != "" {
			opts = append(opts, schema.WithPrefix(yr.Prefix))
		}
		if yr.Junction != "" {
			opts = append(opts, schema.WithJunction(yr.Junction))
		}
		for _, jf := range yr.Fields {
			f, err := schema.NewField(jf.Name, schema.FieldType(jf.Type), jf.options()...)
			if err != nil {
				errs = append(errs, fmt.Errorf("relationship %s -> %s: %w", yr.From, yr.To, err))
				continue
			}
			opts = append(opts, schema.WithJunctionFields(f))
		}

		switch schema.RelationshipKind(yr.Kind) {
		case schema.OneToMany:
			b.OneToMany(yr.From, yr.To, opts...)
		case schema.ManyToMany:
			b.ManyToMany(yr.From, yr.To, opts...)
		default:
			errs = append(errs, fmt.Errorf("relationship %s -> %s: unknown kind %q", yr.From, yr.To, yr.Kind))
		}
	}

	m, err := b.Build()
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

func (yf yamlField) options() []schema.FieldOption {
	var opts []schema.FieldOption
	if yf.Size > 0 {
		opts = append(opts, schema.Size(yf.Size))
	}
	if yf.Nullable {
		opts = append(opts, schema.Nullable())
	}
	if yf.Default != nil {
		opts = append(opts, schema.Default(*yf.Default))
	}
	if yf.Comment != "" {
		opts = append(opts, schema.Comment(yf.Comment))
	}
	if len(yf.Values) > 0 {
		opts = append(opts, schema.Values(yf.Values...))
	}
	if ref := yf.References; ref != nil {
		opts = append(opts, schema.References(ref.Relation, ref.Field))
	}
	return opts
}

// DumpModel encodes the declared relations and relationships of m. Every field is written
// explicitly, so the document parses back into an equal Model.
func DumpModel(m *schema.Model) ([]byte, error) {
	var yf yamlFile
	for _, r := range m.Declared {
		yr := yamlRelation{
			Name:       r.Name,
			PrimaryKey: r.PrimaryKey,
			Fields:     dumpFields(r.Fields),
		}
		for _, idx := range r.Indexes {
			yr.Indexes = append(yr.Indexes, idx)
		}
		for _, idx := range r.UniqueIndexes {
			yr.UniqueIndexes = append(yr.UniqueIndexes, idx)
		}
		yf.Relations = append(yf.Relations, yr)
	}
	for _, rs := range m.Relationships {
		yf.Relationships = append(yf.Relationships, yamlRelationship{
			Kind:     string(rs.Kind),
			From:     rs.From,
			To:       rs.To,
			Prefix:   rs.Prefix,
			Junction: rs.Junction,
			Fields:   dumpFields(rs.Fields),
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yf); err != nil {
		return nil, fmt.Errorf("marshalling YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshalling YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func dumpFields(fields []*schema.Field) []yamlField {
	out := make([]yamlField, 0, len(fields))
	for _, f := range fields {
		out = append(out, yamlField{
			Name:       f.Name,
			Type:       string(f.Type),
			Size:       f.Size,
			Nullable:   f.Nullable,
			Default:    f.Default,
			Comment:    f.Comment,
			Values:     f.Values,
			References: f.References,
		})
	}
	return out
}
