package loader

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/ridoystarlord/relational/schema"
)

// TagLoader builds relations from Go structs carrying relational tags.
type TagLoader struct {
	modelsDir string
}

// NewTagLoader returns a loader reading the .go files under modelsDir.
func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{
		modelsDir: modelsDir,
	}
}

// LoadModelFromTags loads a model from the Go structs found under modelsDir
func LoadModelFromTags(modelsDir string) (*schema.Model, error) {
	return NewTagLoader(modelsDir).Load()
}

// Load parses every .go file of the models directory, in lexical order.
//
//	type User struct {
//		ID    int    `relational:"column:id;primary"`
//		Email string `relational:"size:200;unique"`
//		Bio   *string `relational:"type:text"`
//	}
func (tl *TagLoader) Load() (*schema.Model, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory '%s' does not exist", tl.modelsDir)
	}

	b := schema.NewBuilder()
	err := filepath.Walk(tl.modelsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if err := tl.parseGoFile(b, path); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	return b.Build()
}

func (tl *TagLoader) parseGoFile(b *schema.Builder, filePath string) error {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("failed to parse Go file: %w", err)
	}

	var errs []error
	ast.Inspect(node, func(n ast.Node) bool {
		if x, ok := n.(*ast.TypeSpec); ok {
			if structType, ok := x.Type.(*ast.StructType); ok {
				errs = append(errs, tl.parseStruct(b, x.Name.Name, structType)...)
			}
		}
		return true
	})
	return errors.Join(errs...)
}

// parseStruct declares one relation per struct carrying at least one relational tag
func (tl *TagLoader) parseStruct(b *schema.Builder, structName string, structType *ast.StructType) []error {
	var tags []*FieldTag
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 || !ast.IsExported(field.Names[0].Name) {
			continue
		}
		tag, err := tl.parseField(field.Names[0].Name, field)
		if err != nil {
			return []error{fmt.Errorf("%s.%s: %w", structName, field.Names[0].Name, err)}
		}
		if tag != nil {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}

	b.Relation(tl.tableName(structName), func(r *schema.RelationBuilder) {
		var pk []string
		for _, tag := range tags {
			r.Field(tag.ColumnName, tag.Type, tag.options()...)
			if tag.Primary {
				pk = append(pk, tag.ColumnName)
			}
			if tag.Index {
				r.Index(tag.ColumnName)
			}
			if tag.Unique {
				r.UniqueIndex(tag.ColumnName)
			}
		}
		if len(pk) > 0 {
			r.PrimaryKey(pk...)
		}
	})
	return nil
}

func (tl *TagLoader) parseField(fieldName string, field *ast.Field) (*FieldTag, error) {
	if field.Tag == nil {
		return nil, nil
	}
	value, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return nil, fmt.Errorf("malformed tag: %w", err)
	}
	raw, ok := reflect.StructTag(value).Lookup("relational")
	if !ok || raw == "-" {
		return nil, nil
	}

	tag, err := tl.parseRelationalTag(raw)
	if err != nil {
		return nil, err
	}
	if tag.ColumnName == "" {
		tag.ColumnName = tl.snakeCase(fieldName)
	}
	if tag.Type == "" {
		tag.Type = tl.inferFieldType(field.Type)
	}
	if _, ok := field.Type.(*ast.StarExpr); ok {
		tag.Nullable = true
	}
	return tag, nil
}

// parseRelationalTag parses "column:name;type:string;size:200;primary;nullable;default:x"
func (tl *TagLoader) parseRelationalTag(raw string) (*FieldTag, error) {
	tag := &FieldTag{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if hasValue {
			switch key {
			case "column":
				tag.ColumnName = value
			case "type":
				t, err := schema.ParseFieldType(value)
				if err != nil {
					return nil, err
				}
				tag.Type = t
			case "size":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("size %q: %w", value, err)
				}
				tag.Size = n
			case "default":
				tag.Default = &value
			case "comment":
				tag.Comment = value
			case "values":
				tag.Values = strings.Split(value, "|")
			case "references":
				rel, field, ok := strings.Cut(value, ".")
				if !ok {
					return nil, fmt.Errorf("references %q: expected relation.field", value)
				}
				tag.References = &schema.Reference{Relation: rel, Field: field}
			default:
				return nil, fmt.Errorf("unknown tag key %q", key)
			}
			continue
		}

		switch key {
		case "primary":
			tag.Primary = true
		case "nullable":
			tag.Nullable = true
		case "index":
			tag.Index = true
		case "unique":
			tag.Unique = true
		default:
			return nil, fmt.Errorf("unknown tag flag %q", key)
		}
	}
	return tag, nil
}

// inferFieldType maps a Go type expression onto a field type
func (tl *TagLoader) inferFieldType(expr ast.Expr) schema.FieldType {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return tl.inferFieldType(t.X)
	case *ast.ArrayType:
		if ident, ok := t.Elt.(*ast.Ident); ok && t.Len == nil && ident.Name == "byte" {
			return schema.Binary
		}
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok && x.Name == "time" && t.Sel.Name == "Time" {
			return schema.DateTime
		}
	case *ast.Ident:
		switch t.Name {
		case "bool":
			return schema.Boolean
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			return schema.Integer
		case "float32", "float64":
			return schema.Float
		case "string":
			return schema.String
		}
	}
	return schema.Text
}

// tableName converts a struct name to a pluralized snake_case table name
func (tl *TagLoader) tableName(structName string) string {
	return inflection.Plural(tl.snakeCase(structName))
}

// snakeCase converts PascalCase to snake_case
func (tl *TagLoader) snakeCase(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && prev >= 'a' && prev <= 'z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.ToLower(b.String())
}

// FieldTag represents parsed relational tag information
type FieldTag struct {
	ColumnName string
	Type       schema.FieldType
	Primary    bool
	Nullable   bool
	Index      bool
	Unique     bool
	Size       int
	Default    *string
	Comment    string
	Values     []string
	References *schema.Reference
}

func (t *FieldTag) options() []schema.FieldOption {
	return yamlField{
		Size:       t.Size,
		Nullable:   t.Nullable,
		Default:    t.Default,
		Comment:    t.Comment,
		Values:     t.Values,
		References: t.References,
	}.options()
}
