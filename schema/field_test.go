package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldDefaults(t *testing.T) {
	f, err := NewField("name", String)
	require.NoError(t, err)
	assert.Equal(t, DefaultStringSize, f.Size)
	assert.False(t, f.Nullable)
	assert.Nil(t, f.Default)

	f, err = NewField("name", String, Size(20), Nullable(), Default("x"), Comment("c"))
	require.NoError(t, err)
	assert.Equal(t, 20, f.Size)
	assert.True(t, f.Nullable)
	assert.Equal(t, "x", *f.Default)
	assert.Equal(t, "c", f.Comment)
}

func TestParseFieldType(t *testing.T) {
	for _, ft := range FieldTypes() {
		got, err := ParseFieldType(string(ft))
		require.NoError(t, err)
		assert.Equal(t, ft, got)
	}
	_, err := ParseFieldType("money")
	assert.ErrorIs(t, err, ErrUnknownFieldType)
	assert.Len(t, FieldTypes(), 10)
}

func TestFieldEqual(t *testing.T) {
	base, err := NewField("state", Enum, Values("a", "b"), Default("a"), References("r", "f"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(f *Field)
		equal  bool
	}{
		{"clone", func(f *Field) {}, true},
		{"comment", func(f *Field) { f.Comment = "doc" }, false},
		{"nullable", func(f *Field) { f.Nullable = true }, false},
		{"default", func(f *Field) { v := "b"; f.Default = &v }, false},
		{"no default", func(f *Field) { f.Default = nil }, false},
		{"values order", func(f *Field) { f.Values = []string{"b", "a"} }, false},
		{"reference", func(f *Field) { f.References = &Reference{Relation: "r", Field: "g"} }, false},
		{"type", func(f *Field) { f.Type = String }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base.Clone(base.Name)
			tt.mutate(other)
			assert.Equal(t, tt.equal, base.Equal(other))
		})
	}
}

func TestFieldCloneIsDeep(t *testing.T) {
	f, err := NewField("state", Enum, Values("a"), Default("a"), References("r", "f"))
	require.NoError(t, err)

	c := f.Clone("copy")
	c.Values[0] = "z"
	*c.Default = "z"
	c.References.Field = "z"

	assert.Equal(t, "a", f.Values[0])
	assert.Equal(t, "a", *f.Default)
	assert.Equal(t, "f", f.References.Field)
	assert.Equal(t, "copy", c.Name)
}

func TestValidateDefault(t *testing.T) {
	tests := []struct {
		t       FieldType
		literal string
		ok      bool
	}{
		{Boolean, "true", true},
		{Boolean, "yes", false},
		{Integer, "42", true},
		{Integer, "4.2", false},
		{Float, "4.2", true},
		{Price, "19.99", true},
		{Price, "cheap", false},
		{Date, "2024-02-29", true},
		{Date, "29/02/2024", false},
		{DateTime, "2024-02-29T10:00:00Z", true},
		{Text, "anything", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.t)+"/"+tt.literal, func(t *testing.T) {
			f, err := NewField("f", tt.t, Default(tt.literal))
			require.NoError(t, err)
			if tt.ok {
				assert.NoError(t, f.validateDefault())
			} else {
				assert.Error(t, f.validateDefault())
			}
		})
	}
}

func TestIndexKey(t *testing.T) {
	assert.Equal(t, Index{"a", "b"}.Key(), Index{"a", "b"}.Key())
	assert.NotEqual(t, Index{"a", "b"}.Key(), Index{"b", "a"}.Key())
	assert.NotEqual(t, Index{"a,b"}.Key(), Index{"a", "b"}.Key())
}
