package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcpchat/internal/domain"
)

func TestFieldFromProperty(t *testing.T) {
	tests := []struct {
		prop map[string]any
		want Kind
	}{
		{map[string]any{"type": "string"}, KindString},
		{map[string]any{"type": "number"}, KindNumber},
		{map[string]any{"type": "integer"}, KindAny},
		{map[string]any{"type": "boolean"}, KindBoolean},
		{map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, KindArray},
		{map[string]any{"type": "object"}, KindObject},
		{map[string]any{"type": "null"}, KindAny},
		{map[string]any{}, KindAny},
		{nil, KindAny},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FieldFromProperty(tt.prop).Kind, "%v", tt.prop)
	}
	assert.Equal(t, "the city", FieldFromProperty(map[string]any{"type": "string", "description": "the city"}).Description)
}

func TestObjectSchemaFrom(t *testing.T) {
	s := ObjectSchemaFrom(mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"city":  map[string]any{"type": "string"},
			"units": map[string]any{"type": "string"},
		},
		Required: []string{"city"},
	})
	require.Len(t, s.Fields, 2)
	assert.False(t, s.Fields["city"].Optional)
	assert.True(t, s.Fields["units"].Optional)
}

func TestObjectSchemaFromEmpty(t *testing.T) {
	s := ObjectSchemaFrom(mcp.ToolInputSchema{})
	assert.Empty(t, s.Fields)
	assert.NoError(t, s.Validate(map[string]any{"anything": 1}))
	assert.Equal(t, map[string]any{}, s.JSONSchema()["properties"])
}

func TestValidate(t *testing.T) {
	s := ObjectSchema{Fields: map[string]Field{
		"q":     {Kind: KindString},
		"limit": {Kind: KindNumber, Optional: true},
		"tags":  {Kind: KindArray, Optional: true},
		"deep":  {Kind: KindBoolean, Optional: true},
		"meta":  {Kind: KindObject, Optional: true},
		"x":     {Kind: KindAny, Optional: true},
	}}

	assert.NoError(t, s.Validate(map[string]any{"q": "go"}))
	assert.NoError(t, s.Validate(map[string]any{
		"q": "go", "limit": float64(3), "tags": []any{"a"}, "deep": true,
		"meta": map[string]any{"k": "v"}, "x": 7, "extra": "kept",
	}))
	assert.NoError(t, s.Validate(map[string]any{"q": "go", "limit": nil}))

	err := s.Validate(map[string]any{})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "q", ve.Field)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Error(t, s.Validate(map[string]any{"q": 1}))
	assert.Error(t, s.Validate(map[string]any{"q": "go", "limit": "3"}))
	assert.Error(t, s.Validate(map[string]any{"q": "go", "deep": "yes"}))
	assert.Error(t, s.Validate(map[string]any{"q": "go", "tags": "a"}))
	assert.Error(t, s.Validate(map[string]any{"q": "go", "meta": []any{}}))
}

func TestValidateAnyKind(t *testing.T) {
	s := ObjectSchemaFrom(mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{"n": map[string]any{"type": "integer"}},
		Required:   []string{"n"},
	})
	require.Equal(t, KindAny, s.Fields["n"].Kind)
	assert.False(t, s.Fields["n"].Optional)

	assert.NoError(t, s.Validate(map[string]any{"n": "5"}))
	assert.NoError(t, s.Validate(map[string]any{"n": float64(5)}))
	assert.NoError(t, s.Validate(map[string]any{}), "any accepts a missing value")
	assert.NoError(t, s.Validate(map[string]any{"n": nil}))
}

func TestJSONSchema(t *testing.T) {
	s := ObjectSchema{Fields: map[string]Field{
		"b": {Kind: KindArray, Optional: true},
		"a": {Kind: KindString, Description: "first"},
		"c": {Kind: KindAny},
	}}
	out := s.JSONSchema()
	assert.Equal(t, "object", out["type"])
	assert.Equal(t, []string{"a", "c"}, out["required"])
	props := out["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "first"}, props["a"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{}}, props["b"])
	assert.Equal(t, map[string]any{}, props["c"])
}
