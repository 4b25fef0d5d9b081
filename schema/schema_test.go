package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectSchema() *Schema {
	return New(map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"text"},
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	})
}

func TestValidate_NilSchemaPassesThrough(t *testing.T) {
	canonical, issues, err := Validate(nil, map[string]any{"anything": 1})
	require.NoError(t, err)
	assert.Nil(t, issues)
	assert.Equal(t, map[string]any{"anything": 1}, canonical)
}

func TestValidate_Success(t *testing.T) {
	canonical, issues, err := Validate(objectSchema(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, map[string]any{"text": "hi"}, canonical)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	_, issues, err := Validate(objectSchema(), map[string]any{})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestValidate_UnexpectedFieldRejectedOnClosedSchema(t *testing.T) {
	_, issues, err := Validate(objectSchema(), map[string]any{"text": "hi", "extra": true})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestToPortable_NilSchema(t *testing.T) {
	assert.Nil(t, ToPortable(nil))
}

func TestToPortable_RoundTrips(t *testing.T) {
	s := objectSchema()
	portable := ToPortable(s)
	require.NotNil(t, portable)
	m, ok := portable.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", m["type"])
}

type echoPayload struct {
	Text string `json:"text"`
}

func TestFromStruct_ProducesUsableSchema(t *testing.T) {
	s := FromStruct(echoPayload{})
	_, issues, err := Validate(s, map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}
