package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text  string `json:"text" jsonschema:"Text to echo back"`
	Count int    `json:"count,omitempty" jsonschema:"Number of repetitions"`
}

func newEchoTool(t *testing.T, opts ...Option) *Tool {
	t.Helper()
	tl, err := New("echo", "Echo the input text.",
		func(_ context.Context, input echoInput) (string, error) {
			out := input.Text
			for i := 1; i < input.Count; i++ {
				out += " " + input.Text
			}
			return out, nil
		}, opts...)
	require.NoError(t, err)
	return tl
}

func TestTool_ExecuteConvertsArguments(t *testing.T) {
	tl := newEchoTool(t)

	out, err := tl.Execute(t.Context(), map[string]any{"text": "hi", "count": 3})
	require.NoError(t, err)
	assert.Equal(t, "hi hi hi", out)
}

func TestTool_ExecuteRejectsWrongTypes(t *testing.T) {
	tl := newEchoTool(t)

	_, err := tl.Execute(t.Context(), map[string]any{"text": "hi", "count": "three"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments")
}

func TestTool_DefinitionCarriesSchema(t *testing.T) {
	tl := newEchoTool(t)

	def := tl.Definition()
	assert.Equal(t, "echo", def.Name)
	assert.Equal(t, "Echo the input text.", def.Description)
	require.NotNil(t, def.InputSchema)
	assert.Contains(t, def.InputSchema.Properties, "text")
}

func TestTool_ReturnDirect(t *testing.T) {
	assert.False(t, newEchoTool(t).ReturnDirect())
	assert.True(t, newEchoTool(t, WithReturnDirect()).ReturnDirect())
}

func TestRegistry_DispatchAndOrder(t *testing.T) {
	a, err := New("alpha", "first", func(context.Context, echoInput) (string, error) {
		return "a", nil
	})
	require.NoError(t, err)
	b, err := New("beta", "second", func(context.Context, echoInput) (string, error) {
		return "b", nil
	}, WithReturnDirect())
	require.NoError(t, err)

	reg, err := NewRegistry(a, b)
	require.NoError(t, err)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "beta", defs[1].Name)

	out, err := reg.Execute(t.Context(), "beta", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	assert.False(t, reg.ReturnDirect("alpha"))
	assert.True(t, reg.ReturnDirect("beta"))
	assert.False(t, reg.ReturnDirect("missing"))
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	_, err = reg.Execute(t.Context(), "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "nope"`)
}

func TestRegistry_DuplicateName(t *testing.T) {
	a, err := New("dup", "first", func(context.Context, echoInput) (string, error) {
		return "", nil
	})
	require.NoError(t, err)
	b, err := New("dup", "second", func(context.Context, echoInput) (string, error) {
		return "", nil
	})
	require.NoError(t, err)

	_, err = NewRegistry(a, b)
	assert.Error(t, err)
}
