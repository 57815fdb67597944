// ABOUTME: Tests for signature-based registration and schema derivation.
// ABOUTME: Covers derived schemas, injected-field validation, and registration options.

package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addInput struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestRegister_DerivesInputSchema(t *testing.T) {
	c := New(testLogger())

	id, err := Register(c, "add", "Adds two integers.",
		func(ctx context.Context, in addInput) (int, error) { return in.X + in.Y, nil })
	require.NoError(t, err)

	tool, err := c.Resolve(id)
	require.NoError(t, err)

	raw, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties: %s", raw)
	assert.Contains(t, props, "x")
	assert.Contains(t, props, "y")
}

func TestRegister_UnconstrainedOutputForAny(t *testing.T) {
	c := New(testLogger())

	id, err := Register(c, "passthrough", "Returns whatever it got.",
		func(ctx context.Context, in addInput) (any, error) { return in.X, nil })
	require.NoError(t, err)

	tool, err := c.Resolve(id)
	require.NoError(t, err)
	assert.Nil(t, tool.OutputSchema)

	// The listing view renders unconstrained output as the empty schema.
	defs := c.List(nil)
	require.Len(t, defs, 1)
	assert.NotNil(t, defs[0].OutputSchema)
}

func TestRegister_Permissions(t *testing.T) {
	c := New(testLogger())

	id, err := Register(c, "guarded", "Needs two permissions.",
		func(ctx context.Context, in addInput) (int, error) { return 0, nil },
		WithPermissions("read", "write"))
	require.NoError(t, err)

	tool, err := c.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, tool.RequiredPermissions())
}

func TestRegister_RejectsBadNames(t *testing.T) {
	c := New(testLogger())
	fn := func(ctx context.Context, in addInput) (int, error) { return 0, nil }

	_, err := Register(c, "", "Empty.", fn)
	assert.Error(t, err)

	_, err = Register(c, "add@2", "Versioned name.", fn)
	assert.Error(t, err)

	_, err = Register[addInput, int](c, "add", "No implementation.", nil)
	assert.Error(t, err)
}

func TestRegister_InjectedFieldValidation(t *testing.T) {
	c := New(testLogger())

	type wrongType struct {
		Call string `json:"-" inject:"request"`
	}
	_, err := Register(c, "bad-type", "Injected field with a wrong type.",
		func(ctx context.Context, in wrongType) (string, error) { return "", nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "*catalog.CallContext")

	type leaky struct {
		Call *CallContext `json:"call" inject:"request"`
	}
	_, err = Register(c, "leaky", "Injected field visible to callers.",
		func(ctx context.Context, in leaky) (string, error) { return "", nil })
	require.Error(t, err)

	type unknownKind struct {
		Call *CallContext `json:"-" inject:"session"`
	}
	_, err = Register(c, "unknown-kind", "Unknown inject tag.",
		func(ctx context.Context, in unknownKind) (string, error) { return "", nil })
	require.Error(t, err)

	assert.Equal(t, 0, c.Len())
}

func TestRegister_InjectedToolReceivesCallContext(t *testing.T) {
	c := New(testLogger())

	type whoInput struct {
		Name string       `json:"name"`
		Call *CallContext `json:"-" inject:"request"`
	}
	id, err := Register(c, "whoami", "Echoes the injected context.",
		func(ctx context.Context, in whoInput) (bool, error) {
			return in.Call != nil && in.Call.hasRequest(), nil
		})
	require.NoError(t, err)

	tool, err := c.Resolve(id)
	require.NoError(t, err)
	assert.True(t, tool.NeedsCallContext())

	// The injected field stays out of the derived schema.
	raw, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Call")
}
