// ABOUTME: Tests for the output side of the call envelope.
// ABOUTME: Covers the value-or-error split when decoding responses.

package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_UnmarshalErrorReport(t *testing.T) {
	var out Output
	require.NoError(t, json.Unmarshal([]byte(`{"error":{"message":"nope","can_retry":false}}`), &out))
	require.NotNil(t, out.Err)
	assert.Equal(t, "nope", out.Err.Message)
	require.NotNil(t, out.Err.CanRetry)
	assert.False(t, *out.Err.CanRetry)
	assert.Nil(t, out.Value)
}

func TestOutput_UnmarshalValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"scalar", `3`},
		{"object without error key", `{"result":"ok"}`},
		{"error key beside other keys", `{"error":{"message":"x"},"partial":true}`},
		{"error key with wrong shape", `{"error":"just a string"}`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out Output
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &out))
			assert.Nil(t, out.Err)
		})
	}
}

func TestOutput_MarshalNullValue(t *testing.T) {
	raw, err := json.Marshal(Output{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}
