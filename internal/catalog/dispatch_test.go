// ABOUTME: Tests for the invocation pipeline and its status mapping.
// ABOUTME: Covers success, denial, validation, tool errors, panics, and audit records.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/spellbook/internal/auth"
)

type memoryAudit struct {
	mu      sync.Mutex
	records []CallRecord
}

func (m *memoryAudit) RecordCall(ctx context.Context, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryAudit) last(t *testing.T) CallRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.records)
	return m.records[len(m.records)-1]
}

func newAddCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New(testLogger())
	_, err := Register(c, "add", "Adds two integers.",
		func(ctx context.Context, in addInput) (int, error) { return in.X + in.Y, nil })
	require.NoError(t, err)
	return c
}

func callRequest(toolID, input string) CallRequest {
	req := CallRequest{ToolID: toolID}
	if input != "" {
		req.Input = json.RawMessage(input)
	}
	return req
}

func requireStatus(t *testing.T, err error, code int) *StatusError {
	t.Helper()
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, code, se.Code)
	return se
}

func TestDispatch_Success(t *testing.T) {
	c := newAddCatalog(t)
	d := NewDispatcher(c, testLogger())

	resp, err := d.Dispatch(context.Background(), nil, callRequest("add", `{"x":1,"y":2}`))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.CallID)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Output.Value)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"call_id":"`+resp.CallID+`","success":true,"output":3}`, string(raw))
}

func TestDispatch_EchoesSuppliedCallID(t *testing.T) {
	c := newAddCatalog(t)
	d := NewDispatcher(c, testLogger())

	req := callRequest("add", `{"x":1,"y":2}`)
	req.CallID = "caller-chosen-42"
	resp, err := d.Dispatch(context.Background(), nil, req)
	require.NoError(t, err)
	assert.Equal(t, "caller-chosen-42", resp.CallID)

	// Without a supplied id the dispatcher generates one.
	resp, err = d.Dispatch(context.Background(), nil, callRequest("add", `{"x":1,"y":2}`))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CallID)
	assert.NotEqual(t, "caller-chosen-42", resp.CallID)
}

func TestDispatch_ValidationFailure(t *testing.T) {
	c := newAddCatalog(t)
	d := NewDispatcher(c, testLogger())

	_, err := d.Dispatch(context.Background(), nil, callRequest("add", `{"x":"one","y":2}`))
	se := requireStatus(t, err, http.StatusBadRequest)

	// The failure carries the schema and the offending payload.
	assert.Contains(t, se.Message, "schema")
	assert.Contains(t, se.Message, `"one"`)
}

func TestDispatch_MalformedInput(t *testing.T) {
	c := newAddCatalog(t)
	d := NewDispatcher(c, testLogger())

	_, err := d.Dispatch(context.Background(), nil, callRequest("add", `{"x":`))
	requireStatus(t, err, http.StatusBadRequest)
}

func TestDispatch_UnknownToolAuthDisabled(t *testing.T) {
	c := newAddCatalog(t)
	d := NewDispatcher(c, testLogger())

	_, err := d.Dispatch(context.Background(), nil, callRequest("missing", ""))
	requireStatus(t, err, http.StatusNotFound)
}

func TestDispatch_MalformedIdentifier(t *testing.T) {
	c := newAddCatalog(t)
	d := NewDispatcher(c, testLogger())

	for _, id := range []string{"add@abc", "add@1@2", "add@1.2.3.4"} {
		_, err := d.Dispatch(context.Background(), nil, callRequest(id, ""))
		requireStatus(t, err, http.StatusUnprocessableEntity)
	}
}

func TestDispatch_UniformDenialWithAuth(t *testing.T) {
	c := New(testLogger())
	c.EnableAuth()
	_, err := Register(c, "secret", "Requires clearance.",
		func(ctx context.Context, in addInput) (int, error) { return 0, nil },
		WithPermissions("clearance"))
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	call := &CallContext{
		Request:   httptest.NewRequest("POST", "/tools/call", nil),
		Principal: &auth.Principal{ID: "u1", Authenticated: true},
	}

	_, missingErr := d.Dispatch(context.Background(), call, callRequest("missing", ""))
	missing := requireStatus(t, missingErr, http.StatusForbidden)

	_, forbiddenErr := d.Dispatch(context.Background(), call, callRequest("secret", `{"x":1,"y":2}`))
	forbidden := requireStatus(t, forbiddenErr, http.StatusForbidden)

	// Absent and forbidden tools are indistinguishable to the caller.
	assert.Equal(t, missing.Message, forbidden.Message)
	assert.Equal(t, "tool either does not exist or insufficient permissions", forbidden.Message)
}

func TestDispatch_AllowedWithPermission(t *testing.T) {
	c := New(testLogger())
	c.EnableAuth()
	_, err := Register(c, "secret", "Requires clearance.",
		func(ctx context.Context, in addInput) (int, error) { return in.X, nil },
		WithPermissions("clearance"))
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	call := &CallContext{
		Request: httptest.NewRequest("POST", "/tools/call", nil),
		Principal: &auth.Principal{
			ID:            "u1",
			Authenticated: true,
			Permissions:   []string{"clearance"},
		},
	}

	resp, err := d.Dispatch(context.Background(), call, callRequest("secret", `{"x":7,"y":0}`))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 7, resp.Output.Value)
}

func TestDispatch_ToolErrorTravelsInEnvelope(t *testing.T) {
	c := New(testLogger())
	_, err := Register(c, "flaky", "Always reports a structured failure.",
		func(ctx context.Context, in addInput) (int, error) {
			return 0, &ToolError{
				Message:          "upstream quota exhausted",
				DeveloperMessage: "tenant 42 is over its daily budget",
				CanRetry:         Bool(true),
				RetryAfterMS:     Int64(30_000),
			}
		})
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	resp, err := d.Dispatch(context.Background(), nil, callRequest("flaky", `{"x":1,"y":2}`))
	require.NoError(t, err, "a deliberate tool failure is not a pipeline failure")
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Output.Err)
	assert.Equal(t, "upstream quota exhausted", resp.Output.Err.Message)

	raw, merr := json.Marshal(resp)
	require.NoError(t, merr)
	assert.JSONEq(t, `{
		"call_id": "`+resp.CallID+`",
		"success": false,
		"output": {
			"error": {
				"message": "upstream quota exhausted",
				"developer_message": "tenant 42 is over its daily budget",
				"can_retry": true,
				"retry_after_ms": 30000
			}
		}
	}`, string(raw))
}

func TestDispatch_WrappedToolErrorIsRecognized(t *testing.T) {
	c := New(testLogger())
	_, err := Register(c, "wrapped", "Wraps its failure.",
		func(ctx context.Context, in addInput) (int, error) {
			return 0, errors.Join(errors.New("context for operators"), NewToolError("visible to callers"))
		})
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	resp, err := d.Dispatch(context.Background(), nil, callRequest("wrapped", `{"x":1,"y":2}`))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "visible to callers", resp.Output.Err.Message)
}

func TestDispatch_OpaqueErrorBecomesInternal(t *testing.T) {
	c := New(testLogger())
	_, err := Register(c, "broken", "Fails with an unstructured error.",
		func(ctx context.Context, in addInput) (int, error) {
			return 0, errors.New("database on fire")
		})
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	_, err = d.Dispatch(context.Background(), nil, callRequest("broken", `{"x":1,"y":2}`))
	se := requireStatus(t, err, http.StatusInternalServerError)
	assert.NotContains(t, se.Message, "database", "internal detail must not leak")
}

func TestDispatch_PanicRecovered(t *testing.T) {
	c := New(testLogger())
	_, err := Register(c, "panics", "Panics on call.",
		func(ctx context.Context, in addInput) (int, error) { panic("boom") })
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	_, err = d.Dispatch(context.Background(), nil, callRequest("panics", `{"x":1,"y":2}`))
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestDispatch_AuditRecords(t *testing.T) {
	c := newAddCatalog(t)
	audit := &memoryAudit{}
	d := NewDispatcher(c, testLogger(), WithAudit(audit))

	call := &CallContext{
		Request:   httptest.NewRequest("POST", "/tools/call", nil),
		Principal: &auth.Principal{ID: "u1", Authenticated: true},
	}

	resp, err := d.Dispatch(context.Background(), call, callRequest("add", `{"x":1,"y":2}`))
	require.NoError(t, err)
	rec := audit.last(t)
	assert.Equal(t, resp.CallID, rec.CallID)
	assert.Equal(t, "add", rec.ToolID)
	assert.Equal(t, "u1", rec.Caller)
	assert.True(t, rec.Success)
	assert.Equal(t, http.StatusOK, rec.Status)

	_, err = d.Dispatch(context.Background(), call, callRequest("missing", ""))
	require.Error(t, err)
	rec = audit.last(t)
	assert.False(t, rec.Success)
	assert.Equal(t, http.StatusNotFound, rec.Status)
	assert.NotEmpty(t, rec.Error)
}

func TestDispatch_EmptyInputMeansEmptyObject(t *testing.T) {
	c := New(testLogger())
	_, err := Register(c, "now", "Needs no input.",
		func(ctx context.Context, in struct{}) (string, error) { return "ok", nil })
	require.NoError(t, err)
	d := NewDispatcher(c, testLogger())

	resp, err := d.Dispatch(context.Background(), nil, callRequest("now", ""))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", resp.Output.Value)
}
