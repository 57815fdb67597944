// ABOUTME: Invocation pipeline: resolve, authorize, validate, inject, invoke, envelope.
// ABOUTME: Maps pipeline failures to status errors and tool failures into the envelope.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// AuditRecorder persists one record per completed invocation. Implementations
// must tolerate concurrent calls.
type AuditRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

// CallRecord is the audit trail entry for one invocation.
type CallRecord struct {
	CallID    string
	ToolID    string
	Caller    string
	Success   bool
	Status    int
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAudit attaches an audit recorder. Recording failures are logged, never
// surfaced to the caller.
func WithAudit(rec AuditRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.audit = rec }
}

// WithTimeout bounds each tool invocation. Zero means no per-call bound
// beyond the caller's context.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// Dispatcher runs tool invocations against a catalog.
type Dispatcher struct {
	catalog *Catalog
	audit   AuditRecorder
	timeout time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher over the catalog.
func NewDispatcher(c *Catalog, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default().With("component", "dispatcher")
	}
	d := &Dispatcher{catalog: c, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one invocation end to end. A non-nil *CallResponse means the
// tool ran (or deliberately failed); a non-nil error is a pipeline failure
// carrying a *StatusError for the transport to render. Exactly one of the two
// is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, call *CallContext, req CallRequest) (*CallResponse, error) {
	started := time.Now()
	callID := req.CallID
	if callID == "" {
		callID = uuid.NewString()
	}

	resp, err := d.run(ctx, call, req, callID)
	d.record(ctx, callID, req.ToolID, call, resp, err, started)
	return resp, err
}

func (d *Dispatcher) run(ctx context.Context, call *CallContext, req CallRequest, callID string) (*CallResponse, error) {
	tool, err := d.resolve(req.ToolID)
	if err != nil {
		return nil, err
	}

	if !IsAllowed(tool, call, d.catalog.AuthEnabled()) {
		return nil, d.denied(req.ToolID)
	}

	if err := d.validateInput(tool, req.Input); err != nil {
		return nil, err
	}

	output, err := d.invoke(ctx, tool, call, req.Input)
	if err != nil {
		if te, ok := AsToolError(err); ok {
			return &CallResponse{
				CallID:  callID,
				Success: false,
				Output:  Output{Err: te.Detail()},
			}, nil
		}
		d.logger.Error("tool execution failed",
			"tool_id", tool.ID,
			"call_id", callID,
			"error", err,
		)
		return nil, statusError(http.StatusInternalServerError, "tool execution failed")
	}

	return &CallResponse{CallID: callID, Success: true, Output: Output{Value: output}}, nil
}

// resolve maps the identifier to a tool, translating catalog sentinels into
// status errors. With authorization enabled, an unknown tool is reported with
// the same denial as a forbidden one.
func (d *Dispatcher) resolve(id string) (*Tool, error) {
	tool, err := d.catalog.Resolve(id)
	switch {
	case err == nil:
		return tool, nil
	case errors.Is(err, ErrMalformedID):
		return nil, statusError(http.StatusUnprocessableEntity, "invalid tool identifier %q", id)
	case errors.Is(err, ErrToolNotFound):
		return nil, d.denied(id)
	default:
		return nil, statusError(http.StatusInternalServerError, "resolving tool: %v", err)
	}
}

// denied builds the resolution failure. The auth-enabled message does not
// distinguish absent from forbidden.
func (d *Dispatcher) denied(id string) *StatusError {
	if d.catalog.AuthEnabled() {
		return statusError(http.StatusForbidden, "%s", deniedMessage)
	}
	return statusError(http.StatusNotFound, "tool %s not found", id)
}

// validateInput checks the payload against the tool's resolved input schema.
// Failures carry the schema and the offending payload so callers can repair
// the request without a second round trip.
func (d *Dispatcher) validateInput(tool *Tool, input json.RawMessage) error {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	var decoded any
	if err := json.Unmarshal(input, &decoded); err != nil {
		return statusError(http.StatusBadRequest, "input is not valid JSON: %v", err)
	}

	if err := tool.resolved.Validate(decoded); err != nil {
		schemaJSON, merr := json.Marshal(tool.InputSchema)
		if merr != nil {
			schemaJSON = []byte(`{}`)
		}
		return statusError(http.StatusBadRequest,
			"input validation failed: %v (schema: %s, payload: %s)",
			err, schemaJSON, input)
	}
	return nil
}

// invoke runs the tool handler with panic recovery and the configured
// per-call timeout.
func (d *Dispatcher) invoke(ctx context.Context, tool *Tool, call *CallContext, input json.RawMessage) (output any, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked",
				"tool_id", tool.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("tool %s panicked: %v", tool.ID, r)
		}
	}()

	return tool.handler(ctx, call, input)
}

// record writes the audit entry, if a recorder is attached.
func (d *Dispatcher) record(ctx context.Context, callID, toolID string, call *CallContext, resp *CallResponse, dispatchErr error, started time.Time) {
	if d.audit == nil {
		return
	}

	rec := CallRecord{
		CallID:    callID,
		ToolID:    toolID,
		Success:   resp != nil && resp.Success,
		Status:    http.StatusOK,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if call != nil && call.Principal != nil {
		rec.Caller = call.Principal.ID
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
		var se *StatusError
		if errors.As(dispatchErr, &se) {
			rec.Status = se.Code
		} else {
			rec.Status = http.StatusInternalServerError
		}
	} else if resp != nil && resp.Output.Err != nil {
		rec.Error = resp.Output.Err.Message
	}

	if err := d.audit.RecordCall(ctx, rec); err != nil {
		d.logger.Warn("recording call failed", "call_id", callID, "error", err)
	}
}
