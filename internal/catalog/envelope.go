// ABOUTME: Wire shapes for tool invocation: call request, response envelope, tool errors.
// ABOUTME: ToolError travels inside a successful response, never as a transport failure.

package catalog

import (
	"encoding/json"
	"errors"
)

// CallRequest is the body of a tool invocation.
type CallRequest struct {
	// ToolID is a bare name or name@version identifier.
	ToolID string `json:"tool_id"`
	// Input is the tool's input object. Absent means empty input.
	Input json.RawMessage `json:"input,omitempty"`
	// CallID optionally names the invocation. The dispatcher echoes it back
	// verbatim; when absent one is generated.
	CallID string `json:"call_id,omitempty"`
}

// CallResponse is the envelope around every completed invocation, successful
// or not. Dispatcher-level failures never produce one; they surface as
// transport status codes instead.
type CallResponse struct {
	// CallID uniquely identifies this invocation for audit correlation.
	CallID string `json:"call_id"`
	// Success is false only when the tool reported a deliberate failure.
	Success bool `json:"success"`
	// Output holds exactly one of the tool's return value or its error report.
	Output Output `json:"output"`
}

// Output is the sum of a tool's return value and its deliberate error report.
// Exactly one side is populated.
type Output struct {
	Value any
	Err   *ErrorDetail
}

// MarshalJSON renders the populated side. An error report is wrapped under an
// "error" key; a value is emitted as-is, including JSON null.
func (o Output) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(map[string]*ErrorDetail{"error": o.Err})
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON splits a raw output back into value or error report. An
// object with exactly an "error" key shaped like ErrorDetail is treated as an
// error report; everything else is a value.
func (o *Output) UnmarshalJSON(data []byte) error {
	var probe struct {
		Error *ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Error != nil && probe.Error.Message != "" {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err == nil && len(keys) == 1 {
			o.Err = probe.Error
			o.Value = nil
			return nil
		}
	}
	o.Err = nil
	return json.Unmarshal(data, &o.Value)
}

// ErrorDetail is the structured report of a deliberate tool failure.
type ErrorDetail struct {
	// Message is the caller-facing description of the failure.
	Message string `json:"message"`
	// DeveloperMessage is diagnostic detail aimed at the tool's integrator.
	DeveloperMessage string `json:"developer_message,omitempty"`
	// CanRetry hints whether retrying the same call may succeed.
	CanRetry *bool `json:"can_retry,omitempty"`
	// AdditionalPromptContent is extra content an agent may fold into its
	// next attempt.
	AdditionalPromptContent string `json:"additional_prompt_content,omitempty"`
	// RetryAfterMS suggests a delay before retrying, in milliseconds.
	RetryAfterMS *int64 `json:"retry_after_ms,omitempty"`
}

// ToolError is a deliberate, structured failure raised by a tool
// implementation. The dispatcher reports it inside the response envelope with
// success=false rather than as a transport error, so agents can read the
// structured detail.
type ToolError struct {
	Message                 string
	DeveloperMessage        string
	CanRetry                *bool
	AdditionalPromptContent string
	RetryAfterMS            *int64
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return e.Message
}

// Detail converts the error into its wire shape.
func (e *ToolError) Detail() *ErrorDetail {
	return &ErrorDetail{
		Message:                 e.Message,
		DeveloperMessage:        e.DeveloperMessage,
		CanRetry:                e.CanRetry,
		AdditionalPromptContent: e.AdditionalPromptContent,
		RetryAfterMS:            e.RetryAfterMS,
	}
}

// NewToolError builds a ToolError with just a caller-facing message.
func NewToolError(message string) *ToolError {
	return &ToolError{Message: message}
}

// AsToolError unwraps err to a *ToolError if one is in the chain.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Bool returns a pointer to b, for the optional retry fields.
func Bool(b bool) *bool { return &b }

// Int64 returns a pointer to v, for the optional retry fields.
func Int64(v int64) *int64 { return &v }
