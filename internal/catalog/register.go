// ABOUTME: Generic tool registration with schema derivation from Go signatures.
// ABOUTME: Input/output JSON Schemas come from jsonschema-go; injected fields are tagged.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// registerOptions collects the optional registration settings.
type registerOptions struct {
	version     any
	permissions []string
}

// RegisterOption customizes a tool registration.
type RegisterOption func(*registerOptions)

// WithVersion sets the tool version. Accepts an int, a dotted string, a
// Version, or a sequence of 1-3 ints; defaults to 1.0.0.
func WithVersion(v any) RegisterOption {
	return func(o *registerOptions) { o.version = v }
}

// WithPermissions sets the permissions required to see or call the tool.
// A tool with no permissions is public.
func WithPermissions(perms ...string) RegisterOption {
	return func(o *registerOptions) { o.permissions = perms }
}

var callContextType = reflect.TypeFor[*CallContext]()

// Register adds a tool to the catalog, deriving its input and output JSON
// Schemas from the function signature. In must be a struct; its exported
// fields become the input schema. A field tagged `inject:"request"` (which
// must be a *CallContext with `json:"-"`) is supplied by the dispatcher from
// request context instead of caller input. An Out of type any leaves the
// output schema unconstrained.
//
// Returns the finalized identifier name@major.minor.patch, or fails with
// ErrInvalidVersion or ErrDuplicateTool. On failure the catalog is unchanged.
func Register[In, Out any](c *Catalog, name, description string, fn func(context.Context, In) (Out, error), opts ...RegisterOption) (string, error) {
	if name == "" {
		return "", fmt.Errorf("tool name must not be empty")
	}
	if strings.Contains(name, "@") {
		return "", fmt.Errorf("tool name %q must not contain %q", name, "@")
	}
	if fn == nil {
		return "", fmt.Errorf("tool %s: implementation must not be nil", name)
	}

	o := registerOptions{version: Version{Major: 1}}
	for _, opt := range opts {
		opt(&o)
	}

	version, err := ParseVersion(o.version)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}

	inType := reflect.TypeFor[In]()
	if inType.Kind() != reflect.Struct {
		return "", fmt.Errorf("tool %s: input type %s must be a struct", name, inType)
	}
	injected, err := injectedFields(inType)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}

	inputSchema, err := jsonschema.For[In](nil)
	if err != nil {
		return "", fmt.Errorf("tool %s: deriving input schema: %w", name, err)
	}
	resolved, err := inputSchema.Resolve(nil)
	if err != nil {
		return "", fmt.Errorf("tool %s: resolving input schema: %w", name, err)
	}

	t := &Tool{
		ID:           name + "@" + version.String(),
		Name:         name,
		Description:  description,
		Version:      version,
		InputSchema:  inputSchema,
		OutputSchema: outputSchema[Out](c.logger, name),
		Permissions:  o.permissions,
		resolved:     resolved,
		injected:     injected,
		handler:      typedHandler(fn, injected),
	}
	return c.register(t)
}

// typedHandler wraps a typed implementation into the dispatcher's calling
// convention: decode the validated input, set injected fields, invoke.
func typedHandler[In, Out any](fn func(context.Context, In) (Out, error), injected []injectedParam) handlerFunc {
	return func(ctx context.Context, call *CallContext, input json.RawMessage) (any, error) {
		var in In
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("decoding input: %w", err)
			}
		}
		if len(injected) > 0 {
			v := reflect.ValueOf(&in).Elem()
			for _, p := range injected {
				switch p.kind {
				case InjectCallContext:
					v.Field(p.field).Set(reflect.ValueOf(call))
				}
			}
		}
		return fn(ctx, in)
	}
}

// injectedFields scans the input struct for inject-tagged fields. Injected
// fields are trusted dispatcher input: they must be excluded from the JSON
// surface (json:"-") so callers can never supply them.
func injectedFields(t reflect.Type) ([]injectedParam, error) {
	var out []injectedParam
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("injected field %s must be exported", f.Name)
		}
		switch tag {
		case "request":
			if f.Type != callContextType {
				return nil, fmt.Errorf("injected field %s must have type *catalog.CallContext, got %s", f.Name, f.Type)
			}
			if f.Tag.Get("json") != "-" {
				return nil, fmt.Errorf("injected field %s must carry json:%q", f.Name, "-")
			}
			out = append(out, injectedParam{field: i, name: f.Name, kind: InjectCallContext})
		default:
			return nil, fmt.Errorf("field %s: unknown inject kind %q", f.Name, tag)
		}
	}
	return out, nil
}

// outputSchema derives the output schema, or nil (unconstrained) for
// interface types and underivable returns.
func outputSchema[Out any](logger *slog.Logger, name string) *jsonschema.Schema {
	if reflect.TypeFor[Out]().Kind() == reflect.Interface {
		return nil
	}
	s, err := jsonschema.For[Out](nil)
	if err != nil {
		logger.Warn("deriving output schema failed, leaving unconstrained",
			"tool_name", name, "error", err)
		return nil
	}
	return s
}
