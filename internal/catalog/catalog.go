// ABOUTME: Thread-safe catalog of registered tool versions with a latest-version index.
// ABOUTME: Owns registration, identifier resolution, and permission-filtered listing.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// InjectKind identifies a request-scoped value the dispatcher supplies to a
// tool instead of the caller.
type InjectKind int

const (
	// InjectCallContext injects the per-request *CallContext. Only available
	// on call paths that carry a live request.
	InjectCallContext InjectKind = iota
)

// injectedParam records one injected input-struct field.
type injectedParam struct {
	field int // struct field index in the input type
	name  string
	kind  InjectKind
}

// handlerFunc is the type-erased tool implementation invoked by the
// dispatcher after validation and injection.
type handlerFunc func(ctx context.Context, call *CallContext, input json.RawMessage) (any, error)

// Tool is one registered tool version. Immutable after registration; a new
// version must be registered under a new identifier.
type Tool struct {
	ID          string
	Name        string
	Description string
	Version     Version
	// InputSchema is the derived JSON Schema for caller-supplied input.
	InputSchema *jsonschema.Schema
	// OutputSchema is the derived JSON Schema for the result. Nil means
	// unconstrained.
	OutputSchema *jsonschema.Schema
	// Permissions is the set of permissions required to see or call the tool.
	// Empty means public.
	Permissions []string

	resolved *jsonschema.Resolved
	injected []injectedParam
	handler  handlerFunc
}

// Definition is the listing view of a registered tool.
type Definition struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	InputSchema  *jsonschema.Schema `json:"input_schema"`
	OutputSchema *jsonschema.Schema `json:"output_schema"`
	Version      string             `json:"version"`
}

// Catalog maps tool identifiers to registered tools and tracks the latest
// version per name. Registration happens during startup, before the server
// accepts requests; reads are safe concurrently with each other.
type Catalog struct {
	mu     sync.RWMutex
	tools  map[string]*Tool // id -> tool, all versions
	order  []string         // identifiers in registration order
	latest map[string]*Tool // name -> highest registered version

	authEnabled bool
	logger      *slog.Logger
}

// New creates an empty Catalog.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default().With("component", "catalog")
	}
	return &Catalog{
		tools:  make(map[string]*Tool),
		latest: make(map[string]*Tool),
		logger: logger,
	}
}

// EnableAuth marks the catalog as authorization-gated. Called once at startup
// when an authenticator is configured; it changes how resolution failures are
// reported (403 rather than 404) and enables permission filtering.
func (c *Catalog) EnableAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authEnabled = true
}

// AuthEnabled reports whether authorization is enabled.
func (c *Catalog) AuthEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authEnabled
}

// register inserts a fully built tool. The full mapping and the latest index
// are updated under one lock so a concurrent reader never sees one without
// the other. On failure the catalog is unchanged.
func (c *Catalog) register(t *Tool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[t.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateTool, t.ID)
	}

	c.tools[t.ID] = t
	c.order = append(c.order, t.ID)

	if current, ok := c.latest[t.Name]; !ok || t.Version.Compare(current.Version) > 0 {
		c.latest[t.Name] = t
	}

	c.logger.Info("tool registered",
		"tool_id", t.ID,
		"permissions", t.Permissions,
		"total_tools", len(c.tools),
	)
	return t.ID, nil
}

// Resolve maps a caller-supplied identifier to a registered tool. A bare name
// resolves through the latest-version index; name@version resolves an exact
// version, accepting partial versions ("2" means 2.0.0). More than one "@" or
// a malformed version suffix is ErrMalformedID.
func (c *Catalog) Resolve(id string) (*Tool, error) {
	parts := strings.Split(id, "@")
	switch len(parts) {
	case 1:
		c.mu.RLock()
		defer c.mu.RUnlock()
		t, ok := c.latest[parts[0]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id)
		}
		return t, nil
	case 2:
		version, err := ParseVersion(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedID, id, err)
		}
		full := parts[0] + "@" + version.String()
		c.mu.RLock()
		defer c.mu.RUnlock()
		t, ok := c.tools[full]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, full)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
}

// List returns the definitions of every tool the caller may see, in
// registration order. All versions of a name are listed; clients choose a
// version explicitly.
func (c *Catalog) List(call *CallContext) []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		t := c.tools[id]
		if !IsAllowed(t, call, c.authEnabled) {
			continue
		}
		defs = append(defs, t.definition())
	}
	return defs
}

// Latest reports whether the tool is the latest registered version of its name.
func (c *Catalog) Latest(t *Tool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest[t.Name] == t
}

// Len returns the number of registered tool versions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// definition builds the listing view. Unconstrained output schemas render as
// the empty schema.
func (t *Tool) definition() Definition {
	out := t.OutputSchema
	if out == nil {
		out = &jsonschema.Schema{}
	}
	return Definition{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		OutputSchema: out,
		Version:      t.Version.String(),
	}
}

// NeedsCallContext reports whether the tool declares an injected call
// context parameter, making it unavailable on request-less call paths.
func (t *Tool) NeedsCallContext() bool {
	for _, p := range t.injected {
		if p.kind == InjectCallContext {
			return true
		}
	}
	return false
}

// RequiredPermissions returns a copy of the tool's permission requirement.
func (t *Tool) RequiredPermissions() []string {
	out := make([]string, len(t.Permissions))
	copy(out, t.Permissions)
	return out
}
