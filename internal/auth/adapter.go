// ABOUTME: Adapter wrapping one pluggable authenticator function per server.
// ABOUTME: Introspects the declared parameters at setup and extracts them per request.

package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Injectable request values. An authenticator declares which of these it
// needs by parameter type; only the declared values are extracted from the
// inbound request.
type (
	// Authorization is the Authorization header value, decoded as text.
	Authorization string
	// RawBody is the raw request body. The body remains readable downstream.
	RawBody []byte
	// Path is the caller-visible request path.
	Path string
	// Method is the HTTP method.
	Method string
	// Headers are the raw request headers.
	Headers http.Header
	// Query holds the parsed query parameters.
	Query url.Values
	// PathParams holds URL path parameters. Empty unless the mounting route
	// declares wildcards.
	PathParams map[string]string
	// Scopes are the scopes granted so far by earlier middleware.
	Scopes []string
)

// Get returns the first value for the named query parameter.
func (q Query) Get(key string) string {
	return url.Values(q).Get(key)
}

// extractor pulls one declared parameter value out of the inbound request.
type extractor func(r *http.Request) (reflect.Value, error)

var (
	ctxType   = reflect.TypeFor[context.Context]()
	errType   = reflect.TypeFor[error]()
	reqType   = reflect.TypeFor[*http.Request]()
	bodyLimit = int64(1 << 20)
)

// extractors is the closed allow-list of injectable parameter types.
var extractors = map[reflect.Type]extractor{
	reqType: func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(r), nil
	},
	reflect.TypeFor[Authorization](): func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(Authorization(r.Header.Get("Authorization"))), nil
	},
	reflect.TypeFor[RawBody](): func(r *http.Request) (reflect.Value, error) {
		body, err := io.ReadAll(io.LimitReader(r.Body, bodyLimit))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("reading request body: %w", err)
		}
		// Restore the body so downstream handlers can read it too.
		r.Body = io.NopCloser(bytes.NewReader(body))
		return reflect.ValueOf(RawBody(body)), nil
	},
	reflect.TypeFor[Path](): func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(Path(r.URL.Path)), nil
	},
	reflect.TypeFor[Method](): func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(Method(r.Method)), nil
	},
	reflect.TypeFor[Headers](): func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(Headers(r.Header)), nil
	},
	reflect.TypeFor[Query](): func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(Query(r.URL.Query())), nil
	},
	reflect.TypeFor[PathParams](): func(r *http.Request) (reflect.Value, error) {
		return reflect.ValueOf(PathParams{}), nil
	},
	reflect.TypeFor[Scopes](): func(r *http.Request) (reflect.Value, error) {
		if p := FromContext(r.Context()); p != nil {
			return reflect.ValueOf(Scopes(p.Permissions)), nil
		}
		return reflect.ValueOf(Scopes(nil)), nil
	},
}

// supportedParameterNames lists the allow-list types for error messages.
func supportedParameterNames() string {
	names := make([]string, 0, len(extractors))
	for t := range extractors {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Adapter wraps a single authenticator function. The function's declared
// parameters are introspected once at construction; requests execute a fixed
// extraction plan with no further reflection over the signature.
type Adapter struct {
	fn       reflect.Value
	plan     []extractor
	takesCtx bool
	returns  int
	logger   *slog.Logger
}

// NewAdapter builds an Adapter around the given authenticator function.
// Configuration errors (non-function, unsupported parameter types, bad return
// shape) are reported here, before any request is served.
func NewAdapter(handler any, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fn := reflect.ValueOf(handler)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("authenticator must be a function, got %T", handler)
	}
	t := fn.Type()
	if t.IsVariadic() {
		return nil, errors.New("authenticator must not be variadic")
	}

	start := 0
	takesCtx := t.NumIn() > 0 && t.In(0) == ctxType
	if takesCtx {
		start = 1
	}

	plan := make([]extractor, 0, t.NumIn()-start)
	for i := start; i < t.NumIn(); i++ {
		ext, ok := extractors[t.In(i)]
		if !ok {
			return nil, fmt.Errorf("%w: %s (supported: %s)",
				ErrUnsupportedParameter, t.In(i), supportedParameterNames())
		}
		plan = append(plan, ext)
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return nil, errors.New("authenticator must return an identity value, not only an error")
		}
	case 2:
		if t.Out(1) != errType {
			return nil, fmt.Errorf("authenticator's second return value must be error, got %s", t.Out(1))
		}
	default:
		return nil, fmt.Errorf("authenticator must return a value or (value, error), got %d results", t.NumOut())
	}

	return &Adapter{
		fn:       fn,
		plan:     plan,
		takesCtx: takesCtx,
		returns:  t.NumOut(),
		logger:   logger,
	}, nil
}

// Authenticate runs the authenticator against the inbound request and
// normalizes its result into a Principal. A returned error wrapping
// ErrUnauthenticated is a denial; any other error is a server-side failure.
func (a *Adapter) Authenticate(ctx context.Context, r *http.Request) (*Principal, error) {
	args := make([]reflect.Value, 0, len(a.plan)+1)
	if a.takesCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	for _, ext := range a.plan {
		v, err := ext(r)
		if err != nil {
			return nil, fmt.Errorf("extracting authenticator argument: %w", err)
		}
		args = append(args, v)
	}

	out, err := a.invoke(ctx, args)
	if err != nil {
		return nil, err
	}

	p, err := NormalizeCredentials(out)
	if err != nil {
		return nil, fmt.Errorf("normalizing authenticator result: %w", err)
	}
	return p, nil
}

// invoke calls the authenticator. Handlers that accept a context are called
// directly and are expected to honor cancellation themselves; handlers
// without one run on their own goroutine so a blocking call cannot stall the
// request loop past its deadline.
func (a *Adapter) invoke(ctx context.Context, args []reflect.Value) (any, error) {
	if a.takesCtx {
		return a.splitResults(a.fn.Call(args))
	}

	type result struct {
		value any
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := a.splitResults(a.fn.Call(args))
		ch <- result{value: v, err: err}
	}()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// splitResults separates the authenticator's return values into (value, error).
func (a *Adapter) splitResults(out []reflect.Value) (any, error) {
	if a.returns == 2 && !out[1].IsNil() {
		err := out[1].Interface().(error)
		if errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("authenticator failed: %w", err)
	}
	return out[0].Interface(), nil
}
