// ABOUTME: Package documentation for the authentication adapter.
// ABOUTME: Explains the pluggable authenticator contract and normalization rules.

// Package auth wraps a single externally supplied authenticator function and
// normalizes its heterogeneous signature and return shape into a Principal.
//
// # Authenticator contract
//
// An authenticator is any function whose parameters are drawn from a fixed
// allow-list of injectable request values:
//
//	*http.Request       the raw inbound request
//	auth.Authorization  the Authorization header value, as text
//	auth.RawBody        the raw request body
//	auth.Path           the request path
//	auth.Method         the HTTP method
//	auth.Headers        the request headers
//	auth.Query          the query parameters
//	auth.PathParams     the path parameters
//	auth.Scopes         scopes granted so far
//
// An optional leading context.Context parameter is also accepted. A function
// declaring any other parameter type is rejected when the adapter is built,
// before any request is served.
//
// The function returns either a single value or a (value, error) pair. The
// value is normalized by an ordered priority matcher, see NormalizeCredentials.
// Returning an error that wraps ErrUnauthenticated denies the request with a
// 401; any other error is a server-side failure and is never treated as a
// denial.
//
// # Example
//
//	verifier := auth.NewJWTVerifier(secret)
//	adapter, err := auth.NewAdapter(verifier.Handler(), logger)
//
// Or a hand-rolled authenticator:
//
//	adapter, err := auth.NewAdapter(func(authorization auth.Authorization) (auth.Credentials, error) {
//		user, scopes, err := lookup(string(authorization))
//		if err != nil {
//			return auth.Credentials{}, fmt.Errorf("%w: unknown token", auth.ErrUnauthenticated)
//		}
//		return auth.Credentials{Permissions: scopes, Principal: user}, nil
//	}, logger)
package auth
