// ABOUTME: Sentinel errors for the authentication adapter.
// ABOUTME: Distinguishes denial, configuration errors, and normalization failures.

package auth

import "errors"

// ErrUnauthenticated is the explicit unauthorized marker. Authenticators
// return (or wrap) it to deny a request; the transport renders it as a 401.
// Any other authenticator error is a server-side failure, not a denial.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrAlreadyConfigured indicates a second authenticator was configured on a
// server that already has one.
var ErrAlreadyConfigured = errors.New("authenticator already configured")

// ErrUnsupportedParameter indicates the authenticator declares a parameter
// type outside the supported allow-list. Raised at setup time, never at
// request time.
var ErrUnsupportedParameter = errors.New("unsupported authenticator parameter")

// ErrInvalidIdentity indicates the authenticator's return value could not be
// normalized into a Principal.
var ErrInvalidIdentity = errors.New("invalid identity")
