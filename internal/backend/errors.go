package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured means the gateway was started without a backend URL or
	// canister id. It is a caller misuse and is never retried.
	ErrNotConfigured = errors.New("backend canister not available: set BACKEND_URL and the canister id")

	// ErrUnauthenticated matches backend rejections of the caller identity.
	ErrUnauthenticated = errors.New("caller rejected by backend")
)

// RemoteError is a non-2xx answer from the backend (a trap or an explicit reject).
type RemoteError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend %s failed with status %d: %s", e.Method, e.StatusCode, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrUnauthenticated &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}
