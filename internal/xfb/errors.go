package xfb

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates a missing or unparseable base URL or
// credential. Nothing was sent to the remote.
var ErrConfiguration = errors.New("client configuration invalid")

// TransportError wraps a connection-level failure (DNS, TLS, refused
// connection). The request may or may not have reached the remote.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport failure: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError indicates a response with a status outside 200-299.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string { return fmt.Sprintf("http status %d", e.Code) }

// DecodeError indicates a response body that could not be decoded into the
// expected envelope shape.
type DecodeError struct {
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("decode envelope: %s", e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is a well-formed envelope carrying a non-zero statusCode. The
// message is the remote's human-readable text and may be localized.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote statusCode %d: %s", e.Code, e.Message)
}

// IsRemoteFailure reports whether err came back from the remote as a
// declared application error, as opposed to a transport or protocol fault.
func IsRemoteFailure(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
