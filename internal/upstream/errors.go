package upstream

import (
	"errors"
	"fmt"
)

// TransportError means the request never produced an HTTP response
// (DNS, connection, timeout, or a broken body stream).
type TransportError struct {
	Service string
	URL     string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request to %s failed: %v", e.Service, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteStatusError means the service answered with a status other than 200.
// Body holds the raw response body.
type RemoteStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("status code %d when calling %s. Response: %s", e.StatusCode, e.Service, e.Body)
}

// MalformedResponseError means a 200 body could not be decoded or lacked a
// required field.
type MalformedResponseError struct {
	Service string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Service, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// UpstreamRejectedError is a failure reported by the service inside a 200 body.
type UpstreamRejectedError struct {
	Service string
	Message string
}

func (e *UpstreamRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

func IsRemoteStatus(err error) bool {
	var e *RemoteStatusError
	return errors.As(err, &e)
}

func IsMalformed(err error) bool {
	var e *MalformedResponseError
	return errors.As(err, &e)
}

func IsRejected(err error) bool {
	var e *UpstreamRejectedError
	return errors.As(err, &e)
}

// StatusCode returns the HTTP status carried by a RemoteStatusError anywhere
// in err's chain, or 0.
func StatusCode(err error) int {
	var e *RemoteStatusError
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// Outcome classifies err into the label used by the upstream metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTransport(err):
		return "transport"
	case IsRemoteStatus(err):
		return "status"
	case IsMalformed(err):
		return "malformed"
	case IsRejected(err):
		return "rejected"
	default:
		return "error"
	}
}
