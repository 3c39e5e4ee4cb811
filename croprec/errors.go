package croprec

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTrackingID is returned by Session.Save before any prediction
	// has produced a document id.
	ErrMissingTrackingID = errors.New("document ID is missing")
	// ErrStaleResponse is returned when a newer request was issued while this
	// one was in flight; its response is discarded.
	ErrStaleResponse = errors.New("response superseded by a newer request")
)

// FailureKind classifies why a remote call failed.
type FailureKind int

const (
	// KindNetwork covers transport errors, timeouts and cancellation.
	KindNetwork FailureKind = iota + 1
	// KindServer is a response with a non-2xx status.
	KindServer
	// KindDecode is a 2xx response whose body could not be understood.
	KindDecode
)

func (k FailureKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError describes a failed call to the prediction service.
type RequestError struct {
	Op         string
	Kind       FailureKind
	StatusCode int
	// Message is the server supplied "message" field, when there was one.
	Message   string
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindServer:
		if e.Message != "" {
			return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, or 0 when err is not a
// RequestError.
func KindOf(err error) FailureKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return 0
}
