package captions

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

// Error kinds surfaced by the client and the generation workflow.
const (
	KindConfiguration Kind = iota + 1 // missing credential or bad client setup
	KindValidation                    // malformed job request
	KindTransport                     // network failure or unexpected HTTP status
	KindAuth                          // credential rejected (401)
	KindRateLimited                   // throttled (429)
	KindBilling                       // insufficient balance (402)
	KindBadRequest                    // request rejected (400)
	KindProtocol                      // malformed or unexpected success response
	KindJobFailed                     // upstream reported FAILED
	KindTimeout                       // wait budget exceeded
	KindCanceled                      // caller canceled the context
)

// Sentinel errors, one per Kind. An *Error matches the sentinel of its Kind
// with errors.Is.
var (
	ErrConfiguration = errors.New("captions: configuration error")
	ErrValidation    = errors.New("captions: validation error")
	ErrTransport     = errors.New("captions: request failed")
	ErrAuth          = errors.New("captions: invalid credentials")
	ErrRateLimited   = errors.New("captions: rate limited")
	ErrBilling       = errors.New("captions: insufficient account balance")
	ErrBadRequest    = errors.New("captions: bad request")
	ErrProtocol      = errors.New("captions: protocol error")
	ErrJobFailed     = errors.New("captions: job failed")
	ErrTimeout       = errors.New("captions: timed out")
	ErrCanceled      = errors.New("captions: canceled")
)

var kindSentinels = map[Kind]error{
	KindConfiguration: ErrConfiguration,
	KindValidation:    ErrValidation,
	KindTransport:     ErrTransport,
	KindAuth:          ErrAuth,
	KindRateLimited:   ErrRateLimited,
	KindBilling:       ErrBilling,
	KindBadRequest:    ErrBadRequest,
	KindProtocol:      ErrProtocol,
	KindJobFailed:     ErrJobFailed,
	KindTimeout:       ErrTimeout,
	KindCanceled:      ErrCanceled,
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindBilling:
		return "billing"
	case KindBadRequest:
		return "bad_request"
	case KindProtocol:
		return "protocol"
	case KindJobFailed:
		return "job_failed"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type returned by this package and by the
// generation workflow built on it.
type Error struct {
	Kind        Kind
	Op          string // Operation that failed, e.g. "submit" or "poll"
	OperationID string // Job handle, when one is known
	StatusCode  int    // HTTP status, when the failure came from a response
	Detail      string // Upstream or validation detail
	Err         error  // Underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("captions: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.OperationID != "" {
		b.WriteString("operation ")
		b.WriteString(e.OperationID)
		b.WriteString(": ")
	}
	b.WriteString(e.message())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) message() string {
	var base string
	switch e.Kind {
	case KindTransport:
		base = "request failed"
		if e.StatusCode != 0 {
			base = fmt.Sprintf("request failed with status %d", e.StatusCode)
		}
	case KindAuth:
		base = "invalid credentials"
	case KindRateLimited:
		base = "rate limited, retry later"
	case KindBilling:
		base = "insufficient account balance"
	case KindBadRequest:
		base = "bad request"
	case KindJobFailed:
		base = "job failed"
	case KindCanceled:
		base = "canceled"
	default:
		if e.Detail != "" {
			return e.Detail
		}
		return e.Kind.String() + " error"
	}
	if e.Detail != "" {
		return base + ": " + e.Detail
	}
	return base
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
