package weather

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a weather error.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindOutOfRange      Kind = "out_of_range"
	KindNotFound        Kind = "not_found"
	KindUnauthorized    Kind = "unauthorized"
	KindTimeout         Kind = "timeout"
	KindUpstream        Kind = "upstream_error"
	KindTransport       Kind = "transport_error"
)

// Sentinels matched with errors.Is against any *Error of the same kind.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfRange      = errors.New("out of range")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTimeout         = errors.New("timeout")
	ErrUpstream        = errors.New("upstream error")
	ErrTransport       = errors.New("transport error")
)

var kindSentinels = map[Kind]error{
	KindInvalidArgument: ErrInvalidArgument,
	KindOutOfRange:      ErrOutOfRange,
	KindNotFound:        ErrNotFound,
	KindUnauthorized:    ErrUnauthorized,
	KindTimeout:         ErrTimeout,
	KindUpstream:        ErrUpstream,
	KindTransport:       ErrTransport,
}

// Error is the typed failure returned by providers and parameter validation.
type Error struct {
	Kind       Kind
	Op         string // operation or field that failed
	StatusCode int    // upstream HTTP status, when known
	Message    string
	Err        error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if s, ok := kindSentinels[e.Kind]; ok {
		return s.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

func InvalidArgument(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

func OutOfRange(op, format string, args ...any) *Error {
	return &Error{Kind: KindOutOfRange, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, msg string) *Error {
	if msg == "" {
		msg = "location not found"
	}
	return &Error{Kind: KindNotFound, Op: op, StatusCode: 404, Message: msg}
}

func Unauthorized(op, msg string) *Error {
	if msg == "" {
		msg = "invalid api key"
	}
	return &Error{Kind: KindUnauthorized, Op: op, StatusCode: 401, Message: msg}
}

func Timeout(op string, after time.Duration, cause error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Op:      op,
		Message: fmt.Sprintf("%s: request timed out after %s", op, after),
		Err:     cause,
	}
}

func Upstream(op string, status int, msg string) *Error {
	m := fmt.Sprintf("%s: upstream returned status %d", op, status)
	if msg != "" {
		m += ": " + msg
	}
	return &Error{Kind: KindUpstream, Op: op, StatusCode: status, Message: m}
}

func Transport(op string, cause error) *Error {
	return &Error{
		Kind:    KindTransport,
		Op:      op,
		Message: fmt.Sprintf("%s: %v", op, cause),
		Err:     cause,
	}
}
