package service

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a Bangumi API failure
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindNetwork
	KindBadStatus
	KindNotFound
	KindMalformedPayload
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindBadStatus:
		return "bad_status"
	case KindNotFound:
		return "not_found"
	case KindMalformedPayload:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

// Error is returned by every BangumiService call that fails
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies any error.
// Raw transport errors are recognized too, so callers need not care
// whether the error went through the service layer.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// IsNotFound reports whether err is a 404 from a subject lookup
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportError wraps a failed round trip
func transportError(op string, err error) *Error {
	kind := KindNetwork
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Causes wrapped by KindMalformedPayload errors
var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotArray    = errors.New("payload is not an array")
	errNotObject   = errors.New("payload is not an object")
	errNoList      = errors.New("payload has no subject list")
)

// IsInvalidJSON reports whether a malformed payload failed to parse at all
func IsInvalidJSON(err error) bool {
	return errors.Is(err, errInvalidJSON)
}
