package client

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")

	ErrMissingField    = errors.New("missing required field")
	ErrFieldOutOfRange = errors.New("field out of range")
)

// ErrorKind tags a fetch failure with the stage that failed.
type ErrorKind int

const (
	// KindTransport covers requests that did not complete with a usable 2xx response.
	KindTransport ErrorKind = iota + 1
	// KindParse covers bodies that are not JSON or lack the fields a snapshot needs.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// FetchError is the error delivered to Observer.OnFailure.
type FetchError struct {
	Kind  ErrorKind
	Query string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch weather for %s: %s: %v", e.Query, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func transportError(q query, err error) error {
	return &FetchError{Kind: KindTransport, Query: q.label, Err: err}
}

func parseError(q query, err error) error {
	return &FetchError{Kind: KindParse, Query: q.label, Err: err}
}

// KindOf returns the ErrorKind of a fetch failure, or 0 if err is not a *FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsTransportError reports whether err is a fetch failure at the transport level.
func IsTransportError(err error) bool {
	return KindOf(err) == KindTransport
}

// IsParseError reports whether err is a fetch failure while decoding the response.
func IsParseError(err error) bool {
	return KindOf(err) == KindParse
}
