package httpjson

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed provider call.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindMalformed
	KindRateLimited
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ProviderError is the typed failure returned by every provider call.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Status  int // HTTP status when the server answered, 0 otherwise
	Cause   error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Cause != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.String()
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// RateLimited reports a provider throttling notice.
func RateLimited(msg string) *ProviderError {
	return &ProviderError{Kind: KindRateLimited, Message: msg}
}

// Malformed reports an unexpected status or an undecodable body.
func Malformed(msg string) *ProviderError {
	return &ProviderError{Kind: KindMalformed, Message: msg}
}

// NotFound reports a well-formed but empty answer.
func NotFound(msg string) *ProviderError {
	return &ProviderError{Kind: KindNotFound, Message: msg}
}

// Network reports a transport failure.
func Network(cause error) *ProviderError {
	return &ProviderError{Kind: KindNetwork, Cause: cause}
}

// IsKind reports whether err carries a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
