package providers

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrNotConfigured       = errors.New("provider not configured")
	ErrNotConnected        = errors.New("provider not connected")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

// UpstreamError describes a failed call to a provider API. Kind is one of
// ErrUpstreamRejected or ErrUpstreamUnreachable and is matched by errors.Is.
type UpstreamError struct {
	Provider Provider
	Kind     error
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %v (status %d): %s", e.Provider, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Provider, e.Kind, msg)
}

func (e *UpstreamError) Is(target error) bool { return target == e.Kind }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Rejected builds an error for a provider that answered but refused the request.
func Rejected(p Provider, status int, msg string) error {
	return &UpstreamError{Provider: p, Kind: ErrUpstreamRejected, Status: status, Message: msg}
}

// Unreachable builds an error for a provider that could not be reached or timed out.
func Unreachable(p Provider, err error) error {
	return &UpstreamError{Provider: p, Kind: ErrUpstreamUnreachable, Err: err}
}

// UserMessage is the text surfaced to the end user for a provider failure.
// Rejections carry the provider's message; everything else is generic.
func UserMessage(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		if errors.Is(ue, ErrUpstreamRejected) && ue.Message != "" {
			return ue.Message
		}
		if errors.Is(ue, ErrUpstreamUnreachable) {
			return ue.Provider.DisplayName() + " is unreachable"
		}
	}
	if errors.Is(err, ErrNotConfigured) {
		return "Provider not configured"
	}
	return "Failed to fetch analytics"
}
