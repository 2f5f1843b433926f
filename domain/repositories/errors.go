package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a conversation, record or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrConversationInUse is returned when a conversation id is already held by
	// another open connection or belongs to a different user
	ErrConversationInUse = errors.New("conversation unavailable")
	// ErrInvalidResponse is returned when an upstream service replies with a
	// body that cannot be decoded
	ErrInvalidResponse = errors.New("invalid upstream response")
)

// UpstreamError wraps a failure of the transcription or translation service
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s service returned status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s service: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err originated in an upstream service
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
