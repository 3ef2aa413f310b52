package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeNotParticipant  = "not_participant"
	ErrCodeInvalidArgument = "invalid_argument"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeNotInRoom       = "not_in_room"
	ErrCodeAlreadyJoined   = "already_joined"
)

var (
	ErrNotInRoom     = errors.New("not in room")
	ErrAlreadyJoined = errors.New("already joined")
	ErrBadRequest    = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
