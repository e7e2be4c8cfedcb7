package pollstream_errors

import "errors"

// Common errors
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("cannot interact with own poll")
	ErrNotFound      = errors.New("poll not found")
	ErrPollExpired   = errors.New("poll expired")
	ErrAlreadyVoted  = errors.New("already voted on this poll")
	ErrInvalidOption = errors.New("invalid option index")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrRateLimited   = errors.New("rate limited")
)
