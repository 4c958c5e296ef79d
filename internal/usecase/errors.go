package usecase

import "errors"

// Sentinel errors returned by the services. Transports map them to status
// codes with errors.Is; services wrap them with context via fmt.Errorf and
// %w.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("conflicting concurrent operation")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrMergeIntegrity        = errors.New("merge would orphan references")
	ErrDependencyUnavailable = errors.New("upstream dependency unavailable")
)
