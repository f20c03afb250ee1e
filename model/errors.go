package model

import "errors"

var (
	ErrSessionNotFound = errors.New("session does not exist")

	ErrNoSession     = errors.New("no funnel in progress")
	ErrStaleAction   = errors.New("action on superseded message")
	ErrOutOfStage    = errors.New("action does not match current stage")
	ErrUnknownChoice = errors.New("choice not registered for stage")
	ErrRenderFailure = errors.New("render failed")
	ErrConfiguration = errors.New("configuration error")
)

// IsRejection reports whether err is one of the silent per-event rejections.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrStaleAction) ||
		errors.Is(err, ErrOutOfStage) ||
		errors.Is(err, ErrUnknownChoice)
}
