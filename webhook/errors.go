package webhook

import "errors"

var (
	ErrNotFound     = errors.New("event not found")
	ErrLocked       = errors.New("event is being processed")
	ErrAlreadySent  = errors.New("event already sent")
	ErrNoRoute      = errors.New("no route accepts event type")
	ErrInvalidEvent = errors.New("invalid event")
)
