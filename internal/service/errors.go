package service

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrEventNotFound    = errors.New("event not found")
	ErrEventUnavailable = errors.New("event is not purchasable")
	ErrIntentNotFound   = errors.New("purchase intent not found")
	ErrForbidden        = errors.New("session does not own this intent")
	ErrNotCancellable   = errors.New("intent can no longer be cancelled")
	ErrNotReady         = errors.New("intent has not reached a terminal state")
)
