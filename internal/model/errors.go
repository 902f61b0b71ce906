package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrStartFailed is returned when a long-running operation could not be started.
	ErrStartFailed = errors.New("operation start failed")
	// ErrConnectionExhausted is returned when a channel gave up reconnecting.
	ErrConnectionExhausted = errors.New("connection attempts exhausted")
	// ErrClosed is returned when using a closed component.
	ErrClosed = errors.New("closed")
	// ErrOperationFailed is returned when a long-running operation finished without success.
	ErrOperationFailed = errors.New("operation failed")
	// ErrTimeout is returned when an operation was not observed finishing in time.
	ErrTimeout = errors.New("timeout")
)
