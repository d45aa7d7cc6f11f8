package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup by id matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRecord marks a single record the store refused. Callers skip it and continue.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrQueueEmpty is returned by QueueRepository.Pop when nothing is waiting.
	ErrQueueEmpty = errors.New("queue is empty")
)

// ErrUnexpectedStatus wraps non-2xx responses from an upstream source.
var ErrUnexpectedStatus = errors.New("unexpected status code")
