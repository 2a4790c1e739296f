package scheduler

import "errors"

var (
	ErrTickFailed       = errors.New("scheduler tick failed")
	ErrWorkerStarted    = errors.New("worker already started")
	ErrWorkerNotStarted = errors.New("worker not started")
)
