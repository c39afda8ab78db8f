package scheduler

import "errors"

var (
	// ErrJobNotFound is returned when no job is registered under a name
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when a job name is registered twice
	ErrDuplicateJob = errors.New("job already registered")

	// ErrInvalidInterval is returned for non-positive job intervals
	ErrInvalidInterval = errors.New("job interval must be positive")

	// ErrSchedulerRunning is returned when jobs are added after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")
)
