package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrFixtureNotStarted guards operations that require an elapsed kickoff.
	ErrFixtureNotStarted = errors.New("fixture has not started")
	// ErrFixtureNotFinished guards processing of fixtures without a result.
	ErrFixtureNotFinished = errors.New("fixture is not finished")
	// ErrSchedulerHalted is returned once the cycle breaker has tripped.
	ErrSchedulerHalted = errors.New("scheduler halted after repeated cycle failures")
)
