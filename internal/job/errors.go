package job

import "errors"

// Sentinel errors for the job package.
var (
	// ErrInvalidTransition is returned when a requested state-machine
	// event is not valid from a JCB's current state. Job state is left
	// unchanged.
	ErrInvalidTransition = errors.New("job: invalid state transition")

	// ErrNoSuchJob is returned when a job id is not present in the
	// Manager's registry.
	ErrNoSuchJob = errors.New("job: no such job")

	// ErrNoControllingTerminal is returned by terminal-control operations
	// when the Manager has no controlling terminal (non-interactive
	// mode). Callers should treat this as an expected no-op, not a
	// failure worth surfacing to the user.
	ErrNoControllingTerminal = errors.New("job: no controlling terminal")

	// ErrSpawnFailed wraps the underlying error from a failed fork/exec.
	ErrSpawnFailed = errors.New("job: spawn failed")

	// ErrManagerShutdown is returned when an operation is attempted after
	// the Manager has begun shutting down.
	ErrManagerShutdown = errors.New("job: manager is shutting down")
)
