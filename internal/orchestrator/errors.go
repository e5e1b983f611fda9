package orchestrator

import "errors"

// Error taxonomy for the engine. Admission and validation errors surface
// synchronously from facade calls; execution-time errors are recorded on the
// job record and discovered through Status, Result, or Collect.
var (
	// ErrRecursionLimit means a spawn was rejected because the computed depth
	// exceeds the configured maximum. Never retried automatically, and no job
	// record is created.
	ErrRecursionLimit = errors.New("recursion depth limit exceeded")

	// ErrAdmissionTimeout means a blocking acquire gave up waiting for a
	// concurrency slot. Retryable by the caller.
	ErrAdmissionTimeout = errors.New("timed out waiting for concurrency slot")

	// ErrExecutionFailed means the opaque agent executor raised an error.
	// Partial results and checkpoints are preserved; the engine does not retry.
	ErrExecutionFailed = errors.New("agent execution failed")

	// ErrJobTimedOut means the job's deadline elapsed before completion.
	ErrJobTimedOut = errors.New("job deadline exceeded")

	// ErrJobNotFound means the queried job id does not exist in the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotTerminal means a terminal result was requested from a job that is
	// still pending, running, or checkpointed.
	ErrNotTerminal = errors.New("job has not reached a terminal state")

	// ErrInvalidMode means an explicit mode override does not match the known
	// enumeration.
	ErrInvalidMode = errors.New("unknown execution mode")

	// ErrStopped means the facade was called after Stop.
	ErrStopped = errors.New("orchestrator stopped")
)

// errKillRequested is the cancellation cause recorded when a caller kills a
// job. It distinguishes kill from deadline expiry and engine shutdown.
var errKillRequested = errors.New("kill requested")
