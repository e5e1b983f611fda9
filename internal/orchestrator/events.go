package orchestrator

import (
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventJobCreated indicates a job record was created in pending state.
	EventJobCreated EventType = "job_created"
	// EventJobAdmitted indicates a job acquired a slot and began running.
	EventJobAdmitted EventType = "job_admitted"
	// EventStageCompleted indicates one pipeline stage finished.
	EventStageCompleted EventType = "stage_completed"
	// EventJobCheckpointed indicates progress was persisted and the slot released.
	EventJobCheckpointed EventType = "job_checkpointed"
	// EventJobResumed indicates a checkpointed job re-acquired its slot.
	EventJobResumed EventType = "job_resumed"
	// EventJobCompleted indicates a job finished normally.
	EventJobCompleted EventType = "job_completed"
	// EventJobFailed indicates the executor raised an unrecoverable error.
	EventJobFailed EventType = "job_failed"
	// EventJobTimedOut indicates a job's deadline elapsed.
	EventJobTimedOut EventType = "job_timed_out"
	// EventJobKilled indicates a job was explicitly cancelled.
	EventJobKilled EventType = "job_killed"
)

// Event represents an event emitted by the orchestrator. Events feed the
// dashboard and debug logs; dropping one never blocks the engine.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// JobID is the ID of the related job.
	JobID string
	// ParentID is the ID of the parent job, if any.
	ParentID string
	// Depth is the job's recursion depth.
	Depth int
	// Stage is the pipeline stage for stage events.
	Stage models.Stage
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
