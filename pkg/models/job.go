package models

import "time"

// JobStatus represents the current state of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is created and awaiting an admission slot.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job holds a concurrency slot and is executing.
	JobStatusRunning JobStatus = "running"
	// JobStatusCheckpointed indicates partial progress is persisted and the slot released.
	JobStatusCheckpointed JobStatus = "checkpointed"
	// JobStatusCompleted indicates the job finished normally.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the executor raised an unrecoverable error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusTimedOut indicates the deadline elapsed before completion.
	JobStatusTimedOut JobStatus = "timed_out"
	// JobStatusKilled indicates the caller explicitly cancelled the job.
	JobStatusKilled JobStatus = "killed"
)

// Valid returns true if the status is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCheckpointed,
		JobStatusCompleted, JobStatusFailed, JobStatusTimedOut, JobStatusKilled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusTimedOut, JobStatusKilled:
		return true
	default:
		return false
	}
}

// Job represents one schedulable unit of agent work, root or child.
type Job struct {
	// ID is the unique identifier, assigned at creation, immutable.
	ID string `json:"id"`
	// ParentID references the job that spawned this one; empty for root jobs.
	ParentID string `json:"parent_id,omitempty"`
	// Depth is 0 for root jobs and parent.Depth+1 for children.
	Depth int `json:"depth"`
	// Mode is the execution mode selected at creation, immutable thereafter.
	Mode Mode `json:"mode"`
	// Task is the free-text description of the work.
	Task string `json:"task"`
	// Tags are optional labels used for filtering and collection.
	Tags []string `json:"tags,omitempty"`
	// OutputRef is an optional reference under the output directory where the
	// result payload is written.
	OutputRef string `json:"output_ref,omitempty"`
	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`
	// Timeout is the effective deadline duration, caller-supplied or computed.
	Timeout time.Duration `json:"timeout"`
	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when the job first transitioned to running.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Result is the opaque payload, present in terminal states; may be partial.
	Result string `json:"result,omitempty"`
	// Reason is a human-readable explanation for terminal non-success states.
	Reason string `json:"reason,omitempty"`
	// Checkpoint is the serialized progress marker used to resume.
	Checkpoint *Checkpoint `json:"checkpoint,omitempty"`
	// Children holds the ids of jobs spawned by this job.
	Children []string `json:"children,omitempty"`
}

// Elapsed returns how long the job has been running, or total runtime for
// terminal jobs. Returns 0 if the job never started.
func (j *Job) Elapsed() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(*j.StartedAt)
	}
	return time.Since(*j.StartedAt)
}

// Deadline returns the absolute deadline for the job, valid once started.
func (j *Job) Deadline() (time.Time, bool) {
	if j.StartedAt == nil || j.Timeout <= 0 {
		return time.Time{}, false
	}
	return j.StartedAt.Add(j.Timeout), true
}

// Checkpoint is a persisted partial-progress marker enabling resumption.
type Checkpoint struct {
	// StageIndex is the index of the next stage to run. Stages below this
	// index are complete and must not be re-run.
	StageIndex int `json:"stage_index"`
	// StageOutputs holds the output of each completed stage, in pipeline order.
	StageOutputs []string `json:"stage_outputs,omitempty"`
	// SavedAt is when this checkpoint was persisted.
	SavedAt time.Time `json:"saved_at"`
}

// JobFilter selects jobs for listing and collection. Zero-valued fields match
// everything.
type JobFilter struct {
	// ParentID restricts to children of the given job.
	ParentID string
	// Statuses restricts to jobs in any of the given states.
	Statuses []JobStatus
	// Tag restricts to jobs carrying the given tag.
	Tag string
	// Depth restricts to jobs at the given depth; -1 matches all depths.
	Depth int
}

// MatchAll returns a filter that matches every job.
func MatchAll() JobFilter {
	return JobFilter{Depth: -1}
}

// Matches reports whether the job satisfies the filter.
func (f JobFilter) Matches(j *Job) bool {
	if f.ParentID != "" && j.ParentID != f.ParentID {
		return false
	}
	if f.Depth >= 0 && j.Depth != f.Depth {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range j.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if j.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// JobSummary is the compact view returned by list operations.
type JobSummary struct {
	ID          string        `json:"id"`
	ParentID    string        `json:"parent_id,omitempty"`
	Depth       int           `json:"depth"`
	Mode        Mode          `json:"mode"`
	Task        string        `json:"task"`
	Status      JobStatus     `json:"status"`
	Elapsed     time.Duration `json:"elapsed"`
	HasChildren bool          `json:"has_children"`
}

// JobResult is the terminal outcome of a single job as seen by collectors.
type JobResult struct {
	JobID    string    `json:"job_id"`
	ParentID string    `json:"parent_id,omitempty"`
	Status   JobStatus `json:"status"`
	Result   string    `json:"result,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Partial  bool      `json:"partial"`
}

// AggregateResult merges the terminal children of a parent job.
type AggregateResult struct {
	// ParentID is the job whose children were aggregated.
	ParentID string `json:"parent_id"`
	// Complete is true when every child has reached a terminal state.
	Complete bool `json:"complete"`
	// Succeeded lists children that completed normally.
	Succeeded []JobResult `json:"succeeded,omitempty"`
	// Failed lists children that reached a terminal non-success state.
	Failed []JobResult `json:"failed,omitempty"`
	// Outstanding lists ids of children that are not yet terminal.
	Outstanding []string `json:"outstanding,omitempty"`
}
