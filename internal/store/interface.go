package store

import (
	"io"
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// JobStore handles job-record persistence operations.
type JobStore interface {
	CreateJob(j *models.Job) error
	GetJob(id string) (*models.Job, error)
	UpdateJob(j *models.Job) error
	ListJobs(filter models.JobFilter) ([]models.Job, error)
	DeleteJob(id string) error
	AppendChild(parentID, childID string) error
	CountByDepthStatus(depth int, status models.JobStatus) (int, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Retention handles cleanup of historical records. Job records are never
// destroyed implicitly; only this explicit policy removes them.
type Retention interface {
	// PurgeTerminalJobs deletes terminal jobs completed before the cutoff.
	// Returns the number of jobs deleted.
	PurgeTerminalJobs(olderThan time.Duration) (int64, error)
}

// Store defines the interface for job persistence.
// The orchestrator works against any backend satisfying this contract; it
// never depends on the concrete SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	JobStore
	Retention
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store     = (*DB)(nil)
	_ Migrator  = (*DB)(nil)
	_ JobStore  = (*DB)(nil)
	_ Retention = (*DB)(nil)
)
