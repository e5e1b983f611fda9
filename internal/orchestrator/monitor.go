package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ShayCichocki/swarm/internal/store"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// HealthMonitor periodically sweeps active job records and expires jobs that
// ran past their deadline without making progress. It is the safety net
// behind the per-job deadline context: it catches records orphaned by a
// crashed process and executors that ignore cancellation.
type HealthMonitor struct {
	store    store.JobStore
	registry *runRegistry
	interval time.Duration
	logger   *DebugLogger
	emit     func(Event)

	mu           sync.Mutex
	lastProgress map[string]time.Time
}

func NewHealthMonitor(s store.JobStore, registry *runRegistry, interval time.Duration, logger *DebugLogger, emit func(Event)) *HealthMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthMonitor{
		store:        s,
		registry:     registry,
		interval:     interval,
		logger:       logger,
		emit:         emit,
		lastProgress: make(map[string]time.Time),
	}
}

// Run sweeps on a fixed interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Sweep examines every running or checkpointed job once. Exported so tests
// and the CLI can trigger a scan without waiting for the ticker.
func (m *HealthMonitor) Sweep(now time.Time) {
	filter := models.MatchAll()
	filter.Statuses = []models.JobStatus{
		models.JobStatusRunning,
		models.JobStatusCheckpointed,
	}
	jobs, err := m.store.ListJobs(filter)
	if err != nil {
		m.logger.Log("[monitor] list active jobs: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[string]bool, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		active[job.ID] = true

		deadline, ok := job.Deadline()
		if !ok || now.Before(deadline) {
			continue
		}

		// Past deadline. Require two sightings with no new checkpoint
		// before expiring, so an orphan mid-recovery or a goroutine about
		// to classify its own timeout gets one grace interval. Owned jobs
		// are nudged on the first sighting; a cooperative executor ends
		// the job itself before the second one.
		progress := progressMark(job)
		seen, sighted := m.lastProgress[job.ID]
		if !sighted || progress.After(seen) {
			m.lastProgress[job.ID] = progress
			m.registry.cancel(job.ID, context.DeadlineExceeded)
			continue
		}

		// Second sighting, no progress: the executor ignored the nudge or
		// the record is orphaned. Expire the record and reclaim the slot;
		// the goroutine's own late release is a no-op, its late finish is
		// refused by the terminal guard.
		m.expire(job, now)
		m.registry.releaseSlot(job.ID)
	}

	for id := range m.lastProgress {
		if !active[id] {
			delete(m.lastProgress, id)
		}
	}
}

// expire marks an orphaned, past-deadline job as timed out. The checkpoint
// is kept so the job can still be resumed manually.
func (m *HealthMonitor) expire(job *models.Job, now time.Time) {
	job.Status = models.JobStatusTimedOut
	job.CompletedAt = &now
	job.Reason = "deadline exceeded with no progress"

	if err := m.store.UpdateJob(job); err != nil {
		if !errors.Is(err, store.ErrJobTerminal) {
			m.logger.Log("[monitor] expire job %s: %v", job.ID, err)
		}
		return
	}
	delete(m.lastProgress, job.ID)

	m.logger.Log("[monitor] expired job %s after %s", job.ID, job.Timeout)
	if m.emit != nil {
		m.emit(Event{
			Type:      EventJobTimedOut,
			JobID:     job.ID,
			ParentID:  job.ParentID,
			Depth:     job.Depth,
			Message:   job.Reason,
			Timestamp: now,
		})
	}
}

// progressMark is the most recent evidence a job advanced.
func progressMark(job *models.Job) time.Time {
	if job.Checkpoint != nil {
		return job.Checkpoint.SavedAt
	}
	if job.StartedAt != nil {
		return *job.StartedAt
	}
	return job.CreatedAt
}
