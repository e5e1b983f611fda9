package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/swarm/internal/store"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// CheckpointManager persists partial progress for running jobs and re-admits
// them after a park. Checkpointing is opportunistic: the executor parks at a
// stage boundary only when the checkpoint interval has elapsed, and records
// lighter in-place progress updates otherwise.
type CheckpointManager struct {
	store    store.JobStore
	throttle *DepthThrottle
	interval time.Duration
	logger   *DebugLogger
}

// NewCheckpointManager creates a checkpoint manager.
func NewCheckpointManager(s store.JobStore, t *DepthThrottle, interval time.Duration, logger *DebugLogger) *CheckpointManager {
	return &CheckpointManager{
		store:    s,
		throttle: t,
		interval: interval,
		logger:   logger,
	}
}

// ShouldPark reports whether a stage boundary warrants a full
// checkpoint-and-park, based on the time elapsed since the last persisted
// checkpoint.
func (m *CheckpointManager) ShouldPark(job *models.Job) bool {
	if m.interval <= 0 {
		return true
	}
	if job.Checkpoint == nil {
		if job.StartedAt == nil {
			return true
		}
		return time.Since(*job.StartedAt) >= m.interval
	}
	return time.Since(job.Checkpoint.SavedAt) >= m.interval
}

// Record persists progress onto the job record without releasing the slot or
// leaving the running state. Used at stage boundaries that do not park.
func (m *CheckpointManager) Record(job *models.Job, nextStage int, outputs []string) error {
	job.Checkpoint = &models.Checkpoint{
		StageIndex:   nextStage,
		StageOutputs: append([]string{}, outputs...),
		SavedAt:      time.Now(),
	}
	if err := m.store.UpdateJob(job); err != nil {
		return fmt.Errorf("record progress for job %s: %w", job.ID, err)
	}
	return nil
}

// Checkpoint persists progress, transitions the job to checkpointed, and
// releases its concurrency slot through the given token. The job becomes
// eligible for resumption.
func (m *CheckpointManager) Checkpoint(job *models.Job, slot *slotToken, nextStage int, outputs []string) error {
	job.Checkpoint = &models.Checkpoint{
		StageIndex:   nextStage,
		StageOutputs: append([]string{}, outputs...),
		SavedAt:      time.Now(),
	}
	job.Status = models.JobStatusCheckpointed

	if err := m.store.UpdateJob(job); err != nil {
		return fmt.Errorf("checkpoint job %s: %w", job.ID, err)
	}

	slot.release()
	m.logger.Log("[checkpoint] job %s parked at stage %d", job.ID, nextStage)
	return nil
}

// Resume re-admits a checkpointed job: it re-acquires a slot at the job's
// original depth and returns the job to running, handing the caller a fresh
// release token. The acquire is bounded by ctx; a deadline elapsing while
// waiting for a slot surfaces as ErrAdmissionTimeout. The caller continues
// from job.Checkpoint; completed stages are never re-run.
func (m *CheckpointManager) Resume(ctx context.Context, job *models.Job) (*slotToken, error) {
	if err := m.throttle.Acquire(ctx, job.Depth); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("resume job %s: %w", job.ID, ErrAdmissionTimeout)
		}
		return nil, err
	}
	slot := m.throttle.token(job.Depth)

	job.Status = models.JobStatusRunning
	if err := m.store.UpdateJob(job); err != nil {
		slot.release()
		return nil, fmt.Errorf("resume job %s: %w", job.ID, err)
	}

	m.logger.Log("[checkpoint] job %s resumed at stage %d", job.ID, job.Checkpoint.StageIndex)
	return slot, nil
}
