package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShayCichocki/swarm/internal/agent"
	"github.com/ShayCichocki/swarm/internal/store"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// runJob is the detached execution loop for a single job. It owns the job
// record from admission to terminal state: acquire a depth slot, walk the
// mode's stage pipeline, checkpoint at stage boundaries, and classify the
// outcome. Exactly one goroutine runs per job id at a time.
func (o *Orchestrator) runJob(jobID string) {
	defer o.wg.Done()

	job, err := o.store.GetJob(jobID)
	if err != nil || job == nil {
		o.logger.Log("[run] load job %s: %v", jobID, err)
		return
	}
	if job.Status.Terminal() {
		return
	}

	ctx, cancel := context.WithCancelCause(o.ctx)
	defer cancel(nil)
	o.registry.add(job.ID, cancel)
	defer o.registry.remove(job.ID)

	// Admission: block until a slot at this depth frees up. Spawn already
	// returned, so waiting here never blocks the caller.
	if err := o.throttle.Acquire(ctx, job.Depth); err != nil {
		if errors.Is(context.Cause(ctx), errKillRequested) {
			o.finish(job, models.JobStatusKilled, "", "killed while awaiting admission")
		} else if errors.Is(err, ErrRecursionLimit) {
			o.finish(job, models.JobStatusFailed, "", err.Error())
		}
		// Engine shutdown: leave the record pending for recovery.
		return
	}
	slot := o.throttle.token(job.Depth)
	o.registry.setSlot(job.ID, slot)
	defer func() { slot.release() }()

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	if err := o.store.UpdateJob(job); err != nil {
		// Killed between spawn and admission, or the record vanished.
		o.logger.Log("[run] admit job %s: %v", job.ID, err)
		return
	}
	o.emit(Event{
		Type:      EventJobAdmitted,
		JobID:     job.ID,
		ParentID:  job.ParentID,
		Depth:     job.Depth,
		Message:   fmt.Sprintf("admitted at depth %d, timeout %s", job.Depth, job.Timeout),
		Timestamp: now,
	})

	runCtx, cancelRun := context.WithDeadline(ctx, now.Add(job.Timeout))
	defer cancelRun()

	stages := job.Mode.Stages()
	start := 0
	var outputs []string
	if job.Checkpoint != nil {
		start = job.Checkpoint.StageIndex
		outputs = append(outputs, job.Checkpoint.StageOutputs...)
	}

	spawnChild := func(_ context.Context, task string, mode models.Mode) (string, error) {
		return o.spawnAt(job.ID, job.Depth+1, SpawnRequest{Task: task, Mode: mode})
	}

	for i := start; i < len(stages); i++ {
		out, err := o.executor.ExecuteStage(runCtx, agent.StageRequest{
			JobID:        job.ID,
			Task:         job.Task,
			Mode:         job.Mode,
			Stage:        stages[i],
			StageIndex:   i,
			PriorOutputs: outputs,
			Spawn:        agent.SpawnChild(spawnChild),
		})
		if err != nil {
			o.finishInterrupted(job, runCtx, ctx, outputs, stages[i], err)
			return
		}
		outputs = append(outputs, out)
		o.emit(Event{
			Type:      EventStageCompleted,
			JobID:     job.ID,
			Depth:     job.Depth,
			Stage:     stages[i],
			Message:   fmt.Sprintf("stage %d/%d done", i+1, len(stages)),
			Timestamp: time.Now(),
		})

		if i+1 >= len(stages) || !o.cfg.EnableCheckpointing {
			continue
		}
		if o.checkpoints.ShouldPark(job) {
			// Park: persist progress, go CHECKPOINTED, and give the slot
			// back so a sibling can run. Resume re-competes for admission.
			if err := o.checkpoints.Checkpoint(job, slot, i+1, outputs); err != nil {
				o.logger.Log("[run] checkpoint job %s: %v", job.ID, err)
				continue
			}
			o.emit(Event{Type: EventJobCheckpointed, JobID: job.ID, Depth: job.Depth, Stage: stages[i], Timestamp: time.Now()})

			reacquired, err := o.checkpoints.Resume(runCtx, job)
			if err != nil {
				o.finishInterrupted(job, runCtx, ctx, outputs, stages[i], err)
				return
			}
			slot = reacquired
			o.registry.setSlot(job.ID, slot)
			o.emit(Event{Type: EventJobResumed, JobID: job.ID, Depth: job.Depth, Timestamp: time.Now()})
		} else if err := o.checkpoints.Record(job, i+1, outputs); err != nil {
			o.logger.Log("[run] record progress job %s: %v", job.ID, err)
		}
	}

	result := ""
	if len(outputs) > 0 {
		result = outputs[len(outputs)-1]
	}
	o.writeOutput(job, result)
	o.finish(job, models.JobStatusCompleted, result, "")
}

// finishInterrupted classifies a mid-run failure into killed, timed out,
// failed, or shutdown, and records the terminal state. Stage outputs
// completed so far are kept as a partial result; the checkpoint, if any,
// survives everything except completion.
func (o *Orchestrator) finishInterrupted(job *models.Job, runCtx, ctx context.Context, outputs []string, stage models.Stage, cause error) {
	partial := strings.Join(outputs, "\n\n")

	switch {
	case errors.Is(context.Cause(ctx), errKillRequested):
		o.finish(job, models.JobStatusKilled, partial, "killed by caller")
	case errors.Is(runCtx.Err(), context.DeadlineExceeded),
		errors.Is(context.Cause(ctx), context.DeadlineExceeded):
		o.finish(job, models.JobStatusTimedOut, partial, fmt.Sprintf("deadline exceeded after %s", job.Timeout))
	case o.ctx.Err() != nil:
		// Engine shutdown: not a job outcome. Leave the record non-terminal
		// so RecoverInterrupted picks it up next start.
		o.logger.Log("[run] job %s interrupted by shutdown at stage %s", job.ID, stage)
	default:
		o.finish(job, models.JobStatusFailed, partial, fmt.Sprintf("stage %s: %v", stage, cause))
	}
}

// finish records a terminal state. A lost race with another finisher (the
// health monitor, or a kill landing first) is benign and ignored.
func (o *Orchestrator) finish(job *models.Job, status models.JobStatus, result, reason string) {
	now := time.Now()
	job.Status = status
	job.Result = result
	job.Reason = reason
	job.CompletedAt = &now
	if status == models.JobStatusCompleted {
		job.Checkpoint = nil
	}

	if err := o.store.UpdateJob(job); err != nil {
		if !errors.Is(err, store.ErrJobTerminal) {
			o.logger.Log("[run] finish job %s as %s: %v", job.ID, status, err)
		}
		return
	}

	o.emit(Event{
		Type:      terminalEvent(status),
		JobID:     job.ID,
		ParentID:  job.ParentID,
		Depth:     job.Depth,
		Message:   reason,
		Timestamp: now,
	})
}

// writeOutput persists the result payload to the job's output file, when one
// was requested.
func (o *Orchestrator) writeOutput(job *models.Job, result string) {
	if job.OutputRef == "" || result == "" {
		return
	}
	path := filepath.Join(o.cfg.OutputDirectory, job.OutputRef)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		o.logger.Log("[run] create output dir for job %s: %v", job.ID, err)
		return
	}
	if err := os.WriteFile(path, []byte(result), 0o644); err != nil {
		o.logger.Log("[run] write output for job %s: %v", job.ID, err)
	}
}

func terminalEvent(status models.JobStatus) EventType {
	switch status {
	case models.JobStatusCompleted:
		return EventJobCompleted
	case models.JobStatusTimedOut:
		return EventJobTimedOut
	case models.JobStatusKilled:
		return EventJobKilled
	default:
		return EventJobFailed
	}
}
