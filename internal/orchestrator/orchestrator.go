package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/swarm/internal/agent"
	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/store"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// RequiredConfig contains the dependencies every orchestrator needs.
type RequiredConfig struct {
	// Store is the durable job record store.
	Store store.Store
	// Executor is the opaque agent executor that performs stage work.
	Executor agent.Executor
	// Config holds admission and timing settings.
	Config config.OrchestratorConfig
}

// Orchestrator is the externally callable surface of the engine. It composes
// the recursion guard, depth throttle, mode selector, spawner, checkpoint
// manager, result collector, and health monitor. All facade operations are
// safe for concurrent use.
type Orchestrator struct {
	cfg      config.OrchestratorConfig
	store    store.Store
	executor agent.Executor

	guard       *RecursionGuard
	throttle    *DepthThrottle
	selMu       sync.RWMutex
	selector    *ModeSelector
	checkpoints *CheckpointManager
	monitor     *HealthMonitor
	registry    *runRegistry
	logger      *DebugLogger

	events  chan Event
	dropped atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates an orchestrator from the required dependencies and functional
// options.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if req.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if err := req.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	throttle, err := NewDepthThrottle(req.Config.DepthBudgets)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		cfg:      req.Config,
		store:    req.Store,
		executor: req.Executor,
		guard:    NewRecursionGuard(req.Config.MaxDepth),
		throttle: throttle,
		selector: NewModeSelector(),
		registry: newRunRegistry(),
		logger:   NopLogger(),
		events:   make(chan Event, 256),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.checkpoints = NewCheckpointManager(o.store, o.throttle, o.cfg.CheckpointInterval, o.logger)
	o.monitor = NewHealthMonitor(o.store, o.registry, o.cfg.MonitorInterval, o.logger, o.emit)

	return o, nil
}

// Start launches the background health monitor.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.monitor.Run(o.ctx)
	}()
}

// Stop signals all running jobs and background workers and waits for them.
// Jobs interrupted by shutdown keep their last checkpoint and remain
// recoverable on the next start. Stop is idempotent; facade calls after it
// return ErrStopped.
func (o *Orchestrator) Stop() error {
	o.stopOnce.Do(func() {
		o.cancel()
		o.wg.Wait()
		close(o.events)
	})
	return nil
}

// Events returns the channel of engine events. Events are dropped, never
// blocked on, when the consumer falls behind.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// ReplaceModeSelector swaps the keyword table at runtime. Used by the modes
// file watcher; in-flight jobs keep their already-selected mode.
func (o *Orchestrator) ReplaceModeSelector(selector *ModeSelector) {
	if selector == nil {
		return
	}
	o.selMu.Lock()
	o.selector = selector
	o.selMu.Unlock()
}

// DroppedEventCount returns the number of events dropped so far.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.dropped.Load()
}

// SpawnRequest describes a job to create.
type SpawnRequest struct {
	// Task is the free-text work description.
	Task string
	// Mode optionally forces an execution mode; empty selects by keyword.
	Mode models.Mode
	// Timeout optionally overrides the adaptive deadline.
	Timeout time.Duration
	// OutputRef optionally names a file under the output directory for the
	// result payload.
	OutputRef string
	// Tags are labels for later filtering.
	Tags []string
}

// Spawn creates and admits a root job, fire-and-forget: the returned id is
// available immediately and execution proceeds asynchronously. Only
// validation errors surface here; execution errors land on the job record.
func (o *Orchestrator) Spawn(req SpawnRequest) (string, error) {
	return o.spawnAt("", 0, req)
}

// SpawnParallel spawns one root job per task. Jobs created before a failing
// task are kept; their ids are returned alongside the error.
func (o *Orchestrator) SpawnParallel(tasks []string) ([]string, error) {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		id, err := o.Spawn(SpawnRequest{Task: task})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// spawnAt creates a job at the given depth under the given parent. Children
// spawned recursively by executors land here with depth = parent.depth + 1.
func (o *Orchestrator) spawnAt(parentID string, depth int, req SpawnRequest) (string, error) {
	if o.ctx.Err() != nil {
		return "", ErrStopped
	}
	if err := o.guard.Check(depth); err != nil {
		return "", err
	}

	o.selMu.RLock()
	selector := o.selector
	o.selMu.RUnlock()
	mode, err := selector.Select(req.Task, req.Mode)
	if err != nil {
		return "", err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = EffectiveTimeout(o.cfg.BaseTimeout, depth, EstimateComplexity(req.Task))
	}

	job := &models.Job{
		ID:        uuid.New().String()[:8],
		ParentID:  parentID,
		Depth:     depth,
		Mode:      mode,
		Task:      req.Task,
		Tags:      req.Tags,
		OutputRef: req.OutputRef,
		Status:    models.JobStatusPending,
		Timeout:   timeout,
		CreatedAt: time.Now(),
	}

	if err := o.store.CreateJob(job); err != nil {
		return "", fmt.Errorf("create job record: %w", err)
	}
	if parentID != "" {
		if err := o.store.AppendChild(parentID, job.ID); err != nil {
			o.logger.Log("[spawn] record child %s on parent %s: %v", job.ID, parentID, err)
		}
	}

	o.emit(Event{
		Type:      EventJobCreated,
		JobID:     job.ID,
		ParentID:  parentID,
		Depth:     depth,
		Message:   fmt.Sprintf("created %s job: %s", mode, req.Task),
		Timestamp: time.Now(),
	})

	o.wg.Add(1)
	go o.runJob(job.ID)

	return job.ID, nil
}

// RunSync spawns a job and blocks until it reaches a terminal state or ctx
// is done. It is a composition of Spawn and polling; the job keeps running
// if ctx expires first. Non-success outcomes return the result alongside a
// taxonomy error: ErrJobTimedOut for deadline expiry, ErrExecutionFailed for
// executor failures.
func (o *Orchestrator) RunSync(ctx context.Context, req SpawnRequest) (models.JobResult, error) {
	id, err := o.Spawn(req)
	if err != nil {
		return models.JobResult{}, err
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.JobResult{}, ctx.Err()
		case <-ticker.C:
			job, err := o.store.GetJob(id)
			if err != nil {
				return models.JobResult{}, err
			}
			if job == nil {
				return models.JobResult{}, fmt.Errorf("job %s: %w", id, ErrJobNotFound)
			}
			if job.Status.Terminal() {
				return jobResult(job), terminalError(job)
			}
		}
	}
}

// terminalError maps a terminal outcome onto the error taxonomy; nil for a
// completed job.
func terminalError(job *models.Job) error {
	switch job.Status {
	case models.JobStatusCompleted:
		return nil
	case models.JobStatusTimedOut:
		return fmt.Errorf("job %s: %w", job.ID, ErrJobTimedOut)
	case models.JobStatusKilled:
		return fmt.Errorf("job %s was killed", job.ID)
	default:
		return fmt.Errorf("job %s: %w: %s", job.ID, ErrExecutionFailed, job.Reason)
	}
}

// StatusInfo is the compact status view returned by Status.
type StatusInfo struct {
	JobID             string            `json:"job_id"`
	Status            models.JobStatus  `json:"status"`
	Depth             int               `json:"depth"`
	Mode              models.Mode       `json:"mode"`
	Elapsed           time.Duration     `json:"elapsed"`
	CheckpointPresent bool              `json:"checkpoint_present"`
	Reason            string            `json:"reason,omitempty"`
}

// Status returns the current status of a job.
func (o *Orchestrator) Status(jobID string) (StatusInfo, error) {
	job, err := o.store.GetJob(jobID)
	if err != nil {
		return StatusInfo{}, err
	}
	if job == nil {
		return StatusInfo{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}

	return StatusInfo{
		JobID:             job.ID,
		Status:            job.Status,
		Depth:             job.Depth,
		Mode:              job.Mode,
		Elapsed:           job.Elapsed(),
		CheckpointPresent: job.Checkpoint != nil,
		Reason:            job.Reason,
	}, nil
}

// Result returns the terminal outcome of a job, or ErrNotTerminal while the
// job is still pending, running, or checkpointed.
func (o *Orchestrator) Result(jobID string) (models.JobResult, error) {
	job, err := o.store.GetJob(jobID)
	if err != nil {
		return models.JobResult{}, err
	}
	if job == nil {
		return models.JobResult{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if !job.Status.Terminal() {
		return models.JobResult{}, fmt.Errorf("job %s is %s: %w", jobID, job.Status, ErrNotTerminal)
	}
	return jobResult(job), nil
}

// List returns summaries of jobs matching the filter.
func (o *Orchestrator) List(filter models.JobFilter) ([]models.JobSummary, error) {
	jobs, err := o.store.ListJobs(filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.JobSummary, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		summaries = append(summaries, models.JobSummary{
			ID:          j.ID,
			ParentID:    j.ParentID,
			Depth:       j.Depth,
			Mode:        j.Mode,
			Task:        j.Task,
			Status:      j.Status,
			Elapsed:     j.Elapsed(),
			HasChildren: len(j.Children) > 0,
		})
	}
	return summaries, nil
}

// Kill cancels a job and cascades to all of its non-terminal descendants.
// Killing an already-terminal job is a no-op, not an error. Descendants that
// cannot be stopped promptly are logged and do not block the call.
func (o *Orchestrator) Kill(jobID string) error {
	if o.ctx.Err() != nil {
		return ErrStopped
	}
	job, err := o.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}

	o.killTree(job)
	return nil
}

// killTree kills one job and recurses into its children.
func (o *Orchestrator) killTree(job *models.Job) {
	if !job.Status.Terminal() {
		if !o.registry.cancel(job.ID, errKillRequested) {
			// No live goroutine owns this record (pending from a previous
			// process, or parked); mark it killed directly.
			o.finish(job, models.JobStatusKilled, job.Result, "killed by caller")
		}
	}

	for _, childID := range job.Children {
		child, err := o.store.GetJob(childID)
		if err != nil || child == nil {
			o.logger.Log("[kill] load child %s of %s: %v", childID, job.ID, err)
			continue
		}
		o.killTree(child)
	}
}

// Resume re-launches a checkpointed job that has no live goroutine, for
// example after a process restart. The job continues from its last
// checkpoint; completed stages are not re-run.
func (o *Orchestrator) Resume(jobID string) error {
	if o.ctx.Err() != nil {
		return ErrStopped
	}
	job, err := o.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if job.Status != models.JobStatusCheckpointed {
		return fmt.Errorf("job %s is %s, only checkpointed jobs resume", jobID, job.Status)
	}
	if o.registry.owns(jobID) {
		return fmt.Errorf("job %s is already owned by a running worker", jobID)
	}

	o.wg.Add(1)
	go o.runJob(jobID)
	return nil
}

// RecoverInterrupted re-launches every non-terminal job left over from a
// previous process: pending jobs restart from scratch, checkpointed and
// orphaned running jobs continue from their last checkpoint. Returns the
// ids of recovered jobs.
func (o *Orchestrator) RecoverInterrupted() ([]string, error) {
	if o.ctx.Err() != nil {
		return nil, ErrStopped
	}
	filter := models.MatchAll()
	filter.Statuses = []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusRunning,
		models.JobStatusCheckpointed,
	}
	jobs, err := o.store.ListJobs(filter)
	if err != nil {
		return nil, err
	}

	var recovered []string
	for i := range jobs {
		job := &jobs[i]
		if o.registry.owns(job.ID) {
			continue // owned by a live goroutine in this process
		}

		if job.Status == models.JobStatusRunning {
			// Orphaned by a crash; park it so the run loop re-admits it.
			job.Status = models.JobStatusCheckpointed
			job.StartedAt = nil
			if err := o.store.UpdateJob(job); err != nil {
				o.logger.Log("[recover] reset job %s: %v", job.ID, err)
				continue
			}
		}

		o.wg.Add(1)
		go o.runJob(job.ID)
		recovered = append(recovered, job.ID)
	}
	return recovered, nil
}

// jobResult builds the collector view of a terminal job.
func jobResult(job *models.Job) models.JobResult {
	return models.JobResult{
		JobID:    job.ID,
		ParentID: job.ParentID,
		Status:   job.Status,
		Result:   job.Result,
		Reason:   job.Reason,
		Partial:  job.Status != models.JobStatusCompleted && (job.Result != "" || job.Checkpoint != nil),
	}
}

// emit sends an event without blocking; full channels drop the event.
func (o *Orchestrator) emit(event Event) {
	select {
	case o.events <- event:
	default:
		o.dropped.Add(1)
	}
}
