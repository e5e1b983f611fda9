package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/swarm/internal/agent"
	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/store"
	"github.com/ShayCichocki/swarm/pkg/models"
)

func testConfig(dir string) config.OrchestratorConfig {
	return config.OrchestratorConfig{
		MaxDepth:            2,
		DepthBudgets:        []int{4, 2, 1},
		BaseTimeout:         5 * time.Second,
		CheckpointInterval:  time.Hour, // no parking unless a test asks for it
		MonitorInterval:     time.Hour, // monitor stays quiet unless a test sweeps
		OutputDirectory:     dir,
		EnableCheckpointing: true,
	}
}

// echoExecutor completes every stage immediately with a recognizable output.
var echoExecutor = agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
	return fmt.Sprintf("%s output", req.Stage), nil
})

func newTestEngine(t *testing.T, cfg config.OrchestratorConfig, exec agent.Executor) (*Orchestrator, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "swarm.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate store: %v", err)
	}

	o, err := New(RequiredConfig{Store: db, Executor: exec, Config: cfg})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	o.Start()
	t.Cleanup(func() {
		o.Stop()
		db.Close()
	})
	return o, db
}

// waitTerminal polls a job until it reaches a terminal state.
func waitTerminal(t *testing.T, o *Orchestrator, jobID string) StatusInfo {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, err := o.Status(jobID)
		if err != nil {
			t.Fatalf("status %s: %v", jobID, err)
		}
		if info.Status.Terminal() {
			return info
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return StatusInfo{}
}

func TestOrchestrator_Spawn_RunsToCompletion(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	id, err := o.Spawn(SpawnRequest{Task: "implement the export endpoint"})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if id == "" {
		t.Fatal("spawn returned empty id")
	}

	info := waitTerminal(t, o, id)
	if info.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed (%s)", info.Status, info.Reason)
	}
	if info.Mode != models.ModeCode {
		t.Errorf("mode = %s, want code by classification", info.Mode)
	}

	result, err := o.Result(id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	// code mode ends with test generation; its output is the job result.
	if result.Result != "test_generation output" {
		t.Errorf("result = %q", result.Result)
	}
	if result.Partial {
		t.Error("completed job should not be partial")
	}
}

func TestOrchestrator_Spawn_KeywordSelectsMode(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	debugID, err := o.Spawn(SpawnRequest{Task: "fix the bug in parser"})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	testingID, err := o.Spawn(SpawnRequest{Task: "write unit tests"})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if info := waitTerminal(t, o, debugID); info.Mode != models.ModeDebug {
		t.Errorf("mode = %s, want debug", info.Mode)
	}
	if info := waitTerminal(t, o, testingID); info.Mode != models.ModeTesting {
		t.Errorf("mode = %s, want testing", info.Mode)
	}
}

func TestOrchestrator_Spawn_InvalidModeOverride(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	_, err := o.Spawn(SpawnRequest{Task: "anything", Mode: models.Mode("warp")})
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("err = %v, want ErrInvalidMode", err)
	}
}

func TestOrchestrator_Result_NotTerminalYet(t *testing.T) {
	release := make(chan struct{})
	gated := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), gated)

	id, err := o.Spawn(SpawnRequest{Task: "slow work", Mode: models.ModeRapid})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	// The id is pollable immediately, but the result is not ready.
	if _, err := o.Result(id); !errors.Is(err, ErrNotTerminal) {
		t.Errorf("err = %v, want ErrNotTerminal", err)
	}

	close(release)
	waitTerminal(t, o, id)
	if _, err := o.Result(id); err != nil {
		t.Errorf("result after completion: %v", err)
	}
}

func TestOrchestrator_StatusAndResult_UnknownJob(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	if _, err := o.Status("ghost"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("status err = %v, want ErrJobNotFound", err)
	}
	if _, err := o.Result("ghost"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("result err = %v, want ErrJobNotFound", err)
	}
	if err := o.Kill("ghost"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("kill err = %v, want ErrJobNotFound", err)
	}
}

func TestOrchestrator_BudgetCeiling(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxDepth = 0
	cfg.DepthBudgets = []int{10}

	var running, peak atomic.Int64
	var mu sync.Mutex
	counting := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		n := running.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		defer running.Add(-1)

		time.Sleep(30 * time.Millisecond)
		return "ok", nil
	})
	o, _ := newTestEngine(t, cfg, counting)

	// Twelve jobs against a budget of ten: the first ten are admitted,
	// the last two wait for slots, and all twelve finish.
	var ids []string
	for i := 0; i < 12; i++ {
		id, err := o.Spawn(SpawnRequest{Task: fmt.Sprintf("job %d", i), Mode: models.ModeRapid})
		if err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		if info := waitTerminal(t, o, id); info.Status != models.JobStatusCompleted {
			t.Errorf("job %s = %s, want completed", id, info.Status)
		}
	}
	if p := peak.Load(); p > 10 {
		t.Errorf("peak concurrency = %d, exceeded budget 10", p)
	}
}

func TestOrchestrator_ChildSpawn_DepthAndLineage(t *testing.T) {
	childDone := make(chan string, 1)
	recursive := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		if strings.HasPrefix(req.Task, "parent") {
			childID, err := req.Spawn(ctx, "child task", models.ModeRapid)
			if err != nil {
				return "", err
			}
			childDone <- childID
			return "parent done", nil
		}
		return "child done", nil
	})

	o, _ := newTestEngine(t, testConfig(t.TempDir()), recursive)

	parentID, err := o.Spawn(SpawnRequest{Task: "parent work", Mode: models.ModeRapid})
	if err != nil {
		t.Fatalf("spawn parent: %v", err)
	}
	waitTerminal(t, o, parentID)

	var childID string
	select {
	case childID = <-childDone:
	case <-time.After(time.Second):
		t.Fatal("child was never spawned")
	}
	childInfo := waitTerminal(t, o, childID)
	if childInfo.Depth != 1 {
		t.Errorf("child depth = %d, want 1", childInfo.Depth)
	}

	agg, err := o.Aggregate(parentID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !agg.Complete {
		t.Error("aggregate should be complete once the child is terminal")
	}
	if len(agg.Succeeded) != 1 || agg.Succeeded[0].JobID != childID {
		t.Errorf("succeeded = %+v, want the child", agg.Succeeded)
	}
}

func TestOrchestrator_RecursionLimit(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxDepth = 0
	cfg.DepthBudgets = []int{2}

	overReach := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		_, err := req.Spawn(ctx, "too deep", models.ModeRapid)
		if !errors.Is(err, ErrRecursionLimit) {
			return "", fmt.Errorf("child spawn err = %v, want ErrRecursionLimit", err)
		}
		return "rejected as expected", nil
	})
	o, db := newTestEngine(t, cfg, overReach)

	id, err := o.Spawn(SpawnRequest{Task: "root", Mode: models.ModeRapid})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	info := waitTerminal(t, o, id)
	if info.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", info.Status, info.Reason)
	}

	// Rejected spawns create no record at all.
	jobs, err := db.ListJobs(models.MatchAll())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("store has %d jobs, want only the root", len(jobs))
	}
}

func TestOrchestrator_Failure_KeepsPartialResult(t *testing.T) {
	failing := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		if req.Stage == models.StageTestGen {
			return "", fmt.Errorf("compilation exploded")
		}
		return "implementation done", nil
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), failing)

	// code mode: implementation succeeds, test generation fails.
	id, err := o.Spawn(SpawnRequest{Task: "doomed work", Mode: models.ModeCode})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	info := waitTerminal(t, o, id)
	if info.Status != models.JobStatusFailed {
		t.Fatalf("status = %s, want failed", info.Status)
	}
	if !strings.Contains(info.Reason, "compilation exploded") {
		t.Errorf("reason = %q, want the executor's error", info.Reason)
	}

	result, err := o.Result(id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !result.Partial {
		t.Error("failed job with stage output should be partial")
	}
	if !strings.Contains(result.Result, "implementation done") {
		t.Errorf("partial result = %q, want first stage output", result.Result)
	}
}

func TestOrchestrator_Timeout(t *testing.T) {
	stuck := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), stuck)

	id, err := o.Spawn(SpawnRequest{Task: "hangs forever", Mode: models.ModeRapid, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	info := waitTerminal(t, o, id)
	if info.Status != models.JobStatusTimedOut {
		t.Fatalf("status = %s, want timed_out", info.Status)
	}
	if !strings.Contains(info.Reason, "deadline") {
		t.Errorf("reason = %q, want a deadline explanation", info.Reason)
	}
}

func TestOrchestrator_Monitor_ExpiresUnresponsiveExecutor(t *testing.T) {
	release := make(chan struct{})
	// Ignores cancellation entirely; only the test can unstick it.
	deaf := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		<-release
		return "late", nil
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), deaf)

	id, err := o.Spawn(SpawnRequest{Task: "never answers", Mode: models.ModeRapid, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		info, err := o.Status(id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if info.Status == models.JobStatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never started running, status = %s", info.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(80 * time.Millisecond) // let the job deadline pass

	// First sweep sights and nudges; the second expires the record and
	// reclaims the slot without the executor's cooperation.
	o.monitor.Sweep(time.Now())
	o.monitor.Sweep(time.Now())

	info, err := o.Status(id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Status != models.JobStatusTimedOut {
		t.Fatalf("status = %s, want timed_out", info.Status)
	}
	if n := o.throttle.InUse(0); n != 0 {
		t.Errorf("slots in use at depth 0 = %d, want 0 after expiry", n)
	}

	// The goroutine's eventual return must not resurrect the record or
	// give back a second slot.
	close(release)
	time.Sleep(50 * time.Millisecond)
	info, _ = o.Status(id)
	if info.Status != models.JobStatusTimedOut {
		t.Errorf("status after late return = %s, want timed_out unchanged", info.Status)
	}
	if n := o.throttle.InUse(0); n != 0 {
		t.Errorf("slots in use after late return = %d, want 0", n)
	}
}

func TestOrchestrator_RunSync_ExecutionFailure(t *testing.T) {
	failing := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		return "", fmt.Errorf("tool crashed")
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), failing)

	result, err := o.RunSync(context.Background(), SpawnRequest{Task: "doomed", Mode: models.ModeRapid})
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
	if result.Status != models.JobStatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestOrchestrator_RunSync_Timeout(t *testing.T) {
	stuck := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), stuck)

	result, err := o.RunSync(context.Background(), SpawnRequest{Task: "hangs", Mode: models.ModeRapid, Timeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrJobTimedOut) {
		t.Fatalf("err = %v, want ErrJobTimedOut", err)
	}
	if result.Status != models.JobStatusTimedOut {
		t.Errorf("status = %s, want timed_out", result.Status)
	}
}

func TestOrchestrator_FacadeRejectsCallsAfterStop(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	if err := o.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, err := o.Spawn(SpawnRequest{Task: "too late"}); !errors.Is(err, ErrStopped) {
		t.Errorf("spawn err = %v, want ErrStopped", err)
	}
	if err := o.Kill("any"); !errors.Is(err, ErrStopped) {
		t.Errorf("kill err = %v, want ErrStopped", err)
	}
	if err := o.Resume("any"); !errors.Is(err, ErrStopped) {
		t.Errorf("resume err = %v, want ErrStopped", err)
	}
	if _, err := o.RecoverInterrupted(); !errors.Is(err, ErrStopped) {
		t.Errorf("recover err = %v, want ErrStopped", err)
	}

	// A second stop is a no-op.
	if err := o.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestOrchestrator_Kill_CascadesToDescendants(t *testing.T) {
	childSpawned := make(chan string, 1)
	blocking := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		if strings.HasPrefix(req.Task, "parent") {
			childID, err := req.Spawn(ctx, "child hangs", models.ModeRapid)
			if err != nil {
				return "", err
			}
			childSpawned <- childID
		}
		<-ctx.Done()
		return "", ctx.Err()
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), blocking)

	parentID, err := o.Spawn(SpawnRequest{Task: "parent hangs", Mode: models.ModeRapid})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	var childID string
	select {
	case childID = <-childSpawned:
	case <-time.After(2 * time.Second):
		t.Fatal("child was never spawned")
	}

	if err := o.Kill(parentID); err != nil {
		t.Fatalf("kill: %v", err)
	}

	if info := waitTerminal(t, o, parentID); info.Status != models.JobStatusKilled {
		t.Errorf("parent = %s, want killed", info.Status)
	}
	if info := waitTerminal(t, o, childID); info.Status != models.JobStatusKilled {
		t.Errorf("child = %s, want killed", info.Status)
	}

	// Kill is idempotent; a second kill changes nothing and returns no error.
	if err := o.Kill(parentID); err != nil {
		t.Errorf("second kill: %v", err)
	}
}

func TestOrchestrator_Kill_CompletedJobUnchanged(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	id, err := o.Spawn(SpawnRequest{Task: "quick win", Mode: models.ModeRapid})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	waitTerminal(t, o, id)

	if err := o.Kill(id); err != nil {
		t.Fatalf("kill terminal job: %v", err)
	}
	info, _ := o.Status(id)
	if info.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, completed job must stay completed", info.Status)
	}
}

func TestOrchestrator_Checkpoint_ParkAndResume(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.CheckpointInterval = 0 // park at every stage boundary

	var stages []int
	var mu sync.Mutex
	tracking := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		mu.Lock()
		stages = append(stages, req.StageIndex)
		mu.Unlock()
		return fmt.Sprintf("stage %d", req.StageIndex), nil
	})
	o, db := newTestEngine(t, cfg, tracking)

	// quality mode has three stages, so the job parks twice.
	id, err := o.Spawn(SpawnRequest{Task: "work", Mode: models.ModeQuality})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	info := waitTerminal(t, o, id)
	if info.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", info.Status, info.Reason)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stages) != 3 {
		t.Fatalf("executed stages = %v, want exactly 3: completed stages never re-run", stages)
	}
	for i, idx := range stages {
		if idx != i {
			t.Errorf("stage order = %v, want [0 1 2]", stages)
			break
		}
	}

	// The checkpoint is cleared on completion.
	job, _ := db.GetJob(id)
	if job.Checkpoint != nil {
		t.Error("completed job still carries a checkpoint")
	}
}

func TestOrchestrator_Resume_ContinuesFromCheckpoint(t *testing.T) {
	var stages []int
	var mu sync.Mutex
	tracking := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		mu.Lock()
		stages = append(stages, req.StageIndex)
		mu.Unlock()
		if len(req.PriorOutputs) == 0 {
			return "", fmt.Errorf("expected prior outputs from the checkpoint")
		}
		return "resumed output", nil
	})
	o, db := newTestEngine(t, testConfig(t.TempDir()), tracking)

	// Seed a parked job as a previous process would have left it.
	job := &models.Job{
		ID:        "parked01",
		Depth:     0,
		Mode:      models.ModeCode,
		Task:      "interrupted work",
		Status:    models.JobStatusCheckpointed,
		Timeout:   5 * time.Second,
		CreatedAt: time.Now(),
		Checkpoint: &models.Checkpoint{
			StageIndex:   1,
			StageOutputs: []string{"stage zero output"},
			SavedAt:      time.Now(),
		},
	}
	if err := db.CreateJob(job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	if err := o.Resume("parked01"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	info := waitTerminal(t, o, "parked01")
	if info.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", info.Status, info.Reason)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stages) != 1 || stages[0] != 1 {
		t.Errorf("executed stages = %v, want only stage 1", stages)
	}
}

func TestOrchestrator_RecoverInterrupted(t *testing.T) {
	o, db := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	pending := &models.Job{
		ID:        "leftover",
		Depth:     0,
		Mode:      models.ModeRapid,
		Task:      "recorded by a previous process",
		Status:    models.JobStatusPending,
		Timeout:   5 * time.Second,
		CreatedAt: time.Now(),
	}
	if err := db.CreateJob(pending); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	ids, err := o.RecoverInterrupted()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(ids) != 1 || ids[0] != "leftover" {
		t.Fatalf("recovered = %v, want [leftover]", ids)
	}

	info := waitTerminal(t, o, "leftover")
	if info.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed", info.Status)
	}
}

func TestOrchestrator_RunSync(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	result, err := o.RunSync(context.Background(), SpawnRequest{Task: "synchronous work", Mode: models.ModeRapid})
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if result.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if result.Result != "implementation output" {
		t.Errorf("result = %q", result.Result)
	}
}

func TestOrchestrator_SpawnParallel(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	ids, err := o.SpawnParallel([]string{"task one", "task two", "task three"})
	if err != nil {
		t.Fatalf("spawn parallel: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	for _, id := range ids {
		if info := waitTerminal(t, o, id); info.Status != models.JobStatusCompleted {
			t.Errorf("job %s = %s, want completed", id, info.Status)
		}
	}
}

func TestOrchestrator_Collect(t *testing.T) {
	release := make(chan struct{})
	gated := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		if strings.HasPrefix(req.Task, "slow") {
			select {
			case <-release:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return "ok", nil
	})
	o, _ := newTestEngine(t, testConfig(t.TempDir()), gated)

	fastID, _ := o.Spawn(SpawnRequest{Task: "fast job", Mode: models.ModeRapid, Tags: []string{"batch"}})
	slowID, _ := o.Spawn(SpawnRequest{Task: "slow job", Mode: models.ModeRapid, Tags: []string{"batch"}})
	waitTerminal(t, o, fastID)

	filter := models.MatchAll()
	filter.Tag = "batch"
	results, outstanding, err := o.Collect(filter)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(results) != 1 || results[0].JobID != fastID {
		t.Errorf("results = %+v, want only the fast job", results)
	}
	if len(outstanding) != 1 || outstanding[0] != slowID {
		t.Errorf("outstanding = %v, want the slow job", outstanding)
	}

	close(release)
	waitTerminal(t, o, slowID)
	results, outstanding, _ = o.Collect(filter)
	if len(results) != 2 || len(outstanding) != 0 {
		t.Errorf("after release: %d results, %d outstanding, want 2 and 0", len(results), len(outstanding))
	}
}

func TestOrchestrator_Dashboard(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	id, _ := o.Spawn(SpawnRequest{Task: "some work", Mode: models.ModeRapid})
	waitTerminal(t, o, id)

	stats, err := o.Dashboard()
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.StatusCounts[models.JobStatusCompleted] != 1 {
		t.Errorf("completed count = %d, want 1", stats.StatusCounts[models.JobStatusCompleted])
	}
	if len(stats.PerDepth) != 3 {
		t.Errorf("per-depth tiers = %d, want 3", len(stats.PerDepth))
	}
	if stats.PerDepth[0].Budget != 4 {
		t.Errorf("depth 0 budget = %d, want 4", stats.PerDepth[0].Budget)
	}
	if stats.ErrorRate != 0 {
		t.Errorf("error rate = %f, want 0", stats.ErrorRate)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("active workers = %d, want 0 once everything finished", stats.ActiveWorkers)
	}
	if stats.PerDepth[0].Queued != 0 {
		t.Errorf("queued at depth 0 = %d, want 0", stats.PerDepth[0].Queued)
	}
}

func TestOrchestrator_Dashboard_ReportsAdmissionBacklog(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.DepthBudgets = []int{1, 1, 1}

	release := make(chan struct{})
	gated := agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	o, _ := newTestEngine(t, cfg, gated)

	first, _ := o.Spawn(SpawnRequest{Task: "holds the slot", Mode: models.ModeRapid})
	second, _ := o.Spawn(SpawnRequest{Task: "waits behind it", Mode: models.ModeRapid})

	// The second job stays pending until the single depth-0 slot frees up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		stats, err := o.Dashboard()
		if err != nil {
			t.Fatalf("dashboard: %v", err)
		}
		if stats.PerDepth[0].Queued == 1 && stats.PerDepth[0].InUse == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backlog never visible: %+v", stats.PerDepth[0])
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	waitTerminal(t, o, first)
	waitTerminal(t, o, second)
}

func TestOrchestrator_Events_LifecycleOrder(t *testing.T) {
	o, _ := newTestEngine(t, testConfig(t.TempDir()), echoExecutor)

	id, _ := o.Spawn(SpawnRequest{Task: "observable work", Mode: models.ModeRapid})
	waitTerminal(t, o, id)

	seen := make(map[EventType]bool)
	deadline := time.After(time.Second)
	for !seen[EventJobCompleted] {
		select {
		case ev := <-o.Events():
			if ev.JobID == id {
				seen[ev.Type] = true
			}
		case <-deadline:
			t.Fatalf("never saw completion event; saw %v", seen)
		}
	}
	for _, want := range []EventType{EventJobCreated, EventJobAdmitted, EventStageCompleted} {
		if !seen[want] {
			t.Errorf("missing %s event", want)
		}
	}
}
