package orchestrator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/swarm/internal/store"
	"github.com/ShayCichocki/swarm/pkg/models"
)

func monitorFixture(t *testing.T) (*HealthMonitor, *store.DB, *[]Event) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "swarm.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	events := &[]Event{}
	monitor := NewHealthMonitor(db, newRunRegistry(), time.Hour, NopLogger(), func(ev Event) {
		*events = append(*events, ev)
	})
	return monitor, db, events
}

// seedRunning inserts a running job whose deadline already passed.
func seedRunning(t *testing.T, db *store.DB, id string) *models.Job {
	t.Helper()

	started := time.Now().Add(-time.Minute)
	job := &models.Job{
		ID:        id,
		Depth:     0,
		Mode:      models.ModeRapid,
		Task:      "orphaned work",
		Status:    models.JobStatusRunning,
		Timeout:   time.Second,
		CreatedAt: started,
		StartedAt: &started,
	}
	if err := db.CreateJob(job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func TestHealthMonitor_ExpiresOrphanAfterTwoSweeps(t *testing.T) {
	monitor, db, events := monitorFixture(t)
	seedRunning(t, db, "orphan")

	// First sweep records the sighting; the job survives.
	monitor.Sweep(time.Now())
	job, _ := db.GetJob("orphan")
	if job.Status != models.JobStatusRunning {
		t.Fatalf("status after first sweep = %s, want running", job.Status)
	}

	// Second sweep with no progress expires it.
	monitor.Sweep(time.Now())
	job, _ = db.GetJob("orphan")
	if job.Status != models.JobStatusTimedOut {
		t.Fatalf("status after second sweep = %s, want timed_out", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("expired job missing completion time")
	}

	if len(*events) != 1 || (*events)[0].Type != EventJobTimedOut {
		t.Errorf("events = %+v, want one timed-out event", *events)
	}
}

func TestHealthMonitor_CheckpointProgressDefersExpiry(t *testing.T) {
	monitor, db, _ := monitorFixture(t)
	job := seedRunning(t, db, "worker")

	monitor.Sweep(time.Now())

	// A fresh checkpoint between sweeps counts as progress.
	job.Checkpoint = &models.Checkpoint{
		StageIndex:   1,
		StageOutputs: []string{"made it this far"},
		SavedAt:      time.Now(),
	}
	if err := db.UpdateJob(job); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	monitor.Sweep(time.Now())
	got, _ := db.GetJob("worker")
	if got.Status != models.JobStatusRunning {
		t.Fatalf("status = %s, progress should defer expiry", got.Status)
	}

	// No further progress: the next sweep expires it, checkpoint intact.
	monitor.Sweep(time.Now())
	got, _ = db.GetJob("worker")
	if got.Status != models.JobStatusTimedOut {
		t.Fatalf("status = %s, want timed_out", got.Status)
	}
	if got.Checkpoint == nil {
		t.Error("expiry must preserve the checkpoint")
	}
}

func TestHealthMonitor_IgnoresJobsWithinDeadline(t *testing.T) {
	monitor, db, events := monitorFixture(t)

	started := time.Now()
	job := &models.Job{
		ID:        "healthy",
		Depth:     0,
		Mode:      models.ModeRapid,
		Task:      "plenty of time",
		Status:    models.JobStatusRunning,
		Timeout:   time.Hour,
		CreatedAt: started,
		StartedAt: &started,
	}
	if err := db.CreateJob(job); err != nil {
		t.Fatalf("seed: %v", err)
	}

	monitor.Sweep(time.Now())
	monitor.Sweep(time.Now())

	got, _ := db.GetJob("healthy")
	if got.Status != models.JobStatusRunning {
		t.Errorf("status = %s, want running", got.Status)
	}
	if len(*events) != 0 {
		t.Errorf("events = %+v, want none", *events)
	}
}

func TestHealthMonitor_IgnoresTerminalJobs(t *testing.T) {
	monitor, db, events := monitorFixture(t)

	started := time.Now().Add(-time.Hour)
	done := started.Add(time.Minute)
	job := &models.Job{
		ID:          "finished",
		Depth:       0,
		Mode:        models.ModeRapid,
		Task:        "already done",
		Status:      models.JobStatusPending,
		Timeout:     time.Second,
		CreatedAt:   started,
		StartedAt:   &started,
		CompletedAt: &done,
	}
	if err := db.CreateJob(job); err != nil {
		t.Fatalf("seed: %v", err)
	}
	job.Status = models.JobStatusCompleted
	if err := db.UpdateJob(job); err != nil {
		t.Fatalf("complete: %v", err)
	}

	monitor.Sweep(time.Now())
	monitor.Sweep(time.Now())

	got, _ := db.GetJob("finished")
	if got.Status != models.JobStatusCompleted {
		t.Errorf("status = %s, want completed unchanged", got.Status)
	}
	if len(*events) != 0 {
		t.Errorf("events = %+v, want none", *events)
	}
}
