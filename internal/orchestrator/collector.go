package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// Collect returns the terminal results of jobs matching the filter, plus the
// ids of matching jobs that are still in flight. It never blocks: callers
// poll and merge.
func (o *Orchestrator) Collect(filter models.JobFilter) ([]models.JobResult, []string, error) {
	jobs, err := o.store.ListJobs(filter)
	if err != nil {
		return nil, nil, err
	}

	var results []models.JobResult
	var outstanding []string
	for i := range jobs {
		job := &jobs[i]
		if job.Status.Terminal() {
			results = append(results, jobResult(job))
		} else {
			outstanding = append(outstanding, job.ID)
		}
	}
	return results, outstanding, nil
}

// Aggregate rolls up the direct children of a parent job into success and
// failure buckets. Complete is true only once every child is terminal;
// callers that need all-or-nothing semantics poll until then.
func (o *Orchestrator) Aggregate(parentID string) (models.AggregateResult, error) {
	parent, err := o.store.GetJob(parentID)
	if err != nil {
		return models.AggregateResult{}, err
	}
	if parent == nil {
		return models.AggregateResult{}, fmt.Errorf("job %s: %w", parentID, ErrJobNotFound)
	}

	agg := models.AggregateResult{ParentID: parentID, Complete: true}
	for _, childID := range parent.Children {
		child, err := o.store.GetJob(childID)
		if err != nil {
			return models.AggregateResult{}, err
		}
		if child == nil {
			continue
		}
		switch {
		case child.Status == models.JobStatusCompleted:
			agg.Succeeded = append(agg.Succeeded, jobResult(child))
		case child.Status.Terminal():
			agg.Failed = append(agg.Failed, jobResult(child))
		default:
			agg.Outstanding = append(agg.Outstanding, child.ID)
			agg.Complete = false
		}
	}
	return agg, nil
}

// DepthUtilization reports slot usage at one depth tier. Queued counts the
// pending records waiting for admission at that depth.
type DepthUtilization struct {
	Depth  int `json:"depth"`
	InUse  int `json:"in_use"`
	Budget int `json:"budget"`
	Queued int `json:"queued"`
}

// DashboardStats is the aggregate engine view behind the dashboard
// operation.
type DashboardStats struct {
	StatusCounts  map[models.JobStatus]int `json:"status_counts"`
	PerDepth      []DepthUtilization       `json:"per_depth"`
	ErrorRate     float64                  `json:"error_rate"`
	ActiveWorkers int                      `json:"active_workers"`
	DroppedEvents uint64                   `json:"dropped_events"`
}

// Dashboard computes current job counts per status, per-depth slot
// utilization and admission backlog, and the error rate over terminal jobs.
func (o *Orchestrator) Dashboard() (DashboardStats, error) {
	jobs, err := o.store.ListJobs(models.MatchAll())
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		StatusCounts:  make(map[models.JobStatus]int),
		ActiveWorkers: o.registry.count(),
		DroppedEvents: o.dropped.Load(),
	}

	var terminal, errored int
	for i := range jobs {
		status := jobs[i].Status
		stats.StatusCounts[status]++
		if status.Terminal() {
			terminal++
			if status != models.JobStatusCompleted && status != models.JobStatusKilled {
				errored++
			}
		}
	}
	if terminal > 0 {
		stats.ErrorRate = float64(errored) / float64(terminal)
	}

	for depth := 0; depth < o.throttle.Depths(); depth++ {
		queued, err := o.store.CountByDepthStatus(depth, models.JobStatusPending)
		if err != nil {
			return DashboardStats{}, err
		}
		stats.PerDepth = append(stats.PerDepth, DepthUtilization{
			Depth:  depth,
			InUse:  o.throttle.InUse(depth),
			Budget: o.throttle.Budget(depth),
			Queued: queued,
		})
	}
	return stats, nil
}
