// Package agent defines the opaque executor contract the orchestration engine
// delegates to. The engine knows nothing about how a stage produces its
// output; it only sequences stages, feeds each stage the outputs of the
// stages before it, and persists what comes back.
package agent

import (
	"context"

	"github.com/ShayCichocki/swarm/pkg/models"
)

// SpawnChild requests a child job from the engine at the caller's depth + 1.
// Implemented by the orchestrator; executors use it to fan work out
// recursively. The returned id is pollable through the normal facade.
type SpawnChild func(ctx context.Context, task string, mode models.Mode) (string, error)

// StageRequest describes one sub-stage of a job's pipeline.
type StageRequest struct {
	// JobID is the job this stage belongs to.
	JobID string
	// Task is the job's free-text work description.
	Task string
	// Mode is the job's execution mode.
	Mode models.Mode
	// Stage is the sub-stage to execute.
	Stage models.Stage
	// StageIndex is the position of this stage in the pipeline.
	StageIndex int
	// PriorOutputs holds the outputs of all completed stages, in pipeline
	// order. They are the input context for this stage.
	PriorOutputs []string
	// Spawn lets the executor create child jobs under this job.
	Spawn SpawnChild
}

// Executor runs one sub-stage of a job and returns its output.
// Implementations must honor ctx cancellation promptly: the engine cancels
// the context on kill and on deadline expiry.
type Executor interface {
	ExecuteStage(ctx context.Context, req StageRequest) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req StageRequest) (string, error)

// ExecuteStage implements Executor.
func (f ExecutorFunc) ExecuteStage(ctx context.Context, req StageRequest) (string, error) {
	return f(ctx, req)
}
