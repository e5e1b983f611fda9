package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/swarm/internal/api"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// stagePrompts maps each stage to the system prompt framing its work.
var stagePrompts = map[models.Stage]string{
	models.StageImplementation: "You are an implementation agent. Produce the code or artifact the task asks for.",
	models.StageReview:         "You are a code reviewer. Review the prior stage output for defects and suggest concrete fixes.",
	models.StageTestGen:        "You are a test engineer. Write tests covering the task and any prior stage output.",
	models.StageDocumentation:  "You are a technical writer. Document the work produced so far.",
	models.StageInvestigation:  "You are a debugger. Investigate the described problem and identify the root cause.",
	models.StageFix:            "You are a debugger. Apply a fix for the root cause identified in the prior stage.",
	models.StageVerification:   "You are a verifier. Check that the prior stage output actually resolves the task.",
	models.StageExploration:    "You are a researcher. Explore the question and gather relevant findings.",
	models.StageSummary:        "You are a summarizer. Condense the prior stage outputs into a clear report.",
}

// APIExecutor runs job stages through the Anthropic API, one call per stage.
type APIExecutor struct {
	runner *api.Runner
}

// NewAPIExecutor creates an executor backed by the given API client.
func NewAPIExecutor(client *api.Client) *APIExecutor {
	return &APIExecutor{runner: api.NewRunner(client)}
}

// ExecuteStage implements Executor. Prior stage outputs are given to the
// model as context so each stage builds on the one before it.
func (e *APIExecutor) ExecuteStage(ctx context.Context, req StageRequest) (string, error) {
	system, ok := stagePrompts[req.Stage]
	if !ok {
		return "", fmt.Errorf("unknown stage %q", req.Stage)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Task: %s\n", req.Task)
	for i, out := range req.PriorOutputs {
		fmt.Fprintf(&prompt, "\n--- Output of stage %d ---\n%s\n", i+1, out)
	}

	result, err := e.runner.RunWithSystem(ctx, system, prompt.String())
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", req.Stage, err)
	}
	return result, nil
}

var _ Executor = (*APIExecutor)(nil)
