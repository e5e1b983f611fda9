package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/agent"
	"github.com/ShayCichocki/swarm/pkg/models"
)

var killCmd = &cobra.Command{
	Use:   "kill <job-id>",
	Short: "Kill a job and all of its non-terminal descendants",
	Long: `Kill marks a job and every non-terminal descendant as killed.
Killing an already-finished job is a no-op. Terminal states never
change, so a job that completed in the meantime stays completed.`,
	Args: cobra.ExactArgs(1),
	RunE: runKill,
}

// inertExecutor backs engine instances for commands that only manage records
// and must never execute stage work.
var inertExecutor = agent.ExecutorFunc(func(ctx context.Context, req agent.StageRequest) (string, error) {
	return "", fmt.Errorf("no executor in this process")
})

func runKill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, inertExecutor, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.orch.Kill(args[0]); err != nil {
		return err
	}

	info, err := eng.orch.Status(args[0])
	if err != nil {
		return err
	}
	if info.Status == models.JobStatusKilled {
		fmt.Printf("%s %s\n", color.YellowString("killed"), args[0])
	} else {
		fmt.Printf("job %s already %s; unchanged\n", args[0], info.Status)
	}
	return nil
}
