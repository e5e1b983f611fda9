package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	runMode    string
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a single job to completion and print its result",
	Long: `Run spawns a job, blocks until it reaches a terminal state, and
prints the result payload. Ctrl-C detaches: the job keeps its record
and any checkpoint, and can be resumed by the next engine process.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "force an execution mode instead of keyword selection")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "override the adaptive job deadline")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	executor, err := createExecutor(cfg)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, executor, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := eng.orch.RunSync(ctx, orchestrator.SpawnRequest{
		Task:    args[0],
		Mode:    models.Mode(runMode),
		Timeout: runTimeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println(color.YellowString("interrupted; job state preserved"))
			return nil
		}
		if result.Partial && result.Result != "" {
			fmt.Println(result.Result)
		}
		return err
	}

	fmt.Println(result.Result)
	return nil
}
