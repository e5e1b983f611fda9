package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current status of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := db.GetJob(args[0])
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", args[0])
	}

	fmt.Printf("%-12s %s\n", "id", job.ID)
	fmt.Printf("%-12s %s\n", "status", statusColor(job.Status))
	fmt.Printf("%-12s %s\n", "mode", job.Mode)
	fmt.Printf("%-12s %d\n", "depth", job.Depth)
	fmt.Printf("%-12s %s\n", "task", job.Task)
	fmt.Printf("%-12s %s\n", "elapsed", job.Elapsed().Truncate(time.Millisecond))
	if job.ParentID != "" {
		fmt.Printf("%-12s %s\n", "parent", job.ParentID)
	}
	if len(job.Children) > 0 {
		fmt.Printf("%-12s %d\n", "children", len(job.Children))
	}
	if job.Checkpoint != nil {
		fmt.Printf("%-12s stage %d, saved %s\n", "checkpoint",
			job.Checkpoint.StageIndex, job.Checkpoint.SavedAt.Format(time.RFC3339))
	}
	if job.Reason != "" {
		fmt.Printf("%-12s %s\n", "reason", job.Reason)
	}
	return nil
}

func statusColor(status models.JobStatus) string {
	switch status {
	case models.JobStatusCompleted:
		return color.GreenString(string(status))
	case models.JobStatusRunning:
		return color.CyanString(string(status))
	case models.JobStatusCheckpointed, models.JobStatusPending:
		return color.YellowString(string(status))
	case models.JobStatusFailed, models.JobStatusTimedOut, models.JobStatusKilled:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
