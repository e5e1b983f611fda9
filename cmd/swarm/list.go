package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	listStatuses []string
	listTag      string
	listParent   string
	listDepth    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, optionally filtered by status, tag, parent, or depth",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "filter by status (repeatable)")
	listCmd.Flags().StringVar(&listTag, "tag", "", "filter by tag")
	listCmd.Flags().StringVar(&listParent, "parent", "", "filter by parent job id")
	listCmd.Flags().IntVar(&listDepth, "depth", -1, "filter by recursion depth")
}

func runList(cmd *cobra.Command, args []string) error {
	filter := models.MatchAll()
	filter.Tag = listTag
	filter.ParentID = listParent
	filter.Depth = listDepth
	for _, s := range listStatuses {
		status := models.JobStatus(s)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := db.ListJobs(filter)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}

	fmt.Printf("%-10s %-5s %-13s %-13s %-10s %s\n", "ID", "DEPTH", "MODE", "STATUS", "ELAPSED", "TASK")
	for i := range jobs {
		j := &jobs[i]
		task := j.Task
		if len(task) > 48 {
			task = task[:47] + "…"
		}
		fmt.Printf("%-10s %-5d %-13s %-13s %-10s %s\n",
			j.ID, j.Depth, j.Mode, statusColor(j.Status),
			j.Elapsed().Truncate(time.Second), task)
	}
	return nil
}
