package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	resultsParent string
	resultsTag    string
)

var resultsCmd = &cobra.Command{
	Use:   "results [job-id]",
	Short: "Fetch job results",
	Long: `With a job id, prints that job's terminal result and fails while
the job is still in flight. With --parent, aggregates the terminal
children of a parent job. With --tag, collects every terminal result
carrying the tag and lists the ids still outstanding.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsParent, "parent", "", "aggregate results of this job's children")
	resultsCmd.Flags().StringVar(&resultsTag, "tag", "", "collect results of jobs carrying this tag")
}

func runResults(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, inertExecutor, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	switch {
	case len(args) == 1:
		return printResult(eng, args[0])
	case resultsParent != "":
		return printAggregate(eng, resultsParent)
	case resultsTag != "":
		return printCollected(eng, resultsTag)
	default:
		return fmt.Errorf("give a job id, --parent, or --tag")
	}
}

func printResult(eng *engine, jobID string) error {
	result, err := eng.orch.Result(jobID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotTerminal) {
			return fmt.Errorf("job %s is still in flight; try again later", jobID)
		}
		return err
	}

	if result.Status != models.JobStatusCompleted {
		fmt.Printf("%s: %s\n", statusColor(result.Status), result.Reason)
	}
	if result.Result != "" {
		fmt.Println(result.Result)
	}
	return nil
}

func printAggregate(eng *engine, parentID string) error {
	agg, err := eng.orch.Aggregate(parentID)
	if err != nil {
		return err
	}

	fmt.Printf("parent %s: %d succeeded, %d failed, %d outstanding\n",
		parentID, len(agg.Succeeded), len(agg.Failed), len(agg.Outstanding))
	if !agg.Complete {
		fmt.Println(color.YellowString("aggregation is partial; children still in flight"))
	}

	for _, r := range agg.Succeeded {
		fmt.Printf("\n%s %s\n%s\n", color.GreenString("✓"), r.JobID, r.Result)
	}
	for _, r := range agg.Failed {
		fmt.Printf("\n%s %s (%s): %s\n", color.RedString("✗"), r.JobID, r.Status, r.Reason)
	}
	for _, id := range agg.Outstanding {
		fmt.Printf("\n%s %s\n", color.YellowString("…"), id)
	}
	return nil
}

func printCollected(eng *engine, tag string) error {
	filter := models.MatchAll()
	filter.Tag = tag
	results, outstanding, err := eng.orch.Collect(filter)
	if err != nil {
		return err
	}

	for _, r := range results {
		marker := color.GreenString("✓")
		if r.Status != models.JobStatusCompleted {
			marker = color.RedString("✗")
		}
		fmt.Printf("%s %s (%s)\n", marker, r.JobID, r.Status)
		if r.Result != "" {
			fmt.Println(r.Result)
		}
	}
	if len(outstanding) > 0 {
		fmt.Printf("%s %d job(s) still in flight: %v\n", color.YellowString("…"), len(outstanding), outstanding)
	}
	if len(results) == 0 && len(outstanding) == 0 {
		fmt.Printf("no jobs tagged %q\n", tag)
	}
	return nil
}
