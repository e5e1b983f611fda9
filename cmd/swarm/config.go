package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch := cfg.Orchestrator
	budgets := make([]string, len(orch.DepthBudgets))
	for i, b := range orch.DepthBudgets {
		budgets[i] = fmt.Sprintf("%d", b)
	}

	fmt.Printf("%-22s %d\n", "max_depth", orch.MaxDepth)
	fmt.Printf("%-22s [%s]\n", "depth_budgets", strings.Join(budgets, ", "))
	fmt.Printf("%-22s %s\n", "base_timeout", orch.BaseTimeout)
	fmt.Printf("%-22s %s\n", "checkpoint_interval", orch.CheckpointInterval)
	fmt.Printf("%-22s %s\n", "monitor_interval", orch.MonitorInterval)
	fmt.Printf("%-22s %s\n", "output_directory", orch.OutputDirectory)
	fmt.Printf("%-22s %t\n", "enable_checkpointing", orch.EnableCheckpointing)
	if orch.ModesFile != "" {
		fmt.Printf("%-22s %s\n", "modes_file", orch.ModesFile)
	}

	key := "not set"
	if cfg.Anthropic.APIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != "" {
		key = "set"
	}
	fmt.Printf("%-22s %s\n", "anthropic.api_key", key)
	if cfg.Anthropic.Model != "" {
		fmt.Printf("%-22s %s\n", "anthropic.model", cfg.Anthropic.Model)
	}
	if cfg.Bedrock.Enabled {
		fmt.Printf("%-22s %s\n", "bedrock.region", cfg.Bedrock.Region)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := config.Save(config.Default()); err != nil {
		return err
	}
	fmt.Printf("%s wrote %s\n", color.GreenString("✓"), path)
	return nil
}
