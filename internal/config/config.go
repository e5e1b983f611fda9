// Package config handles configuration loading and management for swarm.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for swarm.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Bedrock      BedrockConfig      `mapstructure:"bedrock"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// BedrockConfig holds AWS Bedrock settings for the API executor.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// OrchestratorConfig holds the engine's admission and timing settings.
type OrchestratorConfig struct {
	// MaxDepth is the maximum recursion depth; spawns beyond it are rejected.
	MaxDepth int `mapstructure:"max_depth"`
	// DepthBudgets is the per-depth concurrency budget, index = depth.
	// Must be non-increasing and cover every depth up to MaxDepth.
	DepthBudgets []int `mapstructure:"depth_budgets"`
	// BaseTimeout is the baseline job deadline before adaptive adjustment.
	BaseTimeout time.Duration `mapstructure:"base_timeout"`
	// CheckpointInterval is how often running jobs persist progress.
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
	// MonitorInterval is how often the health monitor scans for stalled jobs.
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	// OutputDirectory is where durable job records and result payloads live.
	OutputDirectory string `mapstructure:"output_directory"`
	// EnableCheckpointing toggles stage-boundary checkpoint persistence.
	EnableCheckpointing bool `mapstructure:"enable_checkpointing"`
	// ModesFile optionally overrides the compiled-in mode keyword table.
	ModesFile string `mapstructure:"modes_file"`
}

// Validate checks the orchestrator settings for contract violations.
func (c *OrchestratorConfig) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if len(c.DepthBudgets) == 0 {
		return fmt.Errorf("depth_budgets must not be empty")
	}
	for i, b := range c.DepthBudgets {
		if b < 0 {
			return fmt.Errorf("depth_budgets[%d] must be >= 0, got %d", i, b)
		}
		if i > 0 && b > c.DepthBudgets[i-1] {
			return fmt.Errorf("depth_budgets must be non-increasing: [%d]=%d > [%d]=%d",
				i, b, i-1, c.DepthBudgets[i-1])
		}
	}
	if len(c.DepthBudgets) < c.MaxDepth+1 {
		return fmt.Errorf("depth_budgets must cover every depth up to max_depth: %d entries for max_depth %d",
			len(c.DepthBudgets), c.MaxDepth)
	}
	if c.BaseTimeout <= 0 {
		return fmt.Errorf("base_timeout must be positive, got %s", c.BaseTimeout)
	}
	return nil
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.swarm.yaml in current directory or parent)
// 3. User config (~/.config/swarm/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Orchestrator.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Orchestrator.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("bedrock.enabled", cfg.Bedrock.Enabled)
	v.Set("bedrock.region", cfg.Bedrock.Region)
	v.Set("bedrock.profile", cfg.Bedrock.Profile)
	v.Set("orchestrator.max_depth", cfg.Orchestrator.MaxDepth)
	v.Set("orchestrator.depth_budgets", cfg.Orchestrator.DepthBudgets)
	v.Set("orchestrator.base_timeout", cfg.Orchestrator.BaseTimeout.String())
	v.Set("orchestrator.checkpoint_interval", cfg.Orchestrator.CheckpointInterval.String())
	v.Set("orchestrator.monitor_interval", cfg.Orchestrator.MonitorInterval.String())
	v.Set("orchestrator.output_directory", cfg.Orchestrator.OutputDirectory)
	v.Set("orchestrator.enable_checkpointing", cfg.Orchestrator.EnableCheckpointing)
	v.Set("orchestrator.modes_file", cfg.Orchestrator.ModesFile)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")

	v.SetDefault("bedrock.enabled", false)
	v.SetDefault("bedrock.region", "")
	v.SetDefault("bedrock.profile", "")

	v.SetDefault("orchestrator.max_depth", 3)
	v.SetDefault("orchestrator.depth_budgets", []int{10, 5, 3, 1})
	v.SetDefault("orchestrator.base_timeout", "15m")
	v.SetDefault("orchestrator.checkpoint_interval", "30s")
	v.SetDefault("orchestrator.monitor_interval", "10s")
	v.SetDefault("orchestrator.output_directory", ".swarm")
	v.SetDefault("orchestrator.enable_checkpointing", true)
	v.SetDefault("orchestrator.modes_file", "")
}

// getUserConfigDir returns the XDG config directory for swarm.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarm")
	}
	return filepath.Join(home, ".config", "swarm")
}

// findProjectConfig searches for .swarm.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".swarm.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxDepth:            3,
			DepthBudgets:        []int{10, 5, 3, 1},
			BaseTimeout:         15 * time.Minute,
			CheckpointInterval:  30 * time.Second,
			MonitorInterval:     10 * time.Second,
			OutputDirectory:     ".swarm",
			EnableCheckpointing: true,
		},
	}
}
