package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOrchestratorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OrchestratorConfig
		wantErr bool
	}{
		{
			name: "default-shaped config",
			cfg: OrchestratorConfig{
				MaxDepth:     3,
				DepthBudgets: []int{10, 5, 3, 1},
				BaseTimeout:  15 * time.Minute,
			},
		},
		{
			name: "flat budgets allowed",
			cfg: OrchestratorConfig{
				MaxDepth:     2,
				DepthBudgets: []int{4, 4, 4},
				BaseTimeout:  time.Minute,
			},
		},
		{
			name: "increasing budgets rejected",
			cfg: OrchestratorConfig{
				MaxDepth:     2,
				DepthBudgets: []int{2, 5},
				BaseTimeout:  time.Minute,
			},
			wantErr: true,
		},
		{
			name: "empty budgets rejected",
			cfg: OrchestratorConfig{
				MaxDepth:    1,
				BaseTimeout: time.Minute,
			},
			wantErr: true,
		},
		{
			name: "negative budget rejected",
			cfg: OrchestratorConfig{
				MaxDepth:     1,
				DepthBudgets: []int{3, -1},
				BaseTimeout:  time.Minute,
			},
			wantErr: true,
		},
		{
			name: "budgets shorter than max depth rejected",
			cfg: OrchestratorConfig{
				MaxDepth:     3,
				DepthBudgets: []int{4, 2},
				BaseTimeout:  time.Minute,
			},
			wantErr: true,
		},
		{
			name: "negative max depth rejected",
			cfg: OrchestratorConfig{
				MaxDepth:     -1,
				DepthBudgets: []int{1},
				BaseTimeout:  time.Minute,
			},
			wantErr: true,
		},
		{
			name: "zero base timeout rejected",
			cfg: OrchestratorConfig{
				MaxDepth:     1,
				DepthBudgets: []int{1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
orchestrator:
  max_depth: 2
  depth_budgets: [6, 3, 1]
  base_timeout: 5m
  output_directory: /tmp/swarm-test
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Orchestrator.MaxDepth != 2 {
		t.Errorf("max_depth = %d, want 2", cfg.Orchestrator.MaxDepth)
	}
	if len(cfg.Orchestrator.DepthBudgets) != 3 || cfg.Orchestrator.DepthBudgets[0] != 6 {
		t.Errorf("depth_budgets = %v", cfg.Orchestrator.DepthBudgets)
	}
	if cfg.Orchestrator.BaseTimeout != 5*time.Minute {
		t.Errorf("base_timeout = %s, want 5m", cfg.Orchestrator.BaseTimeout)
	}
	// Unset keys fall back to defaults.
	if !cfg.Orchestrator.EnableCheckpointing {
		t.Error("enable_checkpointing default should be true")
	}
}

func TestLoadFromPath_InvalidBudgets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
orchestrator:
  depth_budgets: [1, 5]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for increasing depth_budgets")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Orchestrator.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadKeywordTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.yaml")
	content := `
priority: [debug, testing]
keywords:
  debug: [fix, bug]
  testing: [test, coverage]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	table, err := LoadKeywordTable(path)
	if err != nil {
		t.Fatalf("LoadKeywordTable: %v", err)
	}
	if len(table.Priority) != 2 || table.Priority[0] != "debug" {
		t.Errorf("priority = %v", table.Priority)
	}
	if len(table.Keywords["testing"]) != 2 {
		t.Errorf("testing keywords = %v", table.Keywords["testing"])
	}
}

func TestLoadKeywordTable_PriorityWithoutKeywords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.yaml")
	content := `
priority: [debug, review]
keywords:
  debug: [fix]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	if _, err := LoadKeywordTable(path); err == nil {
		t.Error("expected error for priority entry with no keywords")
	}
}

func TestWatchKeywordTable_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.yaml")
	initial := "priority: [debug]\nkeywords:\n  debug: [fix]\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	reloaded := make(chan *KeywordTable, 1)
	w, err := WatchKeywordTable(path, func(table *KeywordTable) {
		select {
		case reloaded <- table:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	updated := "priority: [testing]\nkeywords:\n  testing: [test]\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite table: %v", err)
	}

	select {
	case table := <-reloaded:
		if len(table.Priority) != 1 || table.Priority[0] != "testing" {
			t.Errorf("reloaded priority = %v", table.Priority)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatchKeywordTable_KeepsLastGoodTableOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.yaml")
	initial := "priority: [debug]\nkeywords:\n  debug: [fix]\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	w, err := WatchKeywordTable(path, nil)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("priority: ["), 0o644); err != nil {
		t.Fatalf("corrupt table: %v", err)
	}

	// Give the watcher a moment to see the write.
	time.Sleep(200 * time.Millisecond)

	table := w.Table()
	if len(table.Priority) != 1 || table.Priority[0] != "debug" {
		t.Errorf("table after bad write = %v, want last good table", table.Priority)
	}
}
