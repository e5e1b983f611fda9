package main

import (
	"fmt"

	"github.com/ShayCichocki/swarm/internal/agent"
	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/internal/store"
)

// engine bundles everything a command needs to drive the orchestrator:
// config, the durable store, the facade, and the optional modes-file watcher.
type engine struct {
	cfg     *config.Config
	db      *store.DB
	orch    *orchestrator.Orchestrator
	logger  *orchestrator.DebugLogger
	watcher *config.KeywordWatcher
}

// openStore opens and migrates the job record store for the configured
// output directory. Commands that only read or mark records use this
// without building a full engine.
func openStore(cfg *config.Config) (*store.DB, error) {
	db, err := store.OpenDir(cfg.Orchestrator.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate job store: %w", err)
	}
	return db, nil
}

// buildEngine wires a full engine around the given executor and starts the
// health monitor. recoverJobs controls whether jobs left over from a previous
// process are re-launched; only commands that intend to execute work set it.
func buildEngine(cfg *config.Config, executor agent.Executor, recoverJobs bool) (*engine, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	logger := orchestrator.NewDebugLoggerForDir(cfg.Orchestrator.OutputDirectory)

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}

	var watcher *config.KeywordWatcher
	if cfg.Orchestrator.ModesFile != "" {
		table, err := config.LoadKeywordTable(cfg.Orchestrator.ModesFile)
		if err != nil {
			db.Close()
			logger.Close()
			return nil, fmt.Errorf("load modes file: %w", err)
		}
		selector, err := orchestrator.NewModeSelectorFromTable(table)
		if err != nil {
			db.Close()
			logger.Close()
			return nil, fmt.Errorf("modes file: %w", err)
		}
		opts = append(opts, orchestrator.WithModeSelector(selector))
	}

	orch, err := orchestrator.New(orchestrator.RequiredConfig{
		Store:    db,
		Executor: executor,
		Config:   cfg.Orchestrator,
	}, opts...)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, err
	}

	if cfg.Orchestrator.ModesFile != "" {
		watcher, err = config.WatchKeywordTable(cfg.Orchestrator.ModesFile, func(table *config.KeywordTable) {
			selector, err := orchestrator.NewModeSelectorFromTable(table)
			if err != nil {
				logger.Log("[modes] reload rejected: %v", err)
				return
			}
			orch.ReplaceModeSelector(selector)
			logger.Log("[modes] keyword table reloaded")
		})
		if err != nil {
			logger.Log("[modes] watch disabled: %v", err)
			watcher = nil
		}
	}

	orch.Start()
	if recoverJobs {
		ids, err := orch.RecoverInterrupted()
		if err != nil {
			logger.Log("[recover] %v", err)
		} else if len(ids) > 0 {
			logger.Log("[recover] re-launched %d interrupted job(s)", len(ids))
		}
	}

	return &engine{cfg: cfg, db: db, orch: orch, logger: logger, watcher: watcher}, nil
}

// Close stops the engine and releases everything it opened.
func (e *engine) Close() {
	if e.watcher != nil {
		e.watcher.Close()
	}
	e.orch.Stop()
	e.db.Close()
	e.logger.Close()
}
