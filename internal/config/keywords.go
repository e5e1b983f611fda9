package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// KeywordTable maps mode names to the keyword groups that select them.
// Priority is the match order: the first listed mode whose keywords match
// wins. The table is configuration, not code; the compiled-in defaults live
// in the orchestrator package.
type KeywordTable struct {
	// Priority is the ordered list of mode names checked during classification.
	Priority []string `yaml:"priority"`
	// Keywords maps a mode name to its trigger keywords.
	Keywords map[string][]string `yaml:"keywords"`
}

// LoadKeywordTable reads a keyword table from a YAML file.
func LoadKeywordTable(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}

	var table KeywordTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse keyword table %s: %w", path, err)
	}

	if len(table.Priority) == 0 {
		return nil, fmt.Errorf("keyword table %s: priority list is empty", path)
	}
	for _, name := range table.Priority {
		if _, ok := table.Keywords[name]; !ok {
			return nil, fmt.Errorf("keyword table %s: priority entry %q has no keywords", path, name)
		}
	}

	return &table, nil
}

// KeywordWatcher reloads a keyword table when its file changes on disk.
// Readers always see a complete table snapshot, never a partially applied one.
type KeywordWatcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu    sync.RWMutex
	table *KeywordTable

	onReload func(*KeywordTable)
	done     chan struct{}
}

// WatchKeywordTable loads the table at path and watches for changes.
// The optional onReload callback fires after each successful reload.
func WatchKeywordTable(path string, onReload func(*KeywordTable)) (*KeywordWatcher, error) {
	table, err := LoadKeywordTable(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory rather than the file: editors replace files on
	// save, which drops a direct file watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	kw := &KeywordWatcher{
		path:     path,
		watcher:  w,
		table:    table,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go kw.loop()
	return kw, nil
}

// Table returns the current table snapshot.
func (kw *KeywordWatcher) Table() *KeywordTable {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	return kw.table
}

// Close stops watching the file.
func (kw *KeywordWatcher) Close() error {
	close(kw.done)
	return kw.watcher.Close()
}

func (kw *KeywordWatcher) loop() {
	for {
		select {
		case <-kw.done:
			return
		case event, ok := <-kw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(kw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			table, err := LoadKeywordTable(kw.path)
			if err != nil {
				// Keep serving the last good table on parse errors.
				continue
			}
			kw.mu.Lock()
			kw.table = table
			kw.mu.Unlock()
			if kw.onReload != nil {
				kw.onReload(table)
			}
		case _, ok := <-kw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
