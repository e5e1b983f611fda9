package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/swarm/internal/config"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// ModeSelector classifies a task description into an execution mode.
// Classification is a pure function of the keyword table and the task text:
// identical input always yields identical mode.
type ModeSelector struct {
	priority []models.Mode
	keywords map[models.Mode][]string
}

// NewModeSelector creates a selector with the compiled-in keyword table.
func NewModeSelector() *ModeSelector {
	return newSelectorFromKeywords(DefaultModeKeywords)
}

// NewModeSelectorFromTable builds a selector from an operator-supplied
// keyword table, validating every mode name against the enumeration.
func NewModeSelectorFromTable(table *config.KeywordTable) (*ModeSelector, error) {
	mk := ModeKeywords{
		Keywords: make(map[models.Mode][]string, len(table.Keywords)),
	}
	for _, name := range table.Priority {
		mode := models.Mode(name)
		if !mode.Valid() {
			return nil, fmt.Errorf("keyword table mode %q: %w", name, ErrInvalidMode)
		}
		mk.Priority = append(mk.Priority, mode)
		mk.Keywords[mode] = append([]string{}, table.Keywords[name]...)
	}
	return newSelectorFromKeywords(mk), nil
}

func newSelectorFromKeywords(mk ModeKeywords) *ModeSelector {
	s := &ModeSelector{
		priority: append([]models.Mode{}, mk.Priority...),
		keywords: make(map[models.Mode][]string, len(mk.Keywords)),
	}
	for mode, kws := range mk.Keywords {
		s.keywords[mode] = append([]string{}, kws...)
	}
	return s
}

// Select resolves the mode for a job. An explicit override is used
// unconditionally after validation; otherwise the task text is classified.
func (s *ModeSelector) Select(task string, override models.Mode) (models.Mode, error) {
	if override != "" {
		if !override.Valid() {
			return "", fmt.Errorf("mode %q: %w", override, ErrInvalidMode)
		}
		return override, nil
	}
	return s.Classify(task), nil
}

// Classify inspects the task text for keyword groups in priority order and
// returns the first matching mode, falling back to ModeCode.
func (s *ModeSelector) Classify(task string) models.Mode {
	lower := strings.ToLower(task)

	for _, mode := range s.priority {
		for _, kw := range s.keywords[mode] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return mode
			}
		}
	}

	return models.ModeCode
}

// MatchedKeyword returns the keyword that selects the given task's mode,
// empty when the task falls through to the default. Used for diagnostics.
func (s *ModeSelector) MatchedKeyword(task string) (models.Mode, string) {
	lower := strings.ToLower(task)

	for _, mode := range s.priority {
		for _, kw := range s.keywords[mode] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return mode, kw
			}
		}
	}

	return models.ModeCode, ""
}
