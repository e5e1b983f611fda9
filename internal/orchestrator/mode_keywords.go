package orchestrator

import (
	"github.com/ShayCichocki/swarm/pkg/models"
)

// ModeKeywords is the single source of truth for mode classification
// keywords. The priority order is the match order: the first mode whose
// keyword group matches the task text wins. ModeCode carries no keywords
// because it is the fallback when nothing matches.
//
// The table is illustrative configuration, not an authoritative taxonomy;
// operators can replace it wholesale via the modes_file setting.
type ModeKeywords struct {
	// Priority is the ordered list of modes checked during classification.
	Priority []models.Mode
	// Keywords maps each mode to its trigger keywords.
	Keywords map[models.Mode][]string
}

// DefaultModeKeywords returns the compiled-in keyword mappings.
var DefaultModeKeywords = ModeKeywords{
	Priority: []models.Mode{
		models.ModeDebug,
		models.ModeTesting,
		models.ModeDocumentation,
		models.ModeReview,
		models.ModeResearch,
		models.ModeAnalysis,
		models.ModeQuality,
		models.ModeFullCycle,
		models.ModeRapid,
	},
	Keywords: map[models.Mode][]string{
		// Debug: something is broken and needs fixing
		models.ModeDebug: {
			"fix",
			"bug",
			"broken",
			"crash",
			"regression",
			"debug",
			"stack trace",
			"panic",
			"not working",
		},

		// Testing: test authoring and hardening
		models.ModeTesting: {
			"test",
			"tests",
			"coverage",
			"flaky",
			"assertion",
		},

		// Documentation: prose over code
		models.ModeDocumentation: {
			"document",
			"docs",
			"readme",
			"changelog",
			"docstring",
		},

		// Review: inspect without modifying
		models.ModeReview: {
			"review",
			"audit",
			"critique",
		},

		// Research: open-ended exploration
		models.ModeResearch: {
			"research",
			"investigate",
			"explore",
			"compare",
			"evaluate",
		},

		// Analysis: inspect and report
		models.ModeAnalysis: {
			"analyze",
			"analysis",
			"profile",
			"measure",
			"benchmark",
		},

		// Quality: improve existing code
		models.ModeQuality: {
			"refactor",
			"clean up",
			"cleanup",
			"lint",
			"harden",
			"polish",
		},

		// Full cycle: complete feature work
		models.ModeFullCycle: {
			"feature",
			"end-to-end",
			"production-ready",
			"full pipeline",
		},

		// Rapid: trivial single-pass changes
		models.ModeRapid: {
			"typo",
			"rename",
			"quick",
			"trivial",
			"one-line",
		},
	},
}
