package orchestrator

import (
	"testing"
	"time"
)

func TestEstimateComplexity_Deterministic(t *testing.T) {
	task := "refactor the storage layer for concurrent access across all services and modules"
	first := EstimateComplexity(task)
	for i := 0; i < 10; i++ {
		if got := EstimateComplexity(task); got != first {
			t.Fatalf("complexity changed between calls: %d then %d", first, got)
		}
	}
}

func TestEstimateComplexity_Bounds(t *testing.T) {
	if got := EstimateComplexity(""); got != 1 {
		t.Errorf("empty task complexity = %d, want 1", got)
	}
	if got := EstimateComplexity("fix typo"); got != 1 {
		t.Errorf("trivial task complexity = %d, want 1", got)
	}

	heavy := "refactor and migrate the distributed security architecture with end-to-end " +
		"integration coverage, redesign every concurrent subsystem, and validate the " +
		"migration across all regions with full rollback support and staged deployment"
	if got := EstimateComplexity(heavy); got != maxComplexity {
		t.Errorf("heavy task complexity = %d, want cap %d", got, maxComplexity)
	}
}

func TestEstimateComplexity_KeywordsRaiseScore(t *testing.T) {
	plain := EstimateComplexity("update the readme")
	keyword := EstimateComplexity("refactor the readme")
	if keyword <= plain {
		t.Errorf("keyword task %d should outrank plain task %d", keyword, plain)
	}
}

func TestEffectiveTimeout_MonotonicInComplexity(t *testing.T) {
	base := 10 * time.Minute
	prev := time.Duration(0)
	for complexity := 1; complexity <= maxComplexity; complexity++ {
		got := EffectiveTimeout(base, 0, complexity)
		if got < prev {
			t.Errorf("timeout decreased at complexity %d: %s < %s", complexity, got, prev)
		}
		prev = got
	}
}

func TestEffectiveTimeout_ShrinksWithDepth(t *testing.T) {
	base := 10 * time.Minute
	prev := EffectiveTimeout(base, 0, maxComplexity)
	for depth := 1; depth <= 4; depth++ {
		got := EffectiveTimeout(base, depth, maxComplexity)
		if got > prev {
			t.Errorf("timeout grew with depth %d: %s > %s", depth, got, prev)
		}
		if got < base {
			t.Errorf("timeout at depth %d fell below base: %s", depth, got)
		}
		prev = got
	}
}

func TestEffectiveTimeout_Defaults(t *testing.T) {
	if got := EffectiveTimeout(0, 0, 1); got != 15*time.Minute {
		t.Errorf("zero base should default to 15m, got %s", got)
	}
	// Degenerate inputs are clamped rather than rejected.
	if got := EffectiveTimeout(time.Minute, -3, 99); got < time.Minute {
		t.Errorf("clamped inputs produced sub-base timeout %s", got)
	}
}

func TestEffectiveTimeout_SimpleTaskGetsBase(t *testing.T) {
	base := 10 * time.Minute
	if got := EffectiveTimeout(base, 0, 1); got != base {
		t.Errorf("complexity 1 timeout = %s, want base %s", got, base)
	}
}
