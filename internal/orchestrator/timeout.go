package orchestrator

import (
	"strings"
	"time"
)

// complexityKeywords are task-text signals that suggest a longer-running job.
var complexityKeywords = []string{
	"refactor",
	"migrate",
	"migration",
	"architecture",
	"redesign",
	"distributed",
	"concurren",
	"security",
	"end-to-end",
	"integration",
}

// maxComplexity caps the complexity score.
const maxComplexity = 5

// EstimateComplexity scores a task description from 1 (trivial) to 5
// (heavyweight). The score is a pure function of the text: word count
// buckets plus complexity keyword hits.
func EstimateComplexity(task string) int {
	score := 1

	words := len(strings.Fields(task))
	if words >= 15 {
		score++
	}
	if words >= 40 {
		score++
	}

	lower := strings.ToLower(task)
	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}

	if score > maxComplexity {
		score = maxComplexity
	}
	return score
}

// EffectiveTimeout computes a job's deadline from the base timeout, its
// recursion depth, and its estimated complexity. The adjustment grows
// monotonically with complexity and halves per depth increment, so shallow
// complex jobs get the longest deadlines and deep simple jobs the shortest.
// Deterministic given the same inputs.
func EffectiveTimeout(base time.Duration, depth, complexity int) time.Duration {
	if base <= 0 {
		base = 15 * time.Minute
	}
	if complexity < 1 {
		complexity = 1
	}
	if complexity > maxComplexity {
		complexity = maxComplexity
	}
	if depth < 0 {
		depth = 0
	}

	// Up to +2x base at maximum complexity, shrinking by half per depth level.
	extra := base * time.Duration(complexity-1) / 2
	if depth < 63 {
		extra >>= uint(depth)
	} else {
		extra = 0
	}
	return base + extra
}
