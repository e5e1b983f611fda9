// Package orchestrator implements the recursive agent job engine: a
// depth-throttled scheduler that admits jobs against per-depth budgets,
// drives each job through its mode's stage pipeline, checkpoints progress
// at stage boundaries, and records durable, pollable results.
//
// Jobs are fire-and-forget: Spawn returns an id immediately and a detached
// goroutine carries the job from admission to a terminal state. Running jobs
// may spawn children one depth lower, which compete for that depth's own
// budget; budgets never increase with depth, so recursion converges instead
// of exploding. A background health monitor expires jobs that outlive their
// deadline without progress.
package orchestrator
