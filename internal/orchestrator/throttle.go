package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DepthThrottle is the per-recursion-depth admission control. Each depth has
// a fixed slot budget, strictly non-increasing as depth grows; slots are
// acquired before a job transitions to running and released on every
// terminal transition and on checkpoint.
type DepthThrottle struct {
	budgets []int
	slots   []chan struct{}
	inUse   []atomic.Int64
}

// NewDepthThrottle creates a throttle with the given per-depth budgets
// (index = depth). Depths past the end of the list have a zero budget and
// always reject. Budgets must be non-increasing.
func NewDepthThrottle(budgets []int) (*DepthThrottle, error) {
	if len(budgets) == 0 {
		return nil, fmt.Errorf("depth budgets must not be empty")
	}
	for i, b := range budgets {
		if b < 0 {
			return nil, fmt.Errorf("budget for depth %d is negative: %d", i, b)
		}
		if i > 0 && b > budgets[i-1] {
			return nil, fmt.Errorf("budgets must be non-increasing: depth %d has %d > depth %d's %d",
				i, b, i-1, budgets[i-1])
		}
	}

	t := &DepthThrottle{
		budgets: append([]int{}, budgets...),
		slots:   make([]chan struct{}, len(budgets)),
		inUse:   make([]atomic.Int64, len(budgets)),
	}
	for i, b := range budgets {
		t.slots[i] = make(chan struct{}, b)
	}
	return t, nil
}

// Budget returns the slot budget for the given depth, zero past the list end.
func (t *DepthThrottle) Budget(depth int) int {
	if depth < 0 || depth >= len(t.budgets) {
		return 0
	}
	return t.budgets[depth]
}

// Depths returns the number of configured depth levels.
func (t *DepthThrottle) Depths() int {
	return len(t.budgets)
}

// Acquire blocks until a slot at the given depth is available or ctx is
// done. Depths with a zero budget reject immediately with ErrRecursionLimit,
// since no slot can ever be granted there.
func (t *DepthThrottle) Acquire(ctx context.Context, depth int) error {
	if t.Budget(depth) == 0 {
		return ErrRecursionLimit
	}

	select {
	case t.slots[depth] <- struct{}{}:
		t.inUse[depth].Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire grants a slot at the given depth without blocking.
func (t *DepthThrottle) TryAcquire(depth int) bool {
	if t.Budget(depth) == 0 {
		return false
	}
	select {
	case t.slots[depth] <- struct{}{}:
		t.inUse[depth].Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot at the given depth. Releasing more slots than were
// acquired is a programming error and panics.
func (t *DepthThrottle) Release(depth int) {
	if depth < 0 || depth >= len(t.slots) {
		return
	}
	select {
	case <-t.slots[depth]:
		t.inUse[depth].Add(-1)
	default:
		panic(fmt.Sprintf("throttle: release without acquire at depth %d", depth))
	}
}

// token wraps a freshly acquired slot in a single-release handle. Both the
// owning goroutine and the health monitor may try to give a slot back; the
// token guarantees it is returned exactly once.
func (t *DepthThrottle) token(depth int) *slotToken {
	return &slotToken{throttle: t, depth: depth}
}

// slotToken is a one-shot release handle on an acquired slot.
type slotToken struct {
	throttle *DepthThrottle
	depth    int
	once     sync.Once
}

func (st *slotToken) release() {
	if st == nil {
		return
	}
	st.once.Do(func() { st.throttle.Release(st.depth) })
}

// InUse returns the number of slots currently held at the given depth.
func (t *DepthThrottle) InUse(depth int) int {
	if depth < 0 || depth >= len(t.inUse) {
		return 0
	}
	return int(t.inUse[depth].Load())
}

// RecursionGuard enforces the maximum recursion depth at job-creation time.
type RecursionGuard struct {
	maxDepth int
}

// NewRecursionGuard creates a guard with the given maximum depth.
func NewRecursionGuard(maxDepth int) *RecursionGuard {
	return &RecursionGuard{maxDepth: maxDepth}
}

// MaxDepth returns the configured maximum recursion depth.
func (g *RecursionGuard) MaxDepth() int {
	return g.maxDepth
}

// Check rejects, synchronously, any spawn whose computed depth exceeds the
// maximum. The rejection is a distinct error, never a silent truncation.
func (g *RecursionGuard) Check(depth int) error {
	if depth < 0 {
		return fmt.Errorf("negative depth %d", depth)
	}
	if depth > g.maxDepth {
		return fmt.Errorf("depth %d exceeds maximum %d: %w", depth, g.maxDepth, ErrRecursionLimit)
	}
	return nil
}
