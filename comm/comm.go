// Package comm provides the process-group abstraction consumed by the
// collective container operations in package matrixio.
//
// A Group identifies one participant in a fixed set of workers that act
// on shared storage. Exactly one member is the coordinator, and all
// members can synchronize at a barrier. Membership is static for the
// lifetime of the group; there is no cancellation, and a member that
// never reaches a barrier blocks the others indefinitely.
package comm

import "sync"

// Group is one participant's view of a worker group.
type Group interface {
	// Rank returns this participant's index, in [0, Size).
	Rank() int

	// Size returns the number of participants in the group.
	Size() int

	// IsCoordinator reports whether this participant is the one
	// designated to perform exactly-once side effects for the group.
	IsCoordinator() bool

	// Barrier blocks until every participant in the group has called it.
	Barrier()
}

// Self returns a group containing only the calling process. It is the
// degenerate single-process deployment: the caller is the coordinator
// and Barrier is a no-op.
func Self() Group {
	return selfGroup{}
}

type selfGroup struct{}

func (selfGroup) Rank() int           { return 0 }
func (selfGroup) Size() int           { return 1 }
func (selfGroup) IsCoordinator() bool { return true }
func (selfGroup) Barrier()            {}

// NewLocal returns handles for a group of n workers running in the same
// process, typically one per goroutine. Rank 0 is the coordinator. The
// handles share a single cyclic barrier, so each collective operation
// must be entered by all n workers.
func NewLocal(n int) []Group {
	if n < 1 {
		panic("comm: group size must be positive")
	}
	b := &barrier{size: n}
	b.cond = sync.NewCond(&b.mu)
	gs := make([]Group, n)
	for i := range gs {
		gs[i] = &localGroup{rank: i, size: n, b: b}
	}
	return gs
}

type localGroup struct {
	rank, size int
	b          *barrier
}

func (g *localGroup) Rank() int           { return g.rank }
func (g *localGroup) Size() int           { return g.size }
func (g *localGroup) IsCoordinator() bool { return g.rank == 0 }
func (g *localGroup) Barrier()            { g.b.await() }

// barrier is a reusable counting barrier. The generation counter lets
// waiters distinguish successive barrier rounds.
type barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	size  int
	count int
	gen   uint64
}

func (b *barrier) await() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.gen
	b.count++
	if b.count == b.size {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
}
