package multiarena

import "go.uber.org/atomic"

// syncRegistry holds the per-arena alloc/dealloc counter pairs for the
// synchronized engine: their difference is an arena's live count. Split
// into two counters, rather than one live count, so the deallocation
// path can increment without holding the cursor/free-list mutex — see
// syncCore.Deallocate.
type syncRegistry struct {
	alloc   []*atomic.Int64
	dealloc []*atomic.Int64
}

func newSyncRegistry(n uintptr) syncRegistry {
	r := syncRegistry{
		alloc:   make([]*atomic.Int64, n),
		dealloc: make([]*atomic.Int64, n),
	}
	for i := range r.alloc {
		r.alloc[i] = atomic.NewInt64(0)
		r.dealloc[i] = atomic.NewInt64(0)
	}
	return r
}

func (r *syncRegistry) live(id int) int64 {
	return r.alloc[id].Load() - r.dealloc[id].Load()
}
