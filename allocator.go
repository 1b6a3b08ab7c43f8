package multiarena

import "unsafe"

// Allocator is the unsynchronized, runtime-fixed-geometry variant.
// Concurrent use from multiple goroutines is undefined — use
// SyncAllocator for that. Non-copyable: its address is stable and
// outstanding Addresses encode their owning arena via arithmetic against
// it, so always hold it behind a pointer.
type Allocator struct {
	core
	source ByteSource
	raw    []byte
}

// NewAllocator constructs a pool of numArenas arenas of arenaSize bytes
// each, backed by opts' byte source (the system heap by default).
// numArenas must be >= 1 and arenaSize must be a non-zero multiple of
// the platform's maximum fundamental alignment, or this returns
// InvalidConstructionError.
func NewAllocator(numArenas, arenaSize uintptr, opts ...Option) (*Allocator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if numArenas == 0 {
		return nil, wrapInvalidConstruction("num_arenas must be >= 1")
	}
	if arenaSize == 0 || arenaSize%maxFundamentalAlign != 0 {
		return nil, wrapInvalidConstruction("arena_size must be a non-zero multiple of the maximum fundamental alignment")
	}
	buf, err := cfg.byteSource.Get(numArenas * arenaSize)
	if err != nil {
		return nil, err
	}
	a := &Allocator{source: cfg.byteSource, raw: buf}
	if err := a.core.init(buf, numArenas, arenaSize); err != nil {
		cfg.byteSource.Release(buf)
		return nil, err
	}
	return a, nil
}

// Close releases the pool's backing buffer back to its upstream byte
// source. The allocator must be fully drained first — Close does not
// verify this, matching a non-defensive destructor contract.
func (a *Allocator) Close() error {
	a.source.Release(a.raw)
	return nil
}

// IsEqual reports whether other is this same allocator instance.
func (a *Allocator) IsEqual(other any) bool {
	o, ok := other.(*Allocator)
	return ok && o == a
}

// Fixed is the unsynchronized, compile-time-fixed-capacity variant: B
// fixes the pool's total byte capacity at compile time, embedded inline
// in the returned struct. Declare B as sizeof(B) = N*arenaSize +
// cacheLine: the trailing cacheLine bytes are reserved slack so the
// usable region — starting at the first cache-line boundary at or after
// B's address, wherever the runtime happens to place it — always has a
// fixed, compile-time-known length of N*arenaSize, the same
// over-allocate-and-round trick HeapSource.Get uses for heap-backed
// pools. arenaSize, supplied at construction, must evenly divide that
// length.
type Fixed[B any] struct {
	backing B
	core
}

// NewFixed constructs an inline-backed pool of N = (sizeof(B)-cacheLine)
// / arenaSize arenas — see Fixed for why sizeof(B) must reserve a
// trailing cacheLine of slack. Fails with InvalidConstructionError if
// arenaSize is not a non-zero multiple of the maximum fundamental
// alignment, if sizeof(B) <= cacheLine, or if arenaSize does not evenly
// divide sizeof(B)-cacheLine.
func NewFixed[B any](arenaSize uintptr) (*Fixed[B], error) {
	f := &Fixed[B]{}
	if arenaSize == 0 || arenaSize%maxFundamentalAlign != 0 {
		return nil, wrapInvalidConstruction("arena_size must be a non-zero multiple of the maximum fundamental alignment")
	}
	buf := alignedInlineBuffer(unsafe.Pointer(&f.backing), unsafe.Sizeof(f.backing))
	if buf == nil {
		return nil, wrapInvalidConstruction("sizeof(B) leaves no room for a cache-line-aligned buffer")
	}
	if uintptr(len(buf))%arenaSize != 0 {
		return nil, wrapInvalidConstruction("arena_size must evenly divide the cache-line-aligned portion of sizeof(B)")
	}
	if err := f.core.init(buf, uintptr(len(buf))/arenaSize, arenaSize); err != nil {
		return nil, err
	}
	return f, nil
}

// IsEqual reports whether other is this same allocator instance.
func (f *Fixed[B]) IsEqual(other any) bool {
	o, ok := other.(*Fixed[B])
	return ok && o == f
}
