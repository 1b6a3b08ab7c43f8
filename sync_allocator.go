package multiarena

import "unsafe"

// SyncAllocator is the synchronized, runtime-fixed-geometry variant.
// Safe for concurrent use by multiple goroutines: a deallocation by one
// goroutine of memory allocated by another is explicitly allowed.
// Non-copyable for the same reason as Allocator.
type SyncAllocator struct {
	syncCore
	source ByteSource
	raw    []byte
}

// NewSyncAllocator constructs a synchronized pool of numArenas arenas of
// arenaSize bytes each. See NewAllocator for the validation rules.
func NewSyncAllocator(numArenas, arenaSize uintptr, opts ...Option) (*SyncAllocator, error) {
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
	a := &SyncAllocator{source: cfg.byteSource, raw: buf}
	if err := a.syncCore.init(buf, numArenas, arenaSize); err != nil {
		cfg.byteSource.Release(buf)
		return nil, err
	}
	return a, nil
}

// Close releases the pool's backing buffer back to its upstream byte
// source. Must not be called concurrently with outstanding
// Allocate/Deallocate calls.
func (a *SyncAllocator) Close() error {
	a.source.Release(a.raw)
	return nil
}

// IsEqual reports whether other is this same allocator instance.
func (a *SyncAllocator) IsEqual(other any) bool {
	o, ok := other.(*SyncAllocator)
	return ok && o == a
}

// FixedSync is the synchronized, compile-time-fixed-capacity variant.
// See Fixed for the meaning of B, including the trailing cacheLine of
// slack it must reserve.
type FixedSync[B any] struct {
	backing B
	syncCore
}

// NewFixedSync constructs an inline-backed, synchronized pool of
// N = (sizeof(B)-cacheLine)/arenaSize arenas. See NewFixed for the
// sizing requirement on B and the failure modes.
func NewFixedSync[B any](arenaSize uintptr) (*FixedSync[B], error) {
	f := &FixedSync[B]{}
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
	if err := f.syncCore.init(buf, uintptr(len(buf))/arenaSize, arenaSize); err != nil {
		return nil, err
	}
	return f, nil
}

// IsEqual reports whether other is this same allocator instance.
func (f *FixedSync[B]) IsEqual(other any) bool {
	o, ok := other.(*FixedSync[B])
	return ok && o == f
}
