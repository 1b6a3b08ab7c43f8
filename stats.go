package multiarena

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// engine is the subset of the public allocator surface the statistics
// layer needs from whatever it wraps. Allocator, Fixed[B], SyncAllocator
// and FixedSync[B] all satisfy it.
type engine interface {
	Allocate(bytes, align uintptr) (Address, error)
	Deallocate(addr Address, bytes, align uintptr)
	NumArenas() uintptr
	ArenaSize() uintptr
	NumAllocations() uintptr
	NumBusyArenas() uintptr
}

// StatsOption configures a StatsAllocator.
type StatsOption func(*statsConfig)

type statsConfig struct {
	mapSource MapSource
}

// WithMapSource routes the statistics layer's own address→size
// bookkeeping through another allocator from this package instead of a
// native Go map, so the whole stack can run without touching the Go
// heap.
func WithMapSource(src MapSource) StatsOption {
	return func(c *statsConfig) { c.mapSource = src }
}

// StatsAllocator wraps any base allocation engine with a mutex-guarded
// address→size map and derived bookkeeping: histogram, percentile,
// mean, stddev, and running maxima. It is always thread-safe, via its
// own internal mutex, even when wrapping the unsynchronized Allocator
// or Fixed[B].
type StatsAllocator struct {
	base engine

	mu    sync.Mutex
	sizes map[Address]uintptr // nil when table is in use
	table *addrTable          // nil when sizes is in use

	maxBusyArenas     *atomic.Int64
	maxNumAllocations *atomic.Int64

	collector *statsCollector // nil unless registered with a prometheus.Registerer
}

// NewStatsAllocator wraps base with the statistics layer.
func NewStatsAllocator(base engine, opts ...StatsOption) *StatsAllocator {
	cfg := statsConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &StatsAllocator{
		base:              base,
		maxBusyArenas:     atomic.NewInt64(0),
		maxNumAllocations: atomic.NewInt64(0),
	}
	if cfg.mapSource != nil {
		s.table = newAddrTable(cfg.mapSource)
	} else {
		s.sizes = make(map[Address]uintptr)
	}
	return s
}

// Allocate delegates to the wrapped engine, additionally recording
// (address, bytes) in the live-allocation map on success.
func (s *StatsAllocator) Allocate(bytes, align uintptr) (Address, error) {
	if bytes == 0 {
		return NullAddress, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != nil {
		if err := s.table.ensureCapacity(); err != nil {
			return NullAddress, err
		}
	}
	addr, err := s.base.Allocate(bytes, align)
	if err != nil {
		return NullAddress, err
	}
	if s.table != nil {
		s.table.insert(addr, bytes)
	} else {
		s.sizes[addr] = bytes
	}
	s.bumpMaxima()
	if s.collector != nil {
		s.collector.observe(bytes)
	}
	return addr, nil
}

// TryAllocate is the non-raising form of Allocate.
func (s *StatsAllocator) TryAllocate(bytes, align uintptr) Address {
	addr, err := s.Allocate(bytes, align)
	if err != nil {
		return NullAddress
	}
	return addr
}

// Deallocate delegates to the wrapped engine. Unlike the base engine's
// address-range check, an address unknown to the map is always treated
// as CorruptDeallocation — a strictly stronger check.
func (s *StatsAllocator) Deallocate(addr Address, bytes, align uintptr) {
	if bytes == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.table != nil {
		_, ok = s.table.Take(addr)
	} else {
		_, ok = s.sizes[addr]
		delete(s.sizes, addr)
	}
	if !ok {
		panicCorrupt(addr, bytes, align)
	}
	s.base.Deallocate(addr, bytes, align)
}

func (s *StatsAllocator) bumpMaxima() {
	if busy := int64(s.base.NumBusyArenas()); busy > s.maxBusyArenas.Load() {
		s.maxBusyArenas.Store(busy)
	}
	if n := int64(s.liveCountLocked()); n > s.maxNumAllocations.Load() {
		s.maxNumAllocations.Store(n)
	}
}

func (s *StatsAllocator) liveCountLocked() int {
	if s.table != nil {
		return s.table.Len()
	}
	return len(s.sizes)
}

// IsEqual reports whether other is this same allocator instance.
func (s *StatsAllocator) IsEqual(other any) bool {
	o, ok := other.(*StatsAllocator)
	return ok && o == s
}

// NumArenas returns capacity N.
func (s *StatsAllocator) NumArenas() uintptr { return s.base.NumArenas() }

// ArenaSize returns capacity S.
func (s *StatsAllocator) ArenaSize() uintptr { return s.base.ArenaSize() }

// NumAllocations returns the current live count, equal to the map size.
func (s *StatsAllocator) NumAllocations() uintptr { return s.base.NumAllocations() }

// NumBusyArenas returns the number of arenas with at least one live
// allocation.
func (s *StatsAllocator) NumBusyArenas() uintptr { return s.base.NumBusyArenas() }

// AddressMap returns a read-only snapshot of live allocations ordered by
// address.
func (s *StatsAllocator) AddressMap() []AddressSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AddressSize, 0, s.liveCountLocked())
	if s.table != nil {
		s.table.Each(func(addr Address, size uintptr) {
			out = append(out, AddressSize{Address: addr, Bytes: size})
		})
		return out
	}
	for addr, size := range s.sizes {
		out = append(out, AddressSize{Address: addr, Bytes: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// AddressSize is one entry of AddressMap's snapshot.
type AddressSize struct {
	Address Address
	Bytes   uintptr
}

// BytesAllocated returns the sum of live block sizes.
func (s *StatsAllocator) BytesAllocated() uintptr {
	var sum uintptr
	for _, e := range s.AddressMap() {
		sum += e.Bytes
	}
	return sum
}

// Histogram returns a map from block size to the number of live
// allocations of that size.
func (s *StatsAllocator) Histogram() map[uintptr]int {
	h := make(map[uintptr]int)
	for _, e := range s.AddressMap() {
		h[e.Bytes]++
	}
	return h
}

// Percentile returns the smallest block size B such that the cumulative
// count of live allocations up to and including B covers at least
// floor(p*total) allocations, for p clamped into [0,1]. Returns 0 when
// there are no live allocations.
func (s *StatsAllocator) Percentile(p float64) uintptr {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	sizes := s.liveSizesSorted()
	if len(sizes) == 0 {
		return 0
	}
	target := int(p * float64(len(sizes)))
	if target == 0 {
		return 0
	}
	if target > len(sizes) {
		target = len(sizes)
	}
	return sizes[target-1]
}

// Mean returns the arithmetic mean of live block sizes, or 0 when empty.
func (s *StatsAllocator) Mean() float64 {
	sizes := s.liveSizesSorted()
	if len(sizes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range sizes {
		sum += float64(v)
	}
	return sum / float64(len(sizes))
}

// Stddev returns the population standard deviation of live block sizes,
// or 0 when empty.
func (s *StatsAllocator) Stddev() float64 {
	sizes := s.liveSizesSorted()
	if len(sizes) == 0 {
		return 0
	}
	mean := s.Mean()
	var sumSq float64
	for _, v := range sizes {
		d := float64(v) - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(sizes)))
}

func (s *StatsAllocator) liveSizesSorted() []uintptr {
	entries := s.AddressMap()
	sizes := make([]uintptr, len(entries))
	for i, e := range entries {
		sizes[i] = e.Bytes
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}

// MaxBusyArenas returns the largest NumBusyArenas() has ever been over
// the allocator's lifetime.
func (s *StatsAllocator) MaxBusyArenas() uintptr { return uintptr(s.maxBusyArenas.Load()) }

// MaxNumAllocations returns the largest NumAllocations() has ever been
// over the allocator's lifetime.
func (s *StatsAllocator) MaxNumAllocations() uintptr { return uintptr(s.maxNumAllocations.Load()) }
