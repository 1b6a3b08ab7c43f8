// Package multiarena implements fixed-capacity, multi-arena memory pools
// for real-time and latency-sensitive code: bounded, constant-time
// allocation and deallocation of variably-sized blocks out of a
// pre-reserved buffer carved into N equally-sized arenas.
//
// # Overview
//
// A pool reserves N*S bytes up front and hands out sub-slices of it on
// request. Requests are served from one "active" arena by bumping a
// cursor; when the active arena fills, a free arena is promoted to
// active. An arena is only returned to the free list once every
// allocation carved from it has been freed — there is no per-byte
// reclamation, only per-arena. This trades the flexibility of a general
// heap for constant-time allocation, fragmentation immunity, and
// predictable cache locality.
//
// # Choosing a variant
//
// Four constructors cover the two independent axes of concurrency and
// geometry binding:
//
//	NewAllocator(numArenas, arenaSize)     unsynchronized, runtime geometry
//	NewFixed[B](arenaSize)                 unsynchronized, compile-time capacity
//	NewSyncAllocator(numArenas, arenaSize)  synchronized,   runtime geometry
//	NewFixedSync[B](arenaSize)              synchronized,   compile-time capacity
//
// B is a fixed-size array type the caller declares, e.g.
//
//	type Backing [16*4096 + 64]byte
//	a, err := multiarena.NewFixed[Backing](4096)
//
// which embeds the backing bytes directly in the returned struct, so no
// byte source is ever consulted on the pool's behalf. The trailing 64
// bytes are slack for aligning the pool to a cache line; the usable
// capacity is sizeof(B)-64 bytes.
//
// # Basic usage
//
//	a, err := multiarena.NewAllocator(16, 1024)
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	addr, err := a.Allocate(64, 8)
//	if err != nil {
//		return err
//	}
//	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), 64)
//	_ = buf
//	a.Deallocate(addr, 64, 8)
//
// # Thread safety
//
// Allocator and Fixed[B] are not safe for concurrent use. SyncAllocator
// and FixedSync[B] are: any goroutine may deallocate memory any other
// goroutine allocated.
//
// # Capacity planning
//
// StatsAllocator wraps any of the four variants with a live
// address→size map, a block-size histogram, percentile/mean/stddev over
// live block sizes, running maxima, and an optional Prometheus
// prometheus.Collector — see RegisterMetrics.
//
// # What this is not
//
// Not a general-purpose allocator: a single request larger than one
// arena always fails with TooLargeRequestError. No defragmentation, no
// per-allocation free beyond draining an entire arena, no automatic
// growth.
package multiarena
