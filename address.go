package multiarena

// Address is an offset into a pool's backing buffer, handed out by
// Allocate and consumed by Deallocate. It is deliberately not a Go
// pointer: the engine owns raw bytes, not typed objects. Callers that
// need a *T or []byte reconstruct it with unsafe.
type Address uintptr

// NullAddress is returned by a zero-byte request and by the
// TryAllocate exception-free path on failure.
const NullAddress Address = 0

// maxFundamentalAlign is the platform's maximum fundamental alignment,
// used to validate arena size at construction and as the guaranteed
// minimum alignment of every pool's base address.
const maxFundamentalAlign = 16
