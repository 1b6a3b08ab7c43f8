package multiarena

import (
	"fmt"

	"braces.dev/errtrace"
)

// TooLargeRequestError is returned when a request exceeds the pool's
// arena size. Allocator state is unchanged when this is returned; a
// smaller subsequent request can succeed.
type TooLargeRequestError struct {
	BytesNeeded    uintptr
	BytesAvailable uintptr
}

func (e *TooLargeRequestError) Error() string {
	return fmt.Sprintf("multiarena: request of %d bytes exceeds arena size %d", e.BytesNeeded, e.BytesAvailable)
}

// ArenasExhaustedError is returned when the free list is empty and the
// active arena has no room left for the request. Allocator state is
// unchanged; every arena remains serviceable for smaller requests.
type ArenasExhaustedError struct {
	NumArenas uintptr
}

func (e *ArenasExhaustedError) Error() string {
	return fmt.Sprintf("multiarena: all %d arenas are reserved", e.NumArenas)
}

// InvalidConstructionError is returned when pool geometry fails
// validation at construction time: a zero arena count, or an arena
// size that isn't a multiple of the platform's maximum fundamental
// alignment.
type InvalidConstructionError struct {
	Reason string
}

func (e *InvalidConstructionError) Error() string {
	return "multiarena: invalid construction: " + e.Reason
}

// CorruptDeallocationError describes a deallocation the library cannot
// honor: an address outside the pool, a double free, or (in the
// statistics layer) an address unknown to the live-allocation map.
// This is unrecoverable programmer error, not a condition a caller can
// retry around — Deallocate panics with this value rather than
// returning it.
type CorruptDeallocationError struct {
	Address Address
	Bytes   uintptr
	Align   uintptr
}

func (e *CorruptDeallocationError) Error() string {
	return fmt.Sprintf("multiarena: corrupt deallocation of address %#x (bytes=%d align=%d): double free, foreign pointer, or buffer overflow", uintptr(e.Address), e.Bytes, e.Align)
}

// wrapTooLarge and its siblings exist only to keep errtrace.Wrap at the
// single raise site of each error kind.
func wrapTooLarge(needed, available uintptr) error {
	return errtrace.Wrap(&TooLargeRequestError{BytesNeeded: needed, BytesAvailable: available})
}

func wrapExhausted(n uintptr) error {
	return errtrace.Wrap(&ArenasExhaustedError{NumArenas: n})
}

func wrapInvalidConstruction(reason string) error {
	return errtrace.Wrap(&InvalidConstructionError{Reason: reason})
}

func panicCorrupt(addr Address, bytes, align uintptr) {
	panic(&CorruptDeallocationError{Address: addr, Bytes: bytes, Align: align})
}
