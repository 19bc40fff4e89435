package ptab

import "sync/atomic"

// counters is the table's volatile side: population and the two allocation
// cursors, alone on their own cache line so a writer bumping them never
// invalidates a reader's line in the slot arrays below. A full cache line
// of padding on each side keeps any line holding a counter free of the
// table's other fields, whatever the struct's alignment.
type counters struct {
	_ [CacheLineSize]byte

	entries atomic.Uint32
	nextID  atomic.Uint32
	freeID  atomic.Uint32

	_ [CacheLineSize]byte
}
