package ptab

import "sync/atomic"

// entry is the envelope published into data[K]. It carries its own abstract
// index so a reader holding an epoch guard can confirm the payload it just
// loaded is the one its detached handle names, not a later occupant of the
// same concrete slot -- option (a) of the two equivalent identity-check
// encodings: an envelope word alongside the value, not tag bits stolen from
// the pointer itself.
type entry[T any] struct {
	abstract uint64
	value    T
}

// slots is the table's read-only side: the two fixed arrays addressed by
// concrete index. The to_concrete interleaving already spreads consecutive
// abstract indices across cache lines, so no further per-slot padding is
// needed here.
type slots[T any] struct {
	data []atomic.Pointer[entry[T]]
	slot []atomic.Uint64
}

// newSlots allocates both arrays at capacity and seeds slot[k] with the
// generation-0 abstract index whose mapping is k, per the table's lifecycle.
func newSlots[T any](p *tableParams) *slots[T] {
	s := &slots[T]{
		data: make([]atomic.Pointer[entry[T]], p.capacity),
		slot: make([]atomic.Uint64, p.capacity),
	}
	for k := uint64(0); k < p.capacity; k++ {
		s.slot[k].Store(initialAbstract(p, k))
	}
	return s
}
