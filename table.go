package ptab

import (
	"fmt"
	"unsafe"

	"github.com/rsloan/ptab/internal/epoch"
)

// Detached is the externally visible handle returned by Insert and accepted
// by Remove, Read, and With. Its low bits equal the concrete index of the
// slot it names; its remaining bits carry the generation.
type Detached uint64

// Option configures a Table at construction time, in the teacher's own
// functional-options idiom.
type Option[T any] func(*tableConfig[T])

type tableConfig[T any] struct {
	autoCacheLineSlots bool
	destroy            func(T)
}

// WithCacheLineSlotsAuto derives CACHE_LINE_SLOTS from the platform cache
// line size divided by the machine word size, overriding whatever value was
// passed to NewTable.
func WithCacheLineSlotsAuto[T any]() Option[T] {
	return func(c *tableConfig[T]) { c.autoCacheLineSlots = true }
}

// WithDestroyHook registers a callback invoked at most once for a payload
// removed from the table, when the epoch registry reclaims it during a
// Remove's retire step (that Remove's or a later one's). Absent by default:
// the boxed value is simply left for the garbage collector once retired.
func WithDestroyHook[T any](fn func(T)) Option[T] {
	return func(c *tableConfig[T]) { c.destroy = fn }
}

// Table is a fixed-capacity, lock-free concurrent slot table. Lookups
// perform no writes to shared memory; inserts and removes are lock-free.
// The zero value is not usable; construct with NewTable.
type Table[T any] struct {
	_ noCopy

	params tableParams

	counters counters
	slots    *slots[T]
	registry *epoch.Registry

	destroy func(T)
}

// NewTable constructs a table of the given capacity, both of which must be
// powers of two with cacheLineSlots <= capacity. It panics on misuse, the
// same way construction-time invariants fail loud elsewhere in this package.
func NewTable[T any](capacity, cacheLineSlots int, opts ...Option[T]) *Table[T] {
	cfg := tableConfig[T]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	cls := uint64(cacheLineSlots)
	if cfg.autoCacheLineSlots {
		wordSize := uint64(unsafe.Sizeof(uintptr(0)))
		cls = uint64(CacheLineSize) / wordSize
		if cls == 0 {
			cls = 1
		}
	}

	p := newTableParams(uint64(capacity), cls)

	return &Table[T]{
		params:   p,
		slots:    newSlots[T](&p),
		registry: epoch.NewRegistry(),
		destroy:  cfg.destroy,
	}
}

// Capacity returns CAPACITY.
func (t *Table[T]) Capacity() int { return int(t.params.capacity) }

// Len returns the approximate current population. It may transiently lead
// or lag the true count by the number of in-flight writers.
func (t *Table[T]) Len() int { return int(t.counters.entries.Load()) }

// Insert reserves a slot, invokes factory with the newly assigned detached
// index to produce the payload, and publishes it. It returns the detached
// index and true, or the zero value and false if the table is full -- in
// which case no shared state was left modified.
func (t *Table[T]) Insert(factory func(Detached) T) (Detached, bool) {
	p := &t.params

	n := t.counters.entries.Add(1)
	if n > uint32(p.capacity) {
		t.counters.entries.Add(^uint32(0))
		return 0, false
	}

	var a uint64
	for {
		cand := uint64(t.counters.nextID.Add(1)) - 1
		kSlot := toConcrete(p, cand)
		prior := t.slots.slot[kSlot].Swap(reserved)
		if prior == reserved {
			continue
		}
		a = prior
		break
	}

	// The reservation slot claimed above (toConcrete(cand)) is a pool
	// position, not necessarily where the payload belongs: release
	// deposits a freed generation into an arbitrary currently-RESERVED
	// slot, decoupled from the concrete slot it vacated. The payload is
	// published at the claimed abstract index's own concrete mapping.
	k := toConcrete(p, a)
	d := toDetached(p, a)
	value := factory(Detached(d))
	e := &entry[T]{abstract: a, value: value}

	t.slots.data[k].Store(e)

	return Detached(d), true
}

// Remove removes the entry named by d. It reports whether this call
// performed the removal; false means the slot was already empty or held a
// different generation than d names.
func (t *Table[T]) Remove(d Detached) bool {
	p := &t.params
	a := fromDetached(p, uint64(d))
	k := toConcrete(p, a)

	g := t.registry.Pin()
	old := t.slots.data[k].Load()
	if old == nil || old.abstract != a {
		g.Unpin()
		return false
	}
	if !t.slots.data[k].CompareAndSwap(old, nil) {
		g.Unpin()
		return false
	}
	g.Unpin()

	destroy := t.destroy
	t.registry.Retire(unsafe.Pointer(old), func(ptr unsafe.Pointer) {
		e := (*entry[T])(ptr)
		if destroy != nil {
			destroy(e.value)
		}
	})

	aPrime := nextGeneration(p, a)
	for {
		fi := uint64(t.counters.freeID.Add(1)) - 1
		kPrime := toConcrete(p, fi)
		if t.slots.slot[kPrime].CompareAndSwap(reserved, aPrime) {
			break
		}
	}

	t.counters.entries.Add(^uint32(0))

	return true
}

// Read loads a copy of the payload named by d. It returns the zero value
// and false if d is stale: the slot is empty or now holds a different
// generation.
func (t *Table[T]) Read(d Detached) (T, bool) {
	p := &t.params
	a := fromDetached(p, uint64(d))
	k := toConcrete(p, a)

	g := t.registry.Pin()
	defer g.Unpin()

	e := t.slots.data[k].Load()
	if e == nil || e.abstract != a {
		var zero T
		return zero, false
	}
	return e.value, true
}

// With invokes f with a pointer to the payload named by d, valid only for
// the duration of the call, and returns f's result wrapped in true. It
// returns the zero value and false if d is stale. Go methods cannot carry
// their own type parameter, so this is a package-level function alongside
// the Table type rather than a Table method.
func With[T, R any](t *Table[T], d Detached, f func(*T) R) (R, bool) {
	p := &t.params
	a := fromDetached(p, uint64(d))
	k := toConcrete(p, a)

	g := t.registry.Pin()
	defer g.Unpin()

	e := t.slots.data[k].Load()
	if e == nil || e.abstract != a {
		var zero R
		return zero, false
	}
	return f(&e.value), true
}

func (t *Table[T]) String() string {
	return fmt.Sprintf("ptab.Table[capacity=%d len=%d]", t.Capacity(), t.Len())
}
