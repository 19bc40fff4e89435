// Package epoch implements the reclamation adapter the table depends on: a
// scoped Guard that pins the calling goroutine to the current global epoch,
// an Acquire load helper valid for the guard's lifetime, and a Retire queue
// that defers destruction until every guard pinned at or before the
// retirement epoch has released.
//
// The design is grounded in two small epoch-reclamation sketches: the
// global-epoch-plus-per-reader-pin shape (a ReaderEpoch scanned for a
// minimum before reclaiming) and the cache-padded reservation-slot pool
// scanned for a minimum reservation. Unlike either source, slots here are
// claimed via CAS from a fixed pool sized off GOMAXPROCS (and released by
// their owner), so concurrently pinned goroutines never share a slot -- required for
// correctness of the minimum-reservation scan, not just contention
// avoidance.
package epoch

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// inactive marks a reservation slot that is not currently pinning any epoch.
const inactive = ^uint64(0)

// reservation is one slot in the registry's fixed pool. It is padded to its
// own cache line: a goroutine pinning its reservation writes only to this
// slot, never to a location shared with other pinned goroutines.
type reservation struct {
	epoch atomic.Uint64
	owner atomic.Uint32
	_     [52]byte // pad to a 64-byte cache line alongside epoch+owner
}

// retired is a single object awaiting reclamation.
type retired struct {
	ptr     unsafe.Pointer
	epoch   uint64
	destroy func(unsafe.Pointer)
}

// Registry owns the reservation pool and the retire queue for one table.
// It must not be copied after first use.
type Registry struct {
	global     atomic.Uint64
	slots      []reservation
	mu         sync.Mutex
	pending    []retired
	hint       atomic.Uint32
}

// NewRegistry creates a registry with a reservation pool sized for the
// current GOMAXPROCS (four slots per P, and never fewer than 64), generous
// enough that concurrently-pinned goroutines essentially never contend on
// slot acquisition.
func NewRegistry() *Registry {
	n := runtime.GOMAXPROCS(0) * 4
	if n < 64 {
		n = 64
	}
	r := &Registry{
		slots: make([]reservation, n),
	}
	for i := range r.slots {
		r.slots[i].epoch.Store(inactive)
	}
	return r
}

// Guard is a scoped pin: while held, no memory retired at or before the
// guard's epoch may be reclaimed. Release with Unpin.
type Guard struct {
	r    *Registry
	slot *reservation
}

// Pin acquires a guard pinned to the registry's current epoch. It claims an
// exclusive reservation slot from the fixed pool via CAS. While every slot
// in the pool is held, Pin yields and rescans in a loop: it does not return
// until some guard is released, so it is not wait-free once more guards are
// held at once than the pool has slots.
func (r *Registry) Pin() Guard {
	start := r.hint.Add(1)
	n := uint32(len(r.slots))
	for {
		for i := uint32(0); i < n; i++ {
			s := &r.slots[(start+i)%n]
			if s.owner.CompareAndSwap(0, 1) {
				s.epoch.Store(r.global.Load())
				return Guard{r: r, slot: s}
			}
		}
		runtime.Gosched()
	}
}

// Unpin releases the guard's reservation slot.
func (g Guard) Unpin() {
	g.slot.epoch.Store(inactive)
	g.slot.owner.Store(0)
}

// LoadShared performs an Acquire load of addr. The returned pointer is only
// valid for the lifetime of g.
func LoadShared(addr *unsafe.Pointer, _ Guard) unsafe.Pointer {
	return atomic.LoadPointer(addr)
}

// Retire schedules ptr for destruction once every guard pinned at or before
// the current epoch has released. Reclamation happens only in the drain pass
// each Retire call runs, so destroy is invoked at most once, on the goroutine
// of whichever Retire call finds ptr reclaimable; an object still pending
// when no further Retire call is made is never destroyed.
func (r *Registry) Retire(ptr unsafe.Pointer, destroy func(unsafe.Pointer)) {
	e := r.global.Add(1)

	r.mu.Lock()
	r.pending = append(r.pending, retired{ptr: ptr, epoch: e, destroy: destroy})
	r.drainLocked()
	r.mu.Unlock()
}

// drainLocked destroys entries retired strictly before the minimum pinned
// reservation. Caller must hold r.mu.
func (r *Registry) drainLocked() {
	min := r.minReservation()

	kept := r.pending[:0]
	for _, item := range r.pending {
		if item.epoch < min {
			item.destroy(item.ptr)
			continue
		}
		kept = append(kept, item)
	}
	r.pending = kept
}

func (r *Registry) minReservation() uint64 {
	min := inactive
	for i := range r.slots {
		if v := r.slots[i].epoch.Load(); v < min {
			min = v
		}
	}
	return min
}

// Pending reports how many retired objects are still awaiting reclamation.
// Exposed for tests.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
