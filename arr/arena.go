package arr

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Handle addresses a slot in an Arena. The generation makes handles to a
// released slot detectably stale.
type Handle struct {
	slot uint32
	gen  uint32
}

type arenaSlot struct {
	gen  uint32
	live bool
	data any
}

// Arena keeps owned buffers at stable slots so views can refer to them by
// handle instead of by pointer.
type Arena struct {
	mu    sync.RWMutex
	slots []arenaSlot
	free  []uint32
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Default is the arena used by Transpose and Reshape of owned storages.
var Default = NewArena()

// Alloc stores data in a free slot and returns its handle.
func (a *Arena) Alloc(data any) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[slot]
		s.gen++
		s.live = true
		s.data = data
		return Handle{slot: slot, gen: s.gen}
	}
	a.slots = append(a.slots, arenaSlot{gen: 1, live: true, data: data})
	return Handle{slot: uint32(len(a.slots) - 1), gen: 1}
}

// Get returns the data stored under h, or false if h is stale.
func (a *Arena) Get(h Handle) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h.slot) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.slot]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return s.data, true
}

// Release frees the slot behind h. Releasing a stale handle is a no-op and returns false.
func (a *Arena) Release(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(h.slot) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.slot]
	if !s.live || s.gen != h.gen {
		return false
	}
	s.live = false
	s.data = nil
	a.free = append(a.free, h.slot)
	return true
}

// Live returns the number of occupied slots.
func (a *Arena) Live() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots) - len(a.free)
}

// pin ties an arena slot to the lifetime of the storages sharing it. When the
// last copy becomes unreachable the slot is released.
type pin struct {
	arena  *Arena
	handle Handle
}

type pinRef struct {
	arena  *Arena
	handle Handle
}

func newPin(a *Arena, data any) *pin {
	p := &pin{arena: a, handle: a.Alloc(data)}
	runtime.AddCleanup(p, func(r pinRef) { r.arena.Release(r.handle) }, pinRef{arena: a, handle: p.handle})
	return p
}

func (p *pin) resolve() any {
	data, ok := p.arena.Get(p.handle)
	if !ok {
		panic(errors.Errorf("arr: stale arena handle %d/%d", p.handle.slot, p.handle.gen))
	}
	return data
}
