package handles

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry keeps track of every handle issued to callers and enforces the
// single-owner, single-destroy discipline: a handle is created by Create,
// addressed by its ID and released exactly once by Destroy.
type Registry struct {
	capacity int

	mu      sync.Mutex
	handles map[uint64]*Handle
	nextID  uint64
}

// NewRegistry creates a registry issuing at most capacity handles at a time.
// Non-positive capacity means no limit.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		handles:  make(map[uint64]*Handle),
	}
}

// Create allocates a new handle in Uninitialized state. It fails with
// AllocationFailure only when the registry capacity is exhausted.
func (r *Registry) Create() (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capacity > 0 && len(r.handles) >= r.capacity {
		zap.S().Warnf("[REG] Handle capacity %d exhausted", r.capacity)
		return nil, ErrAllocationFailure
	}
	r.nextID++
	h := newHandle(r.nextID)
	r.handles[h.id] = h
	zap.S().Debugf("[REG] Handle %d created", h.id)
	return h, nil
}

// Handle returns the live handle with the given ID.
func (r *Registry) Handle(id uint64) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

// Destroy releases the handle with the given ID and removes it from the
// registry. It reports whether the ID was known; a second call for the same
// ID returns false.
func (r *Registry) Destroy(id uint64) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()
	if !ok {
		zap.S().Warnf("[REG] Attempt to destroy unknown handle %d", id)
		return false
	}
	h.Destroy()
	return true
}

// Handles returns snapshots of all live handles ordered by ID.
func (r *Registry) Handles() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshots := make([]Snapshot, 0, len(r.handles))
	for _, h := range r.handles {
		snapshots = append(snapshots, h.Snapshot())
	}
	sort.Sort(ByID(snapshots))
	return snapshots
}

// Counts returns the number of live handles per lifecycle state.
func (r *Registry) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Counts{Total: len(r.handles)}
	for _, h := range r.handles {
		switch h.State() {
		case Uninitialized:
			c.Uninitialized++
		case Initialized:
			c.Initialized++
		case Running:
			c.Running++
		case Stopped:
			c.Stopped++
		}
	}
	return c
}

func (r *Registry) Capacity() int {
	return r.capacity
}

// Close destroys all live handles and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	live := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		live = append(live, h)
	}
	r.handles = make(map[uint64]*Handle)
	r.mu.Unlock()
	for _, h := range live {
		h.Destroy()
	}
}

// Counts is the number of live handles per lifecycle state.
type Counts struct {
	Uninitialized int `json:"uninitialized"`
	Initialized   int `json:"initialized"`
	Running       int `json:"running"`
	Stopped       int `json:"stopped"`
	Total         int `json:"total"`
}
