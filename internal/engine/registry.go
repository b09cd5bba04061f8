package engine

import (
	"fmt"
	"math"
	"sync"
)

// Registry owns the process-wide isolate table. It allocates identifiers,
// tracks liveness, and resolves identifiers back to live isolates.
// Identifiers are monotonically allocated and never reused, so a stale
// identifier can never alias a different isolate.
type Registry struct {
	mu        sync.RWMutex
	isolates  map[int64]*Isolate
	order     []int64 // creation order, oldest first
	nextID    int64
	mainID    int64
	currentID int64
}

func newRegistry() *Registry {
	return &Registry{
		isolates: make(map[int64]*Isolate),
	}
}

// allocate creates a new isolate and registers it under a fresh identifier.
// maxIsolates of zero means unlimited.
func (r *Registry) allocate(isolated bool, maxIsolates int) (iso *Isolate, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if maxIsolates > 0 && len(r.isolates) >= maxIsolates {
		return nil, fmt.Errorf("%w: isolate limit %d reached", ErrCreationFailed, maxIsolates)
	}
	if r.nextID == math.MaxInt64 {
		return nil, fmt.Errorf("%w: identifier space exhausted", ErrAllocationFailed)
	}

	// A runtime that cannot initialize must leave no partial isolate
	// observable, so nothing is registered until construction succeeds.
	defer func() {
		if rec := recover(); rec != nil {
			iso = nil
			err = fmt.Errorf("%w: %v", ErrCreationFailed, rec)
		}
	}()

	id := r.nextID
	iso = newIsolate(id, isolated)
	r.nextID++
	r.isolates[id] = iso
	r.order = append(r.order, id)
	if len(r.isolates) == 1 {
		r.mainID = id
		r.currentID = id
	}
	return iso, nil
}

// resolve returns the live isolate named by id. A negative identifier was
// never an isolate identifier at all and fails with ErrInvalidTarget; a
// non-negative identifier with no live isolate fails with
// ErrUnknownIdentifier, whether it is stale or was never issued.
func (r *Registry) resolve(id int64) (*Isolate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(id)
}

func (r *Registry) resolveLocked(id int64) (*Isolate, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: %d is not an isolate identifier", ErrInvalidTarget, id)
	}
	iso, ok := r.isolates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIdentifier, id)
	}
	return iso, nil
}

// remove drops a destroyed isolate from the table.
func (r *Registry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.isolates, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the identifiers of every currently live isolate,
// most-recently-created first. It is a point-in-time copy, safe to hold
// while other calls destroy isolates.
func (r *Registry) snapshot() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		ids = append(ids, r.order[i])
	}
	return ids
}

// main returns the identifier of the first isolate created by the process.
func (r *Registry) main() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mainID
}

// current returns the identifier of the isolate owning the calling context.
// Outside any run this is the main isolate.
func (r *Registry) current() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentID
}

// swapCurrent switches the execution context to id and returns the previous
// context. Only the script runner calls this, while holding the engine-wide
// execution lock.
func (r *Registry) swapCurrent(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.currentID
	r.currentID = id
	return prev
}

// size returns the number of live isolates.
func (r *Registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.isolates)
}
