package engine

import (
	"time"

	"github.com/dop251/goja"
)

// State is an isolate's lifecycle state.
type State int32

const (
	// StateCreated is the state immediately after creation, before any
	// run. Observably identical to StateIdle everywhere except here.
	StateCreated State = iota
	// StateIdle means the isolate is alive and not executing.
	StateIdle
	// StateRunning means the isolate currently owns the execution lock.
	StateRunning
	// StateDestroyed means the isolate's namespace has been torn down.
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Isolate is one independent execution context: a goja runtime with its own
// global namespace and heap. All mutable fields are guarded by the owning
// registry's lock; the runtime itself is only touched while the engine-wide
// execution lock is held and the isolate is current.
type Isolate struct {
	id        int64
	vm        *goja.Runtime
	state     State
	threads   int
	isolated  bool
	createdAt time.Time
}

// newIsolate allocates a fresh execution context with an empty namespace.
// isolated=false is legacy mode: the runtime shares the engine's compiled
// program cache instead of compiling privately.
func newIsolate(id int64, isolated bool) *Isolate {
	return &Isolate{
		id:        id,
		vm:        goja.New(),
		state:     StateCreated,
		isolated:  isolated,
		createdAt: time.Now(),
	}
}

// ID returns the isolate's opaque identifier.
func (iso *Isolate) ID() int64 { return iso.id }

// Isolated reports whether the isolate runs with fully independent
// configuration (true) or in legacy shared-configuration mode (false).
func (iso *Isolate) Isolated() bool { return iso.isolated }

// CreatedAt returns the creation time.
func (iso *Isolate) CreatedAt() time.Time { return iso.createdAt }

// teardown destroys the isolate's namespace and all its bindings. The
// runtime reference is dropped so nothing in it stays reachable.
func (iso *Isolate) teardown() {
	iso.state = StateDestroyed
	iso.vm = nil
}
