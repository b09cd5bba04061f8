package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/voidcell/enclave/internal/infrastructure/config"
	"github.com/voidcell/enclave/internal/infrastructure/logging"
	"github.com/voidcell/enclave/internal/infrastructure/monitoring"
	"github.com/voidcell/enclave/internal/share"
)

// Engine owns the isolate table, the execution lock, and the main isolate.
// All script execution in the process serializes through one Engine lock;
// concurrent calls from different goroutines are time-sliced, never
// overlapping.
type Engine struct {
	// execMu is the engine-wide execution lock. Exactly one isolate's
	// code runs while it is held.
	execMu sync.Mutex

	reg     *Registry
	log     *logging.Logger
	metrics *monitoring.Metrics
	cfg     config.EngineConfig

	// programs caches compiled sources, shared by legacy-mode
	// (isolated=false) isolates only. Guarded by progMu.
	progMu   sync.Mutex
	programs map[string]*goja.Program

	closeMu sync.Mutex
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithConfig sets engine configuration.
func WithConfig(cfg config.EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New initializes an engine and creates the main isolate. The main isolate
// has a fixed identity for the life of the engine and cannot be destroyed
// through Destroy while it is the current context.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		reg:      newRegistry(),
		programs: make(map[string]*goja.Program),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.NewDefault()
	}

	main, err := e.reg.allocate(true, 0)
	if err != nil {
		return nil, err
	}
	main.state = StateIdle

	e.log.Info("engine initialized", zap.Int64("main_isolate", main.id))
	if e.metrics != nil {
		e.metrics.IsolatesActive.Set(1)
		e.metrics.IsolatesCreated.Inc()
	}
	return e, nil
}

// Create allocates a new isolate with a fresh, empty namespace and returns
// its identifier. isolated=true gives the isolate fully independent runtime
// configuration; isolated=false is a compatibility mode sharing the
// engine-wide compiled-program cache with its creator.
func (e *Engine) Create(isolated bool) (int64, error) {
	if err := e.ensureOpen(); err != nil {
		return 0, err
	}

	iso, err := e.reg.allocate(isolated, e.cfg.MaxIsolates)
	if err != nil {
		return 0, err
	}

	e.log.Debug("isolate created",
		zap.Int64("id", iso.id),
		zap.Bool("isolated", isolated),
	)
	if e.metrics != nil {
		e.metrics.IsolatesCreated.Inc()
		e.metrics.IsolatesActive.Set(float64(e.reg.size()))
	}
	return iso.id, nil
}

// Destroy tears down the isolate named by id. Destroying the currently
// executing isolate fails with ErrInvalidTarget: a context may not delete
// the ground it is standing on. A running isolate fails with ErrBusy; an
// unresolvable identifier with ErrUnknownIdentifier. After success the
// identifier permanently resolves to ErrUnknownIdentifier.
func (e *Engine) Destroy(id int64) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}

	e.reg.mu.Lock()
	iso, err := e.reg.resolveLocked(id)
	if err != nil {
		e.reg.mu.Unlock()
		return err
	}
	if id == e.reg.currentID {
		e.reg.mu.Unlock()
		return fmt.Errorf("%w: cannot destroy the current isolate", ErrInvalidTarget)
	}
	if iso.state == StateRunning || iso.threads > 0 {
		e.reg.mu.Unlock()
		return fmt.Errorf("%w: cannot destroy", ErrBusy)
	}
	iso.teardown()
	e.reg.mu.Unlock()

	e.reg.remove(id)

	e.log.Debug("isolate destroyed", zap.Int64("id", id))
	if e.metrics != nil {
		e.metrics.IsolatesDestroyed.Inc()
		e.metrics.IsolatesActive.Set(float64(e.reg.size()))
	}
	return nil
}

// All returns a snapshot of every live isolate's identifier,
// most-recently-created first.
func (e *Engine) All() []int64 {
	return e.reg.snapshot()
}

// Current returns the identifier of the isolate owning the calling context.
func (e *Engine) Current() int64 {
	return e.reg.current()
}

// Main returns the identifier of the first isolate created by the process.
func (e *Engine) Main() int64 {
	return e.reg.main()
}

// IsRunning reports whether the isolate named by id is currently executing.
// An isolate observed with more than one thread of control fails with
// ErrInvariantViolation: multi-threaded isolates are a detected error, not
// a supported configuration.
func (e *Engine) IsRunning(id int64) (bool, error) {
	e.reg.mu.RLock()
	defer e.reg.mu.RUnlock()

	iso, err := e.reg.resolveLocked(id)
	if err != nil {
		return false, err
	}
	if iso.threads > 1 {
		return false, ErrInvariantViolation
	}
	return iso.state == StateRunning, nil
}

// Info describes one live isolate.
type Info struct {
	ID        int64
	Isolated  bool
	Running   bool
	Main      bool
	CreatedAt time.Time
}

// Info returns a point-in-time description of the isolate named by id.
func (e *Engine) Info(id int64) (Info, error) {
	e.reg.mu.RLock()
	defer e.reg.mu.RUnlock()

	iso, err := e.reg.resolveLocked(id)
	if err != nil {
		return Info{}, err
	}
	return Info{
		ID:        iso.ID(),
		Isolated:  iso.Isolated(),
		Running:   iso.state == StateRunning,
		Main:      iso.id == e.reg.mainID,
		CreatedAt: iso.CreatedAt(),
	}, nil
}

// Shareable reports whether a value may cross an isolate boundary. It is a
// pure predicate needing no engine.
func Shareable(v interface{}) bool {
	return share.IsShareable(v)
}

// IsShareable reports whether a value may cross an isolate boundary.
func (e *Engine) IsShareable(v interface{}) bool {
	ok := share.IsShareable(v)
	if !ok && e.metrics != nil {
		e.metrics.ValuesRejected.Inc()
	}
	return ok
}

// Close shuts the engine down, tearing down every isolate including main.
// Further calls fail with ErrEngineClosed. Close waits for any in-flight
// run by taking the execution lock.
func (e *Engine) Close() error {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return nil
	}
	e.closed = true
	e.closeMu.Unlock()

	e.execMu.Lock()
	defer e.execMu.Unlock()

	for _, id := range e.reg.snapshot() {
		e.reg.mu.Lock()
		if iso, ok := e.reg.isolates[id]; ok {
			iso.teardown()
		}
		e.reg.mu.Unlock()
		e.reg.remove(id)
	}

	if e.metrics != nil {
		e.metrics.IsolatesActive.Set(0)
	}
	e.log.Info("engine shut down")
	return nil
}

func (e *Engine) ensureOpen() error {
	e.closeMu.Lock()
	defer e.closeMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return nil
}

// compile returns an executable program for source. Legacy-mode isolates
// share the engine-wide cache; isolated ones compile privately every run.
func (e *Engine) compile(source string, shared bool) (*goja.Program, error) {
	if !shared {
		return goja.Compile("<isolate>", source, false)
	}

	e.progMu.Lock()
	defer e.progMu.Unlock()
	if prog, ok := e.programs[source]; ok {
		return prog, nil
	}
	prog, err := goja.Compile("<isolate>", source, false)
	if err != nil {
		return nil, err
	}
	e.programs[source] = prog
	return prog, nil
}
