package enclave

import (
	"sync"

	"github.com/voidcell/enclave/codec"
	"github.com/voidcell/enclave/internal/engine"
	"github.com/voidcell/enclave/internal/infrastructure/config"
	"github.com/voidcell/enclave/internal/infrastructure/logging"
	"github.com/voidcell/enclave/internal/infrastructure/monitoring"
)

// ID is an opaque identifier naming one isolate. Identifiers are never
// reused while the isolate they name is alive; resolving a stale identifier
// fails with ErrUnknownIdentifier rather than naming a wrong isolate.
type ID = int64

var (
	mu   sync.Mutex
	eng  *engine.Engine
	conf *config.Config

	// Prometheus collectors register once per process, surviving
	// Shutdown/Init cycles.
	metricsOnce sync.Once
	metrics     *monitoring.Metrics
)

// Init initializes the process-scoped engine, creating the main isolate.
// It is optional: every other function initializes lazily with default
// configuration. Calling Init on an initialized engine is a no-op.
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	_, err := instanceLocked()
	return err
}

// Shutdown tears down every isolate, main included, and releases the
// engine. A later call reinitializes from scratch.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		return nil
	}
	err := eng.Close()
	eng = nil
	return err
}

// Create allocates a new isolate with a fresh namespace and returns its
// identifier. isolated=true gives it fully independent runtime
// configuration; isolated=false shares selected engine-wide configuration
// with its creator (compatibility mode).
func Create(isolated bool) (ID, error) {
	e, err := instance()
	if err != nil {
		return 0, err
	}
	return e.Create(isolated)
}

// Destroy tears down the isolate named by id and all its bindings.
func Destroy(id ID) error {
	e, err := instance()
	if err != nil {
		return err
	}
	return e.Destroy(id)
}

// ListAll returns a snapshot of every live isolate's identifier,
// most-recently-created first.
func ListAll() ([]ID, error) {
	e, err := instance()
	if err != nil {
		return nil, err
	}
	return e.All(), nil
}

// GetCurrent returns the identifier of the isolate owning the calling
// context.
func GetCurrent() (ID, error) {
	e, err := instance()
	if err != nil {
		return 0, err
	}
	return e.Current(), nil
}

// GetMain returns the identifier of the first isolate created by the
// process.
func GetMain() (ID, error) {
	e, err := instance()
	if err != nil {
		return 0, err
	}
	return e.Main(), nil
}

// IsRunning reports whether the isolate named by id is currently executing.
func IsRunning(id ID) (bool, error) {
	e, err := instance()
	if err != nil {
		return false, err
	}
	return e.IsRunning(id)
}

// RunString executes source as top-level statements inside the target
// isolate after injecting the shared bindings into its global namespace.
// The call blocks until the script finishes. A failure inside the target
// surfaces as *ScriptFailure; the target itself is left clean.
func RunString(id ID, source string, shared map[string]interface{}) error {
	e, err := instance()
	if err != nil {
		return err
	}
	return e.Run(id, source, shared)
}

// IsShareable reports whether a value may cross an isolate boundary. It is
// a pure predicate: false for anything outside the closed set, with no
// diagnostic.
func IsShareable(v interface{}) bool {
	return engine.Shareable(v)
}

// NewCompressor returns a streaming compressor at the configured default
// compression level. Use codec.NewCompressor directly to pick a level.
func NewCompressor() (*codec.Compressor, error) {
	return codec.NewCompressor(configured().Codec.Level)
}

// NewDecompressor returns a streaming decompressor.
func NewDecompressor() *codec.Decompressor {
	return codec.NewDecompressor()
}

func configured() *config.Config {
	mu.Lock()
	defer mu.Unlock()
	if conf == nil {
		conf = config.LoadOrDefault()
	}
	return conf
}

func instance() (*engine.Engine, error) {
	mu.Lock()
	defer mu.Unlock()
	return instanceLocked()
}

func instanceLocked() (*engine.Engine, error) {
	if eng != nil {
		return eng, nil
	}

	if conf == nil {
		conf = config.LoadOrDefault()
	}
	cfg := conf

	var log *logging.Logger
	if cfg.Logging.Development {
		log = logging.NewDevelopment()
	} else {
		logger, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			log = logging.NewDefault()
		} else {
			log = logger
		}
	}

	metricsOnce.Do(func() {
		metrics = monitoring.NewMetrics()
	})

	e, err := engine.New(
		engine.WithConfig(cfg.Engine),
		engine.WithLogger(log),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	eng = e
	return eng, nil
}
