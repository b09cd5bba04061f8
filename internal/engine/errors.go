package engine

import (
	"errors"

	"github.com/voidcell/enclave/internal/share"
)

var (
	// ErrUnknownIdentifier indicates an identifier that names no live
	// isolate: never allocated, or already destroyed.
	ErrUnknownIdentifier = errors.New("unknown isolate identifier")

	// ErrInvalidTarget indicates an operation aimed at something that
	// cannot be its target: the currently executing isolate for destroy,
	// or an identifier that is not an isolate identifier at all.
	ErrInvalidTarget = errors.New("invalid target isolate")

	// ErrBusy indicates the target isolate is currently running.
	ErrBusy = errors.New("isolate already running")

	// ErrCreationFailed indicates a new execution context could not be
	// allocated. No identifier is issued and no partial isolate remains.
	ErrCreationFailed = errors.New("isolate creation failed")

	// ErrAllocationFailed indicates resource exhaustion: identifier space,
	// or an internal run failure with no capturable script exception.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrInvariantViolation indicates an isolate was observed with more
	// than one thread of control. Exactly one thread per isolate is a
	// system assumption, so this is a detected error, not a mode.
	ErrInvariantViolation = errors.New("isolate has more than one thread")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine is closed")
)

// Errors shared with the data-sharing protocol, re-exported so callers have
// one taxonomy to match against.
var (
	ErrNotShareable          = share.ErrNotShareable
	ErrMaterializationFailed = share.ErrMaterializationFailed
	ErrApplyFailed           = share.ErrApplyFailed
)

// ScriptFailure wraps a failure that occurred inside a target isolate and
// was re-raised in the caller's context. Only the type name and message
// survive the boundary; the original error object never crosses.
type ScriptFailure struct {
	Name    string
	Message string
}

// Error formats the bridged pair: "name: message" when both survived, the
// bare name or message when only one did, or a generic line when the bridge
// degraded to an empty payload.
func (f *ScriptFailure) Error() string {
	switch {
	case f.Name != "" && f.Message != "":
		return f.Name + ": " + f.Message
	case f.Name != "":
		return f.Name
	case f.Message != "":
		return f.Message
	default:
		return "script failed"
	}
}

// failureFromException converts a bridged exception into the caller-facing
// wrapper error.
func failureFromException(exc *share.Exception) *ScriptFailure {
	if exc == nil {
		return nil
	}
	return &ScriptFailure{Name: exc.Name, Message: exc.Message}
}
