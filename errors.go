package enclave

import "github.com/voidcell/enclave/internal/engine"

// The error taxonomy callers match against with errors.Is. Every operation
// returns either a clean success or exactly one of these, never a raw
// failure object from inside a different isolate.
var (
	ErrUnknownIdentifier     = engine.ErrUnknownIdentifier
	ErrInvalidTarget         = engine.ErrInvalidTarget
	ErrBusy                  = engine.ErrBusy
	ErrCreationFailed        = engine.ErrCreationFailed
	ErrNotShareable          = engine.ErrNotShareable
	ErrMaterializationFailed = engine.ErrMaterializationFailed
	ErrApplyFailed           = engine.ErrApplyFailed
	ErrAllocationFailed      = engine.ErrAllocationFailed
	ErrInvariantViolation    = engine.ErrInvariantViolation
	ErrEngineClosed          = engine.ErrEngineClosed
)

// ScriptFailure carries the type name and message of a failure that was
// raised inside a target isolate and re-raised in the caller's context.
type ScriptFailure = engine.ScriptFailure
