package share

import "errors"

var (
	// ErrNotShareable indicates a value whose kind is outside the closed
	// shareable set.
	ErrNotShareable = errors.New("value is not shareable")

	// ErrMaterializationFailed indicates a capsule could not be
	// reconstructed inside the target isolate.
	ErrMaterializationFailed = errors.New("materialization failed")

	// ErrApplyFailed indicates a shared namespace could not be fully
	// applied to the target isolate's globals.
	ErrApplyFailed = errors.New("failed to apply shared namespace")
)
