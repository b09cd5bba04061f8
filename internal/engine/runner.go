package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voidcell/enclave/internal/share"
)

// Run executes source as top-level statements inside the target isolate,
// after injecting the shared bindings into its global namespace. The call
// is synchronous: the caller blocks until the target finishes, with no
// timeout and no cancellation. Any result value the script produces is
// discarded.
//
// A failure raised inside the target is contained there: captured as a
// plain (name, message) pair, cleared from the target, and re-raised in
// the caller's context as *ScriptFailure. The target is left in a clean,
// error-free state regardless of outcome.
func (e *Engine) Run(id int64, source string, bindings map[string]interface{}) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}

	start := time.Now()
	runID := uuid.New().String()
	log := e.log.With(zap.String("run_id", runID), zap.Int64("target", id))

	// Resolve the target and refuse a busy one before doing any work.
	target, err := e.reg.resolve(id)
	if err != nil {
		e.recordRun("resolve_failed", start)
		return err
	}
	if err := e.ensureNotRunning(target); err != nil {
		e.recordRun("busy", start)
		return err
	}

	// Build the shared namespace in the caller's isolate. All-or-nothing:
	// a capture failure surfaces with no capsules left behind.
	ns, err := share.BuildNamespace(bindings, e.Current())
	if err != nil {
		e.recordRun("not_shareable", start)
		return err
	}
	if n := ns.Len(); n > 0 && e.metrics != nil {
		e.metrics.CapsulesCaptured.Add(float64(n))
	}
	defer func() {
		// Capsules are released unconditionally once the call completes.
		if n := ns.Len(); n > 0 && e.metrics != nil {
			e.metrics.CapsulesReleased.Add(float64(n))
		}
		ns.Release()
	}()

	log.Debug("run starting", zap.Int("bindings", ns.Len()))

	// Switch the engine's single execution context to the target. The
	// lock makes the switch synchronous and non-preemptible; the state
	// is re-validated under it because the target may have been
	// destroyed or claimed since the checks above.
	e.execMu.Lock()
	if err := e.beginRun(target); err != nil {
		e.execMu.Unlock()
		if errors.Is(err, ErrUnknownIdentifier) {
			e.recordRun("resolve_failed", start)
		} else {
			e.recordRun("busy", start)
		}
		return err
	}
	prev := e.reg.swapCurrent(target.id)

	exc, runErr := e.executeInTarget(target, source, ns)

	// Switch back to the caller's context before surfacing anything.
	e.reg.swapCurrent(prev)
	e.endRun(target)
	e.execMu.Unlock()

	switch {
	case runErr != nil && isApplyFailure(runErr):
		e.recordRun("apply_failed", start)
		log.Error("shared namespace apply failed", zap.Error(runErr))
		return runErr
	case !exc.Empty():
		e.recordRun("script_failure", start)
		if e.metrics != nil {
			e.metrics.ScriptFailures.Inc()
		}
		failure := failureFromException(exc)
		log.Debug("run failed in target",
			zap.String("name", failure.Name),
			zap.String("message", failure.Message),
		)
		return failure
	case runErr != nil:
		// Execution failed but the exception bridge degraded to an
		// empty payload; all that is left to report is exhaustion.
		e.recordRun("error", start)
		return fmt.Errorf("%w: unable to capture script failure", ErrAllocationFailed)
	default:
		e.recordRun("ok", start)
		log.Debug("run completed", zap.Duration("duration", time.Since(start)))
		return nil
	}
}

// executeInTarget runs while the execution lock is held and the target is
// the current context. It applies the shared namespace, executes the
// source, and captures any raised failure before the context switches
// back, so no live error object ever leaves the target.
func (e *Engine) executeInTarget(iso *Isolate, source string, ns *share.Namespace) (*share.Exception, error) {
	if err := ns.Apply(iso.vm); err != nil {
		return nil, err
	}

	var err error
	if iso.isolated {
		_, err = iso.vm.RunString(source)
	} else {
		// Legacy mode shares the engine-wide program cache.
		prog, cerr := e.compile(source, true)
		if cerr != nil {
			err = cerr
		} else {
			_, err = iso.vm.RunProgram(prog)
		}
	}
	if err == nil {
		return nil, nil
	}

	exc := share.CaptureException(err)
	// The target must come back clean: nothing of the failure stays live
	// in it once captured.
	iso.vm.ClearInterrupt()
	return exc, err
}

// ensureNotRunning fails with ErrBusy for a running target and with
// ErrInvariantViolation if the target has more than one thread of control.
func (e *Engine) ensureNotRunning(iso *Isolate) error {
	e.reg.mu.RLock()
	defer e.reg.mu.RUnlock()
	if iso.threads > 1 {
		return ErrInvariantViolation
	}
	if iso.state == StateRunning {
		return ErrBusy
	}
	return nil
}

// beginRun transitions the target to RUNNING under the registry lock.
// Called with the execution lock held.
func (e *Engine) beginRun(iso *Isolate) error {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	if iso.state == StateDestroyed {
		return fmt.Errorf("%w: %d", ErrUnknownIdentifier, iso.id)
	}
	if iso.state == StateRunning || iso.threads > 0 {
		return ErrBusy
	}
	iso.state = StateRunning
	iso.threads++
	return nil
}

// endRun returns the target to IDLE.
func (e *Engine) endRun(iso *Isolate) {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	iso.threads--
	if iso.state == StateRunning {
		iso.state = StateIdle
	}
}

func (e *Engine) recordRun(status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordRun(status, time.Since(start))
	}
}

func isApplyFailure(err error) bool {
	return errors.Is(err, ErrApplyFailed)
}
