package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidcell/enclave/internal/infrastructure/monitoring"
)

func TestRunSimpleScript(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	require.NoError(t, e.Run(id, "x = 1 + 1", nil))

	// State survives across runs within the same isolate.
	require.NoError(t, e.Run(id, `if (x !== 2) throw new Error("lost state")`, nil))
}

func TestRunUnknownTarget(t *testing.T) {
	e := newTestEngine(t)

	err := e.Run(12345, "1", nil)
	assert.ErrorIs(t, err, ErrUnknownIdentifier)
}

func TestRunAfterDestroy(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)
	require.NoError(t, e.Run(id, "x = 1 + 1", nil))
	require.NoError(t, e.Destroy(id))

	err = e.Run(id, "x = 2", nil)
	assert.ErrorIs(t, err, ErrUnknownIdentifier)
}

func TestRunTargetDestroyedBeforeLock(t *testing.T) {
	m := monitoring.NewMetricsFor(prometheus.NewRegistry())
	e := newTestEngine(t, WithMetrics(m))

	id, err := e.Create(true)
	require.NoError(t, err)

	// Hold the execution lock so the run parks after its pre-checks,
	// then pull the target out from under it.
	e.execMu.Lock()
	done := make(chan error, 1)
	go func() { done <- e.Run(id, "1", nil) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, e.Destroy(id))
	e.execMu.Unlock()

	assert.ErrorIs(t, <-done, ErrUnknownIdentifier)
	got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("resolve_failed"))
	assert.Equal(t, float64(1), got, "a vanished target is not a busy one")
}

func TestRunBusyTarget(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	iso, err := e.reg.resolve(id)
	require.NoError(t, err)
	require.NoError(t, e.beginRun(iso))

	err = e.Run(id, "1", nil)
	assert.ErrorIs(t, err, ErrBusy, "a busy target fails, never queues")

	e.endRun(iso)
	require.NoError(t, e.Run(id, "1", nil))
}

func TestRunInjectsSharedBindings(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	err = e.Run(id, `
		if (greeting !== "hello") throw new Error("bad greeting");
		if (count !== 3) throw new Error("bad count");
		if (!(blob instanceof ArrayBuffer)) throw new Error("bad blob");
		if (new Uint8Array(blob)[2] !== 30) throw new Error("bad blob contents");
	`, map[string]interface{}{
		"greeting": "hello",
		"count":    int64(3),
		"blob":     []byte{10, 20, 30},
	})
	require.NoError(t, err)
}

func TestRunSharedValueIsolation(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Create(true)
	require.NoError(t, err)
	b, err := e.Create(true)
	require.NoError(t, err)

	shared := map[string]interface{}{"blob": []byte{1, 2, 3}}

	require.NoError(t, e.Run(a, `new Uint8Array(blob)[0] = 99`, shared))
	// The mutation in A must not be visible in B.
	require.NoError(t, e.Run(b, `
		if (new Uint8Array(blob)[0] !== 1) throw new Error("leak across isolates");
	`, shared))
}

func TestRunNotShareableBinding(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	err = e.Run(id, "1", map[string]interface{}{
		"ok":  "fine",
		"bad": []string{"not", "shareable"},
	})
	assert.ErrorIs(t, err, ErrNotShareable)

	// The failed call injected nothing.
	require.NoError(t, e.Run(id, `
		if (typeof ok !== "undefined") throw new Error("partial injection");
	`, nil))
}

func TestRunScriptFailureBridged(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	err = e.Run(id, `throw new TypeError("boom")`, nil)
	require.Error(t, err)

	var failure *ScriptFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "TypeError", failure.Name)
	assert.Equal(t, "boom", failure.Message)
	assert.Equal(t, "TypeError: boom", failure.Error())
}

func TestRunFailureLeavesTargetClean(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	err = e.Run(id, `throw new Error("first failure")`, nil)
	require.Error(t, err)

	// Subsequent unrelated calls into the target succeed.
	require.NoError(t, e.Run(id, "y = 40 + 2", nil))
	require.NoError(t, e.Run(id, `if (y !== 42) throw new Error("state lost")`, nil))

	running, err := e.IsRunning(id)
	require.NoError(t, err)
	assert.False(t, running, "target returned to idle after a failure")
}

func TestRunFailureDoesNotReachCallerContext(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	err = e.Run(id, `throw { weird: true }`, nil)
	require.Error(t, err)

	var failure *ScriptFailure
	require.ErrorAs(t, err, &failure, "only the bridged wrapper crosses the boundary")
	assert.Equal(t, e.Main(), e.Current(), "context switched back to the caller")
}

func TestRunSyntaxError(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	err = e.Run(id, `function (`, nil)
	var failure *ScriptFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "SyntaxError", failure.Name)
}

func TestRunLegacyModeSharedPrograms(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Create(false)
	require.NoError(t, err)
	b, err := e.Create(false)
	require.NoError(t, err)

	// Same source runs in both; the compiled program is shared, the
	// namespaces are not.
	src := "counter = (typeof counter === 'undefined' ? 0 : counter) + 1"
	require.NoError(t, e.Run(a, src, nil))
	require.NoError(t, e.Run(a, src, nil))
	require.NoError(t, e.Run(b, src, nil))

	require.NoError(t, e.Run(a, `if (counter !== 2) throw new Error("a: " + counter)`, nil))
	require.NoError(t, e.Run(b, `if (counter !== 1) throw new Error("b: " + counter)`, nil))

	e.progMu.Lock()
	_, cached := e.programs[src]
	e.progMu.Unlock()
	assert.True(t, cached, "legacy mode populates the shared program cache")
}

func TestRunCurrentSwitchesDuringRun(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	// Observed from inside the run, the current isolate is the target.
	// The registry has no script hook, so check before and after.
	require.Equal(t, e.Main(), e.Current())
	require.NoError(t, e.Run(id, "1", nil))
	require.Equal(t, e.Main(), e.Current())
}

func TestConcurrentRunsSerialize(t *testing.T) {
	e := newTestEngine(t)

	const workers = 8
	ids := make([]int64, workers)
	for i := range ids {
		id, err := e.Create(true)
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Run(ids[i], "t = 0; for (let j = 0; j < 1000; j++) t += j", nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
}

func TestRunResultDiscarded(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	// A script producing a value still reports plain success.
	require.NoError(t, e.Run(id, "40 + 2", nil))
}

func TestScriptFailureFormatting(t *testing.T) {
	tests := []struct {
		name    string
		failure *ScriptFailure
		want    string
	}{
		{"both", &ScriptFailure{Name: "TypeError", Message: "boom"}, "TypeError: boom"},
		{"name only", &ScriptFailure{Name: "TypeError"}, "TypeError"},
		{"message only", &ScriptFailure{Message: "boom"}, "boom"},
		{"empty", &ScriptFailure{}, "script failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.failure.Error())
		})
	}
}

func TestRunBindingsReleasedOnEveryPath(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create(true)
	require.NoError(t, err)

	// Success path, failure path, and busy path all complete without
	// leaking; nothing to assert beyond clean subsequent behavior.
	shared := map[string]interface{}{"v": 1}
	require.NoError(t, e.Run(id, "v + 1", shared))

	err = e.Run(id, "throw new Error('x')", shared)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrBusy)

	require.NoError(t, e.Run(id, "v + 1", shared))
}
