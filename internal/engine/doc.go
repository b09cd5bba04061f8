// Package engine implements the isolate lifecycle manager, identifier
// registry, and cross-isolate script runner.
//
// An isolate is an independent script execution context (one goja runtime)
// with its own global namespace and at most one active thread of control.
// Isolates are named externally only by opaque int64 identifiers that are
// never reused while any isolate is alive.
//
// There is no true parallelism: a single engine-wide execution lock
// serializes all isolates, and "switching" to an isolate is a synchronous,
// non-preemptible context change. A run blocks its caller for the full
// duration of the script; there is no cancellation and no timeout.
package engine
