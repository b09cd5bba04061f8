// Package share implements the cross-isolate data-sharing protocol.
//
// Only a closed set of simple immutable kinds may cross an isolate boundary:
// strings, byte sequences, integers, floats, booleans, and nil. A shareable
// value is captured into a Capsule, a flat snapshot that owns its own memory
// and keeps nothing of the source isolate alive. Capsules are materialized
// into a target isolate's runtime and released exactly once per cross-isolate
// call, success or failure.
//
// Namespace batches (name, capsule) pairs for one call with all-or-nothing
// construction: if any capture fails, every capsule captured so far is
// released before the error surfaces.
//
// Exception carries a script failure across the boundary as a plain
// (type name, message) pair. No live error object ever crosses.
package share
