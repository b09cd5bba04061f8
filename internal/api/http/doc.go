// Package http exposes the debug/inspection HTTP surface over the engine:
// isolate listing and lifecycle, script runs, health, and Prometheus
// metrics. It is an operator convenience around the library surface, not a
// wire protocol for it.
package http
