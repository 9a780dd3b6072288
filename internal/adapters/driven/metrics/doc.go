// Package metrics provides instrumentation sinks for proxy events.
package metrics
