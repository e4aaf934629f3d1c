// Package instrumentation wires OpenTelemetry metrics and tracing for the
// Gmail MCP server.
//
// Metrics cover the four layers of the server: MCP tool invocations,
// gateway operations against the Gmail API, credential lifecycle events,
// and webhook deliveries. The Prometheus exporter is the default; stdout
// exporters exist for development.
//
// Everything here degrades to a no-op when instrumentation is disabled,
// so callers never guard their recording calls.
package instrumentation
