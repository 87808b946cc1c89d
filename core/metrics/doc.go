// Package metrics defines the sinks that observe the motor panel. A sink
// must record command attempts and may additionally implement the optional
// recorder interfaces for connection state and device feedback. Sinks like
// PromSink and InfluxSink are registered by infra/metrics and combined with
// NewMultiSink when several are configured.
package metrics
