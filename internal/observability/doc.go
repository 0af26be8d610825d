// Package observability records what happens to the task graph as JSON Lines
// events and derives metrics and alerts from that log on demand. Nothing is
// aggregated at write time; the event log is the only source of truth.
package observability
