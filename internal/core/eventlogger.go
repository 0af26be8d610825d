package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by core services. They match the observability
// package constants by value.
const (
	eventTaskCreated        = "task.created"
	eventTaskStatusChanged  = "task.status_changed"
	eventTaskRemoved        = "task.removed"
	eventTaskStartBlocked   = "task.start_blocked"
	eventDependencyAdded    = "dependency.added"
	eventDependencyRemoved  = "dependency.removed"
	eventDependencyRejected = "dependency.rejected"
	eventGraphRecomputed    = "graph.recomputed"
	eventGraphCycleDetected = "graph.cycle_detected"
)

type nopEventLogger struct{}

func (nopEventLogger) LogEvent(string, map[string]any) error { return nil }

func eventLoggerOrNop(l EventLogger) EventLogger {
	if l == nil {
		return nopEventLogger{}
	}
	return l
}
