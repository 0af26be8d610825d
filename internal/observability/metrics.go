package observability

import (
	"fmt"
	"time"
)

// Metrics holds counters derived from the event log.
type Metrics struct {
	TasksCreated         int            `json:"tasks_created"`
	TasksCompleted       int            `json:"tasks_completed"`
	StatusTransitions    map[string]int `json:"status_transitions"`
	StartsBlocked        int            `json:"starts_blocked"`
	DependenciesAdded    int            `json:"dependencies_added"`
	DependenciesRemoved  int            `json:"dependencies_removed"`
	DependenciesRejected int            `json:"dependencies_rejected"`
	Recomputations       int            `json:"recomputations"`
	CyclesDetected       int            `json:"cycles_detected"`
	EventCount           int            `json:"event_count"`
	OldestEvent          *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent          *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{StatusTransitions: make(map[string]int)}
	m.EventCount = len(events)

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case EventTaskCreated:
			m.TasksCreated++
		case EventTaskStatusChanged:
			if status, ok := event.Data["new_status"].(string); ok {
				m.StatusTransitions[status]++
				if status == "completed" {
					m.TasksCompleted++
				}
			}
		case EventTaskStartBlocked:
			m.StartsBlocked++
		case EventDependencyAdded:
			m.DependenciesAdded++
		case EventDependencyRemoved:
			m.DependenciesRemoved++
		case EventDependencyRejected:
			m.DependenciesRejected++
		case EventGraphRecomputed:
			m.Recomputations++
		case EventGraphCycleDetected:
			m.Recomputations++
			m.CyclesDetected++
		}
	}
	return m, nil
}
