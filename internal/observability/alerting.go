package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionGraphDeadlock   = "graph_deadlock"
	ConditionStartBlocked    = "start_blocked"
	ConditionDependencyChurn = "dependency_churn"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	// TaskIDs names the tasks the alert is about: the cycle members for a
	// deadlock, the refused task followed by its blockers for a start block.
	TaskIDs     []string  `json:"task_ids,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	// ChurnWindowHours is the look-back window for dependency churn.
	ChurnWindowHours int `yaml:"churn_window_hours" json:"churn_window_hours"`
	// MaxChurn is the number of dependency adds and removes tolerated within
	// the window before a churn alert fires.
	MaxChurn int `yaml:"max_churn" json:"max_churn"`
}

// DefaultAlertThresholds returns the thresholds used when none are configured.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ChurnWindowHours: 24,
		MaxChurn:         20,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine reading from eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate reads the log once and returns alerts ordered by severity.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("evaluating alerts: %w", err)
	}
	now := ae.now()

	var alerts []Alert
	alerts = append(alerts, ae.checkDeadlock(events, now)...)
	alerts = append(alerts, ae.checkStartBlocked(events, now)...)
	alerts = append(alerts, ae.checkChurn(events, now)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) < severityRank(alerts[j].Severity)
	})
	return alerts, nil
}

// checkDeadlock fires when the most recent graph evaluation found a cycle.
// A later successful recompute of the full graph clears it; recomputes over
// a filtered subset do not.
func (ae *alertEngine) checkDeadlock(events []Event, now time.Time) []Alert {
	var last *Event
	for i := range events {
		switch events[i].Type {
		case EventGraphCycleDetected:
			last = &events[i]
		case EventGraphRecomputed:
			if filtered, _ := events[i].Data["filtered"].(bool); filtered {
				continue
			}
			last = &events[i]
		}
	}
	if last == nil || last.Type != EventGraphCycleDetected {
		return nil
	}
	ids := stringsFromData(last.Data, "task_ids")
	msg := "dependency graph is deadlocked by a cycle"
	if len(ids) > 0 {
		msg = fmt.Sprintf("dependency graph is deadlocked: cycle through %s", strings.Join(ids, ", "))
	}
	return []Alert{{
		ID:          "deadlock",
		Condition:   ConditionGraphDeadlock,
		Severity:    SeverityHigh,
		Message:     msg,
		TaskIDs:     ids,
		TriggeredAt: now,
	}}
}

// checkStartBlocked reports tasks whose last start attempt was refused and
// that have not changed status since.
func (ae *alertEngine) checkStartBlocked(events []Event, now time.Time) []Alert {
	type attempt struct {
		at       time.Time
		blockers []string
	}
	pending := make(map[string]attempt)
	for _, event := range events {
		taskID, _ := event.Data["task_id"].(string)
		if taskID == "" {
			continue
		}
		switch event.Type {
		case EventTaskStartBlocked:
			pending[taskID] = attempt{at: event.Time, blockers: stringsFromData(event.Data, "blockers")}
		case EventTaskStatusChanged, EventTaskRemoved:
			delete(pending, taskID)
		}
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	alerts := make([]Alert, 0, len(ids))
	for _, id := range ids {
		a := pending[id]
		msg := fmt.Sprintf("task %s was refused a start at %s", id, a.at.Format("2006-01-02 15:04"))
		if len(a.blockers) > 0 {
			msg += fmt.Sprintf(": waiting on %s", strings.Join(a.blockers, ", "))
		}
		alerts = append(alerts, Alert{
			ID:          "start-blocked-" + id,
			Condition:   ConditionStartBlocked,
			Severity:    SeverityMedium,
			Message:     msg,
			TaskIDs:     append([]string{id}, a.blockers...),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkChurn fires when dependencies are added and removed more often than
// MaxChurn within the configured window.
func (ae *alertEngine) checkChurn(events []Event, now time.Time) []Alert {
	if ae.thresholds.MaxChurn <= 0 || ae.thresholds.ChurnWindowHours <= 0 {
		return nil
	}
	since := now.Add(-time.Duration(ae.thresholds.ChurnWindowHours) * time.Hour)
	count := 0
	for _, event := range events {
		if event.Time.Before(since) {
			continue
		}
		if event.Type == EventDependencyAdded || event.Type == EventDependencyRemoved {
			count++
		}
	}
	if count <= ae.thresholds.MaxChurn {
		return nil
	}
	return []Alert{{
		ID:        "dependency-churn",
		Condition: ConditionDependencyChurn,
		Severity:  SeverityLow,
		Message: fmt.Sprintf("%d dependency changes in the last %d hours (threshold %d)",
			count, ae.thresholds.ChurnWindowHours, ae.thresholds.MaxChurn),
		TriggeredAt: now,
	}}
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}
