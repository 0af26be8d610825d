package observability

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestEventLog_WriteAndRead(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	writeEvents(t, log,
		Event{Time: now, Level: LevelInfo, Type: EventDependencyAdded, Message: "dependency added",
			Data: map[string]any{"edge_id": "DEP-00001", "task_id": "T2"}},
		Event{Time: now.Add(time.Second), Level: LevelWarn, Type: EventDependencyRejected, Message: "dependency rejected"},
	)

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != EventDependencyAdded || result[0].Message != "dependency added" {
		t.Errorf("unexpected first event %+v", result[0])
	}
	if result[0].Data["edge_id"] != "DEP-00001" {
		t.Errorf("expected data to round trip, got %v", result[0].Data)
	}
	if result[1].Level != LevelWarn {
		t.Errorf("expected level WARN, got %s", result[1].Level)
	}
}

func TestEventLog_Filters(t *testing.T) {
	log := newTestLog(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	writeEvents(t, log,
		Event{Time: base, Level: LevelInfo, Type: EventTaskCreated, Message: "first"},
		Event{Time: base.Add(time.Hour), Level: LevelInfo, Type: EventDependencyAdded, Message: "second"},
		Event{Time: base.Add(2 * time.Hour), Level: LevelError, Type: EventGraphCycleDetected, Message: "third"},
		Event{Time: base.Add(3 * time.Hour), Level: LevelInfo, Type: EventDependencyAdded, Message: "fourth"},
	)

	since := base.Add(30 * time.Minute)
	until := base.Add(2*time.Hour + 30*time.Minute)
	tests := []struct {
		name   string
		filter EventFilter
		want   []string
	}{
		{"all", EventFilter{}, []string{"first", "second", "third", "fourth"}},
		{"by type", EventFilter{Type: EventDependencyAdded}, []string{"second", "fourth"}},
		{"by level", EventFilter{Level: LevelError}, []string{"third"}},
		{"by window", EventFilter{Since: &since, Until: &until}, []string{"second", "third"}},
		{"combined", EventFilter{Since: &since, Type: EventDependencyAdded}, []string{"second", "fourth"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := log.Read(tt.filter)
			if err != nil {
				t.Fatalf("reading events: %v", err)
			}
			var got []string
			for _, e := range result {
				got = append(got, e.Message)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventLog_DefaultsTimeAndLevel(t *testing.T) {
	log := newTestLog(t)
	writeEvents(t, log, Event{Type: EventGraphCycleDetected, Message: "cycle"})

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result))
	}
	if result[0].Time.IsZero() {
		t.Error("expected time to be stamped")
	}
	if result[0].Level != LevelError {
		t.Errorf("expected ERROR level for cycle events, got %s", result[0].Level)
	}
}

func TestNewEvent_Levels(t *testing.T) {
	tests := map[string]string{
		EventDependencyAdded:    LevelInfo,
		EventDependencyRejected: LevelWarn,
		EventTaskStartBlocked:   LevelWarn,
		EventGraphCycleDetected: LevelError,
	}
	for typ, want := range tests {
		if got := NewEvent(typ, "msg", nil).Level; got != want {
			t.Errorf("NewEvent(%s).Level = %s, want %s", typ, got, want)
		}
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"time":"2026-03-02T09:00:00Z","level":"INFO","type":"task.created","msg":"ok"}
not json
{"time":"2026-03-02T09:01:00Z","level":"INFO","type":"task.removed","msg":"ok`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 || result[0].Type != EventTaskCreated {
		t.Fatalf("expected only the valid line, got %+v", result)
	}
}

func TestEventLog_CloseIsIdempotent(t *testing.T) {
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := log.Write(Event{Type: EventTaskCreated}); err == nil {
		t.Fatal("expected error writing to a closed log")
	}
}

func TestStringsFromData_AfterRoundTrip(t *testing.T) {
	log := newTestLog(t)
	writeEvents(t, log, Event{Type: EventGraphCycleDetected, Message: "cycle",
		Data: map[string]any{"task_ids": []string{"A", "B"}}})
	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if got := stringsFromData(result[0].Data, "task_ids"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("got %v", got)
	}
	if got := stringsFromData(result[0].Data, "missing"); got != nil {
		t.Fatalf("expected nil for missing key, got %v", got)
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log := newTestLog(t)
	const goroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < eventsPerGoroutine; i++ {
				event := NewEvent(EventGraphRecomputed, "concurrent", map[string]any{"goroutine": id, "index": i})
				if err := log.Write(event); err != nil {
					t.Errorf("concurrent write error: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events after concurrent writes: %v", err)
	}
	if len(result) != goroutines*eventsPerGoroutine {
		t.Errorf("expected %d events, got %d", goroutines*eventsPerGoroutine, len(result))
	}
}
