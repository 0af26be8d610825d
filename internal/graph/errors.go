package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTask is returned when a query names a task that is not part
	// of the current snapshot.
	ErrUnknownTask = errors.New("unknown task")
	// ErrGraphCycleDetected is returned when the dependencies form a cycle,
	// so no valid ordering exists.
	ErrGraphCycleDetected = errors.New("graph cycle detected")
	// ErrDepthExceeded is returned when the critical path search goes deeper
	// than the configured bound.
	ErrDepthExceeded = errors.New("critical path search exceeded maximum depth")
)

// UnknownTaskError names the task id that could not be found.
type UnknownTaskError struct {
	TaskID string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownTask, e.TaskID)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// CycleError names the tasks left unresolved by the topological pass. They
// sit on a cycle or are reachable only through one.
type CycleError struct {
	TaskIDs []string
}

func (e *CycleError) Error() string {
	if len(e.TaskIDs) == 0 {
		return ErrGraphCycleDetected.Error()
	}
	return fmt.Sprintf("%s: remove one of the dependencies between %s",
		ErrGraphCycleDetected, strings.Join(e.TaskIDs, ", "))
}

func (e *CycleError) Unwrap() error { return ErrGraphCycleDetected }
