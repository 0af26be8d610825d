package core

import (
	"context"

	"github.com/valter-silva-au/taskgraph/internal/graph"
	"github.com/valter-silva-au/taskgraph/internal/logging"
)

// LayoutSink receives the result of every recompute. err is non-nil when
// the snapshot could not be laid out, typically a *graph.CycleError.
type LayoutSink func(layout *graph.Layout, err error)

// Recomputer rebuilds the layout from a fresh snapshot whenever the change
// notifier fires. Notifications that arrive while a recompute is running
// collapse into a single follow-up run, so the sink always ends up with the
// latest state without replaying intermediate ones.
type Recomputer struct {
	graphs   GraphService
	notifier ChangeNotifier
	sink     LayoutSink
	log      *logging.Logger
	pending  chan struct{}
}

// NewRecomputer creates a Recomputer. notifier may be nil, in which case
// only explicit Trigger calls cause a recompute.
func NewRecomputer(graphs GraphService, notifier ChangeNotifier, sink LayoutSink, log *logging.Logger) *Recomputer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Recomputer{
		graphs:   graphs,
		notifier: notifier,
		sink:     sink,
		log:      log.WithComponent("recompute"),
		pending:  make(chan struct{}, 1),
	}
}

// Trigger schedules a recompute. It never blocks.
func (r *Recomputer) Trigger() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Run computes once immediately, then once per coalesced notification until
// ctx is cancelled.
func (r *Recomputer) Run(ctx context.Context) error {
	if r.notifier != nil {
		unsubscribe := r.notifier.Subscribe(r.Trigger)
		defer unsubscribe()
	}

	r.recompute()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.pending:
			r.recompute()
		}
	}
}

func (r *Recomputer) recompute() {
	layout, err := r.graphs.ComputeLayout()
	if err != nil {
		r.log.Debug("recompute failed", "error", err)
	} else {
		r.log.Debug("recomputed", "nodes", len(layout.Nodes))
	}
	if r.sink != nil {
		r.sink(layout, err)
	}
}
