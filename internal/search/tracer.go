package search

import "log/slog"

// EventKind classifies diagnostic events. Events flow one way: nothing in
// the engine's control flow depends on a tracer.
type EventKind string

const (
	EventGoalAdded      EventKind = "goal_added"
	EventGoalExpanded   EventKind = "goal_expanded"
	EventRuleTried      EventKind = "rule_tried"
	EventRappAdded      EventKind = "rapp_added"
	EventBranchCopied   EventKind = "branch_copied"
	EventGoalProven     EventKind = "goal_proven"
	EventGoalUnprovable EventKind = "goal_unprovable"
	EventProofFound     EventKind = "proof_found"
)

// Event is one structured diagnostic record.
type Event struct {
	Kind      EventKind
	Iteration int64
	Goal      NodeID // zero when not applicable
	Rapp      NodeID // zero when not applicable
	Rule      string // rule name for rule_tried / rapp_added
	Outcome   string // trial outcome for rule_tried
	Detail    string
}

// Tracer consumes diagnostic events. Implementations must not feed back
// into engine control flow.
type Tracer interface {
	Trace(Event)
}

// NopTracer discards all events.
type NopTracer struct{}

func (NopTracer) Trace(Event) {}

// SlogTracer logs events through a structured logger at debug level,
// except proofs and terminal outcomes which log at info.
type SlogTracer struct {
	Logger *slog.Logger
}

func (t SlogTracer) Trace(e Event) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"iteration", e.Iteration,
	}
	if e.Goal != 0 {
		attrs = append(attrs, "goal", int64(e.Goal))
	}
	if e.Rapp != 0 {
		attrs = append(attrs, "rapp", int64(e.Rapp))
	}
	if e.Rule != "" {
		attrs = append(attrs, "rule", e.Rule)
	}
	if e.Outcome != "" {
		attrs = append(attrs, "outcome", e.Outcome)
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}

	switch e.Kind {
	case EventProofFound, EventGoalUnprovable:
		logger.Info(string(e.Kind), attrs...)
	default:
		logger.Debug(string(e.Kind), attrs...)
	}
}

// MultiTracer fans events out to several tracers in order.
type MultiTracer []Tracer

func (m MultiTracer) Trace(e Event) {
	for _, t := range m {
		t.Trace(e)
	}
}
