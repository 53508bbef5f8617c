package store

import (
	"context"

	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// Recorder is a search.Tracer that appends every event to a run's trace.
//
// The engine is single-threaded, so the recorder keeps a plain seq counter.
// Trace cannot return an error; the first write failure is retained and
// later writes are skipped. Callers must check Err after the search.
type Recorder struct {
	store *Store
	runID string
	ctx   context.Context
	seq   int64
	err   error
}

// NewRecorder returns a recorder that appends to the given run.
// The context is used for every event write.
func NewRecorder(ctx context.Context, s *Store, runID string) *Recorder {
	return &Recorder{store: s, runID: runID, ctx: ctx}
}

// Trace implements search.Tracer.
func (r *Recorder) Trace(e search.Event) {
	if r.err != nil {
		return
	}
	r.seq++
	r.err = r.store.AppendEvent(r.ctx, r.runID, r.seq, e)
}

// Err returns the first event-write failure, if any.
func (r *Recorder) Err() error {
	return r.err
}

// EventCount returns the number of events successfully appended.
func (r *Recorder) EventCount() int64 {
	if r.err != nil {
		return r.seq - 1
	}
	return r.seq
}
