package harness

import (
	"context"
	"sync"

	"github.com/roach88/fieldsync/internal/guard"
	"github.com/roach88/fieldsync/internal/record"
	"github.com/roach88/fieldsync/internal/store"
	"github.com/roach88/fieldsync/internal/testutil"
)

// recorder wraps the store and records every write that carries an engine
// origin. Writes without one come from scenario steps and are not traced.
type recorder struct {
	*store.Store

	mu      sync.Mutex
	seq     testutil.Sequence
	enabled bool
	trace   []TraceEntry
}

func newRecorder(st *store.Store) *recorder {
	return &recorder{Store: st}
}

// SetField implements engine.ProfileFieldStore.
func (r *recorder) SetField(ctx context.Context, profileID, key, value string) error {
	if origin, ok := guard.OriginFrom(ctx); ok {
		v := value
		r.record(TraceEntry{
			Op:      OpSetField,
			Origin:  origin.Token,
			Profile: profileID,
			Key:     key,
			Value:   &v,
		})
	}
	return r.Store.SetField(ctx, profileID, key, value)
}

// Upsert implements engine.ContactRecordStore.
func (r *recorder) Upsert(ctx context.Context, t record.Type, req record.Fields) (record.Fields, error) {
	if origin, ok := guard.OriginFrom(ctx); ok {
		r.record(TraceEntry{
			Op:     OpUpsert,
			Origin: origin.Token,
			Type:   string(t),
			Fields: req.Clone(),
		})
	}
	return r.Store.Upsert(ctx, t, req)
}

func (r *recorder) record(e TraceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return
	}
	e.Seq = r.seq.Next()
	r.trace = append(r.trace, e)
}

// start begins tracing.
func (r *recorder) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
}

// entries returns a copy of the trace.
func (r *recorder) entries() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEntry, len(r.trace))
	copy(out, r.trace)
	return out
}
