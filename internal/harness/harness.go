package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/refdata"
	"github.com/roach88/fieldsync/internal/store"
	"github.com/roach88/fieldsync/internal/testutil"
)

// TokenPrefix prefixes the origin tokens of every scenario run.
const TokenPrefix = "harness"

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sends engine logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database for isolation:
// 1. Create a temporary SQLite store and seed reference data
// 2. Attach the engine through the trace recorder
// 3. Execute setup steps, then start tracing
// 4. Execute flow steps
// 5. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := os.MkdirTemp("", "fieldsync-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	ds, err := refdata.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	if err := st.SeedReference(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to seed reference data: %w", err)
	}

	rec := newRecorder(st)
	eng := engine.New(rec, rec, st, st,
		engine.WithLogger(o.logger),
		engine.WithTokenGenerator(testutil.NewSequentialGenerator(TokenPrefix)),
	)
	detach := eng.Attach()
	defer detach()

	h := &Harness{store: st, logger: o.logger}

	for i, step := range scenario.Setup {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
	}

	rec.start()
	for i, step := range scenario.Flow {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	result := NewResult()
	result.Trace = rec.entries()

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute applies one step to the store.
func (h *Harness) execute(ctx context.Context, step Step) error {
	switch {
	case step.Link != nil:
		contactID := step.Link.Contact
		if contactID == "" {
			id, err := h.store.CreateContact(ctx, "Profile "+step.Link.Profile)
			if err != nil {
				return err
			}
			contactID = id
		}
		if err := h.store.Link(ctx, step.Link.Profile, contactID); err != nil {
			return err
		}
		h.logger.Debug("linked profile", "profile_id", step.Link.Profile, "contact_id", contactID)

	case step.SetField != nil:
		s := step.SetField
		if err := h.store.SetField(ctx, s.Profile, s.Key, s.Value); err != nil {
			return err
		}

	case step.Upsert != nil:
		if _, err := h.store.Upsert(ctx, step.Upsert.Type, step.Upsert.Fields.Clone()); err != nil {
			return err
		}

	case step.Delete != nil:
		if err := h.store.Delete(ctx, step.Delete.Type, step.Delete.ID); err != nil {
			return err
		}

	default:
		return fmt.Errorf("empty step")
	}
	return nil
}
