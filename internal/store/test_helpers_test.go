package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/record"
	"github.com/roach88/fieldsync/internal/refdata"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore creates a store with the default reference data and one
// contact, returning the contact id.
func createSeededStore(t *testing.T) (*Store, string) {
	t.Helper()
	s := createTestStore(t)
	ctx := context.Background()

	ds, err := refdata.Default()
	require.NoError(t, err)
	require.NoError(t, s.SeedReference(ctx, ds))

	contactID, err := s.CreateContact(ctx, "Test Contact")
	require.NoError(t, err)
	return s, contactID
}

// changeRecorder collects change notifications.
type changeRecorder struct {
	changes []record.Change
	// persisted holds what Get returned for the record at notification time.
	persisted []record.Fields
	store     *Store
}

func (r *changeRecorder) listen(ctx context.Context, c record.Change) {
	r.changes = append(r.changes, c)
	if r.store != nil && c.ID != "" {
		rec, _ := r.store.Get(ctx, c.Type, c.ID)
		r.persisted = append(r.persisted, rec)
	}
}
