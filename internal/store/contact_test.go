package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/record"
)

func TestUpsert_CreateAddress(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	rec, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID:     contactID,
		record.FieldStreetAddress: "1 Main St",
		record.FieldIsBilling:     "1",
		record.FieldLocationType:  "Billing",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec[record.FieldID])
	assert.Equal(t, contactID, rec[record.FieldContactID])
	assert.Equal(t, "1 Main St", rec[record.FieldStreetAddress])
	assert.Equal(t, "1", rec[record.FieldIsBilling])
	assert.Equal(t, "Billing", rec[record.FieldLocationType])
	assert.Equal(t, "", rec[record.FieldCountryID])
	assert.Equal(t, "", rec[record.FieldStateProvinceID])
}

func TestUpsert_FirstRecordPromotedToPrimary(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID: contactID,
		record.FieldIsBilling: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", first[record.FieldIsPrimary])

	second, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID: contactID,
		record.FieldCity:      "Portland",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", second[record.FieldIsPrimary])
}

func TestUpsert_FlagClearsOtherRecords(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID: contactID,
		record.FieldIsBilling: "1",
	})
	require.NoError(t, err)

	second, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID: contactID,
		record.FieldIsPrimary: "1",
		record.FieldIsBilling: "1",
	})
	require.NoError(t, err)

	reloaded, err := s.Get(ctx, record.TypeAddress, first[record.FieldID])
	require.NoError(t, err)
	assert.Equal(t, "0", reloaded[record.FieldIsPrimary])
	assert.Equal(t, "0", reloaded[record.FieldIsBilling])

	billing, err := s.Query(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID: contactID,
		record.FieldIsBilling: "1",
	})
	require.NoError(t, err)
	require.Len(t, billing, 1)
	assert.Equal(t, second[record.FieldID], billing[0][record.FieldID])
}

func TestUpsert_EditMergesIntoExisting(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	created, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID:     contactID,
		record.FieldStreetAddress: "1 Main St",
		record.FieldCity:          "Portland",
	})
	require.NoError(t, err)

	edited, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldID:   created[record.FieldID],
		record.FieldCity: "Salem",
	})
	require.NoError(t, err)

	assert.Equal(t, created[record.FieldID], edited[record.FieldID])
	assert.Equal(t, "1 Main St", edited[record.FieldStreetAddress])
	assert.Equal(t, "Salem", edited[record.FieldCity])

	all, err := s.Records(ctx, record.TypeAddress, contactID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_NullClearsValue(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	created, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID:     contactID,
		record.FieldCity:          "Portland",
		record.FieldStreetAddress: record.Null,
	})
	require.NoError(t, err)
	assert.Equal(t, "", created[record.FieldStreetAddress])

	edited, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldID:   created[record.FieldID],
		record.FieldCity: record.Null,
	})
	require.NoError(t, err)
	assert.Equal(t, "", edited[record.FieldCity])
}

func TestUpsert_CountryByISOAndStateByName(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	rec, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID:       contactID,
		record.FieldCountryID:       "us",
		record.FieldStateProvinceID: "Oregon",
	})
	require.NoError(t, err)
	assert.Equal(t, "1228", rec[record.FieldCountryID])
	assert.Equal(t, "1036", rec[record.FieldStateProvinceID])

	// Name lookups are scoped to the record's country.
	_, err = s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldID:              rec[record.FieldID],
		record.FieldStateProvinceID: "Ontario",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsert_StateNameWithoutCountry(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	rec, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID:       contactID,
		record.FieldStateProvinceID: "Quebec",
	})
	require.NoError(t, err)
	assert.Equal(t, "1110", rec[record.FieldStateProvinceID])
}

func TestUpsert_Rejects(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		typ  record.Type
		req  record.Fields
	}{
		{"missing contact", record.TypeAddress, record.Fields{record.FieldCity: "x"}},
		{"unknown contact", record.TypeAddress, record.Fields{record.FieldContactID: "999"}},
		{"unknown field", record.TypeAddress, record.Fields{record.FieldContactID: contactID, "planet": "Mars"}},
		{"unknown country", record.TypeAddress, record.Fields{record.FieldContactID: contactID, record.FieldCountryID: "ZZ"}},
		{"unknown state", record.TypeAddress, record.Fields{record.FieldContactID: contactID, record.FieldCountryID: "US", record.FieldStateProvinceID: "Atlantis"}},
		{"unknown id", record.TypeAddress, record.Fields{record.FieldID: "999", record.FieldCity: "x"}},
		{"contact type", record.TypeContact, record.Fields{record.FieldDisplayName: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upsert(ctx, tt.typ, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestUpsert_NotifiesBeforeWrite(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	created, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldContactID: contactID,
		record.FieldCity:      "Portland",
	})
	require.NoError(t, err)

	rec := &changeRecorder{store: s}
	unsubscribe := s.SubscribeChanges(rec.listen)
	defer unsubscribe()

	_, err = s.Upsert(ctx, record.TypeAddress, record.Fields{
		record.FieldID:   created[record.FieldID],
		record.FieldCity: "Salem",
	})
	require.NoError(t, err)

	require.Len(t, rec.changes, 1)
	c := rec.changes[0]
	assert.Equal(t, record.OpEdit, c.Op)
	assert.Equal(t, record.TypeAddress, c.Type)
	assert.Equal(t, created[record.FieldID], c.ID)
	assert.Equal(t, "Salem", c.Payload[record.FieldCity])
	assert.Equal(t, contactID, c.Payload[record.FieldContactID])

	// The listener ran before the row changed.
	require.Len(t, rec.persisted, 1)
	assert.Equal(t, "Portland", rec.persisted[0][record.FieldCity])
}

func TestUpsert_CreateNotificationHasNoID(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	rec := &changeRecorder{}
	defer s.SubscribeChanges(rec.listen)()

	_, err := s.Upsert(ctx, record.TypePhone, record.Fields{
		record.FieldContactID: contactID,
		record.FieldPhone:     "555-0100",
	})
	require.NoError(t, err)

	require.Len(t, rec.changes, 1)
	assert.Equal(t, record.OpCreate, rec.changes[0].Op)
	assert.Empty(t, rec.changes[0].ID)
	assert.Equal(t, "1", rec.changes[0].Payload[record.FieldIsPrimary])
}

func TestDelete_NotifiesWhileRecordExists(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	phone, err := s.Upsert(ctx, record.TypePhone, record.Fields{
		record.FieldContactID: contactID,
		record.FieldPhone:     "555-0100",
	})
	require.NoError(t, err)

	rec := &changeRecorder{store: s}
	defer s.SubscribeChanges(rec.listen)()

	require.NoError(t, s.Delete(ctx, record.TypePhone, phone[record.FieldID]))

	require.Len(t, rec.changes, 1)
	assert.Equal(t, record.OpDelete, rec.changes[0].Op)
	require.Len(t, rec.persisted, 1)
	assert.Equal(t, "555-0100", rec.persisted[0][record.FieldPhone])

	_, err = s.Get(ctx, record.TypePhone, phone[record.FieldID])
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDelete_UnknownRecord(t *testing.T) {
	s, _ := createSeededStore(t)

	err := s.Delete(context.Background(), record.TypeAddress, "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_OrderedByID(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	for _, city := range []string{"A", "B", "C"} {
		_, err := s.Upsert(ctx, record.TypeAddress, record.Fields{
			record.FieldContactID: contactID,
			record.FieldCity:      city,
		})
		require.NoError(t, err)
	}

	recs, err := s.Query(ctx, record.TypeAddress, record.Fields{record.FieldContactID: contactID})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "A", recs[0][record.FieldCity])
	assert.Equal(t, "C", recs[2][record.FieldCity])

	_, err = s.Query(ctx, record.TypeAddress, record.Fields{"planet": "Mars"})
	assert.Error(t, err)
}

func TestSubscribeChanges_Unsubscribe(t *testing.T) {
	s, contactID := createSeededStore(t)
	ctx := context.Background()

	rec := &changeRecorder{}
	unsubscribe := s.SubscribeChanges(rec.listen)
	unsubscribe()
	unsubscribe()

	_, err := s.Upsert(ctx, record.TypePhone, record.Fields{
		record.FieldContactID: contactID,
		record.FieldPhone:     "555-0100",
	})
	require.NoError(t, err)
	assert.Empty(t, rec.changes)
	assert.Equal(t, 0, s.changeListeners.len())
}
