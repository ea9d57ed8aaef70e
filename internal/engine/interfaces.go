package engine

import (
	"context"

	"github.com/roach88/fieldsync/internal/fields"
	"github.com/roach88/fieldsync/internal/record"
)

// ProfileFieldStore holds flat profile fields.
type ProfileFieldStore interface {
	Field(ctx context.Context, profileID, key string) (string, error)
	SetField(ctx context.Context, profileID, key, value string) error

	// SubscribeFields registers l for field writes and returns a function
	// that removes it. Notifications carry the writer's context.
	SubscribeFields(l record.FieldListener) func()
}

// ContactRecordStore holds structured contact records.
type ContactRecordStore interface {
	Query(ctx context.Context, t record.Type, filter record.Fields) ([]record.Fields, error)
	Upsert(ctx context.Context, t record.Type, req record.Fields) (record.Fields, error)
	Get(ctx context.Context, t record.Type, id string) (record.Fields, error)

	// SubscribeChanges registers l for pre-commit notifications and returns
	// a function that removes it. Notifications carry the writer's context.
	SubscribeChanges(l record.ChangeListener) func()
}

// IdentityResolver maps between profile and contact identities.
type IdentityResolver interface {
	ContactForProfile(ctx context.Context, profileID string) (contactID string, ok bool, err error)
	ProfileForContact(ctx context.Context, contactID string) (profileID string, ok bool, err error)
}

// ReferenceLookup translates country and state identifiers.
type ReferenceLookup = fields.Lookup
