package record

import (
	"context"
	"sort"
)

// Type names a kind of structured record.
type Type string

const (
	TypeContact Type = "Contact"
	TypeAddress Type = "Address"
	TypePhone   Type = "Phone"
)

// Valid reports whether t is a known record type.
func (t Type) Valid() bool {
	switch t {
	case TypeContact, TypeAddress, TypePhone:
		return true
	}
	return false
}

// Operation is the kind of write a pre-commit notification announces.
type Operation string

const (
	OpCreate Operation = "create"
	OpEdit   Operation = "edit"
	OpDelete Operation = "delete"
)

// Structured attribute names. These are the contact system's API names.
const (
	FieldID                   = "id"
	FieldContactID            = "contact_id"
	FieldIsPrimary            = "is_primary"
	FieldIsBilling            = "is_billing"
	FieldLocationType         = "location_type_id"
	FieldStreetAddress        = "street_address"
	FieldSupplementalAddress1 = "supplemental_address_1"
	FieldCity                 = "city"
	FieldStateProvinceID      = "state_province_id"
	FieldPostalCode           = "postal_code"
	FieldCountryID            = "country_id"
	FieldPhone                = "phone"
	FieldPhoneType            = "phone_type_id"
	FieldDisplayName          = "display_name"
)

// Null is the literal the contact API uses for an explicitly empty value.
const Null = "null"

// Flag values.
const (
	FlagOn  = "1"
	FlagOff = "0"
)

// Fields is a record payload.
//
// A key that is absent, empty, or set to Null is "not present".
type Fields map[string]string

// Has reports whether key holds a usable value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != "" && v != Null
}

// Value returns the value for key, or "" when the key is not present.
func (f Fields) Value(key string) string {
	if !f.Has(key) {
		return ""
	}
	return f[key]
}

// Flag reports whether key holds a true flag ("1" or "true").
func (f Fields) Flag(key string) bool {
	switch f[key] {
	case FlagOn, "true":
		return true
	}
	return false
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Change is a pre-commit notification from the contact store.
//
// ID is empty for creates. For edits and creates Payload holds the record as
// it will be committed; for deletes it may be empty and listeners are
// expected to read the persisted record by ID.
type Change struct {
	Op      Operation
	Type    Type
	ID      string
	Payload Fields
}

// FieldChange is a notification that a profile field was set.
type FieldChange struct {
	ProfileID string
	Key       string
	Value     string
}

// ChangeListener receives contact store notifications.
type ChangeListener func(ctx context.Context, c Change)

// FieldListener receives profile store notifications.
type FieldListener func(ctx context.Context, c FieldChange)
