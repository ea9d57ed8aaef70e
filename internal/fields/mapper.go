package fields

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fieldsync/internal/record"
)

// Role is the flat-side address role.
type Role string

const (
	RoleBilling  Role = "billing"
	RoleShipping Role = "shipping"
)

// FlagField returns the structured flag that marks a record as holding this role.
func (r Role) FlagField() string {
	if r == RoleBilling {
		return record.FieldIsBilling
	}
	return record.FieldIsPrimary
}

// Attribute is the flat-side attribute part of a key.
type Attribute string

const (
	AttrCountry  Attribute = "country"
	AttrAddress1 Attribute = "address_1"
	AttrAddress2 Attribute = "address_2"
	AttrCity     Attribute = "city"
	AttrState    Attribute = "state"
	AttrPostcode Attribute = "postcode"
)

// Keys with special handling.
const (
	PhoneKey   = "billing_phone"
	IgnoredKey = "last_update"
)

// ErrUnknownState is returned when a state abbreviation is not in the
// state list of the role's country.
var ErrUnknownState = errors.New("unknown state abbreviation")

type mapping struct {
	flat       Attribute
	structured string
}

// Table order is the writeback order.
var table = []mapping{
	{AttrCountry, record.FieldCountryID},
	{AttrAddress1, record.FieldStreetAddress},
	{AttrAddress2, record.FieldSupplementalAddress1},
	{AttrCity, record.FieldCity},
	{AttrState, record.FieldStateProvinceID},
	{AttrPostcode, record.FieldPostalCode},
}

// Attributes returns the mapped flat attributes in table order.
func Attributes() []Attribute {
	out := make([]Attribute, len(table))
	for i, m := range table {
		out[i] = m.flat
	}
	return out
}

// StructuredAttribute returns the contact attribute for a flat attribute.
// Unknown attributes report false and must not be synced.
func StructuredAttribute(attr Attribute) (string, bool) {
	for _, m := range table {
		if m.flat == attr {
			return m.structured, true
		}
	}
	return "", false
}

// IsSyncKey reports whether a profile field key belongs to the synced set.
// It is a cheap prefix filter; ParseKey does the full check.
func IsSyncKey(key string) bool {
	k := fold(key)
	if k == IgnoredKey {
		return false
	}
	return strings.HasPrefix(k, string(RoleBilling)+"_") || strings.HasPrefix(k, string(RoleShipping)+"_")
}

// ParseKey splits a flat key into role and attribute.
//
// The role is matched case-insensitively. It reports false for unknown roles
// and for attributes outside the mapping table.
func ParseKey(key string) (Role, Attribute, bool) {
	prefix, rest, found := strings.Cut(key, "_")
	if !found {
		return "", "", false
	}

	role := Role(fold(prefix))
	if role != RoleBilling && role != RoleShipping {
		return "", "", false
	}

	attr := Attribute(rest)
	if _, ok := StructuredAttribute(attr); !ok {
		return "", "", false
	}
	return role, attr, true
}

// Key builds the flat key for a role and attribute.
func Key(role Role, attr Attribute) string {
	return string(role) + "_" + string(attr)
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Lookup is the reference data the mapper translates against.
type Lookup interface {
	// CountryISO returns the ISO code for a country identifier.
	CountryISO(ctx context.Context, countryID string) (string, error)

	// StateAbbreviation returns the abbreviation for a state of a country.
	// An unknown pair yields "" and a nil error.
	StateAbbreviation(ctx context.Context, countryID, stateID string) (string, error)

	// States returns abbreviation -> full name for a country given by ISO
	// code or name. A country without a state list yields an empty map.
	States(ctx context.Context, country string) (map[string]string, error)
}

// Mapper performs value translation against a Lookup.
type Mapper struct {
	lookup Lookup
}

// NewMapper creates a Mapper.
func NewMapper(lookup Lookup) *Mapper {
	return &Mapper{lookup: lookup}
}

// ToStructuredValue translates a flat value for writing to the contact store.
//
// For AttrState the abbreviation is resolved to the full state name within
// country. An empty state clears the field. An abbreviation missing from the
// country's list fails with ErrUnknownState rather than writing a guess.
func (m *Mapper) ToStructuredValue(ctx context.Context, attr Attribute, value, country string) (string, error) {
	value = norm.NFC.String(value)
	if attr != AttrState || value == "" {
		return value, nil
	}

	states, err := m.lookup.States(ctx, country)
	if err != nil {
		return "", fmt.Errorf("states for country %q: %w", country, err)
	}
	name, ok := states[value]
	if !ok {
		return "", fmt.Errorf("%w: %q in country %q", ErrUnknownState, value, country)
	}
	return norm.NFC.String(name), nil
}

// FlatCountry returns the flat value for a structured country identifier.
func (m *Mapper) FlatCountry(ctx context.Context, countryID string) (string, error) {
	iso, err := m.lookup.CountryISO(ctx, countryID)
	if err != nil {
		return "", fmt.Errorf("country %s: %w", countryID, err)
	}
	return iso, nil
}

// FlatState returns the flat value for a structured state identifier.
func (m *Mapper) FlatState(ctx context.Context, countryID, stateID string) (string, error) {
	abbr, err := m.lookup.StateAbbreviation(ctx, countryID, stateID)
	if err != nil {
		return "", fmt.Errorf("state %s/%s: %w", countryID, stateID, err)
	}
	return abbr, nil
}
