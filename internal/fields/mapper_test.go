package fields

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldsync/internal/record"
)

type stubLookup struct {
	iso    map[string]string
	abbr   map[[2]string]string
	states map[string]map[string]string
	err    error
}

func (s *stubLookup) CountryISO(ctx context.Context, countryID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.iso[countryID], nil
}

func (s *stubLookup) StateAbbreviation(ctx context.Context, countryID, stateID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.abbr[[2]string{countryID, stateID}], nil
}

func (s *stubLookup) States(ctx context.Context, country string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.states[country], nil
}

func newStubLookup() *stubLookup {
	return &stubLookup{
		iso:  map[string]string{"1228": "US"},
		abbr: map[[2]string]string{{"1228", "1004"}: "CA"},
		states: map[string]map[string]string{
			"US": {"CA": "California", "NY": "New York"},
		},
	}
}

func TestStructuredAttribute_Table(t *testing.T) {
	tests := []struct {
		flat Attribute
		want string
	}{
		{AttrCountry, record.FieldCountryID},
		{AttrAddress1, record.FieldStreetAddress},
		{AttrAddress2, record.FieldSupplementalAddress1},
		{AttrCity, record.FieldCity},
		{AttrState, record.FieldStateProvinceID},
		{AttrPostcode, record.FieldPostalCode},
	}

	for _, tt := range tests {
		t.Run(string(tt.flat), func(t *testing.T) {
			got, ok := StructuredAttribute(tt.flat)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := StructuredAttribute("phone")
	assert.False(t, ok, "unmapped attribute must not resolve")
}

func TestAttributes_TableOrder(t *testing.T) {
	assert.Equal(t, []Attribute{
		AttrCountry, AttrAddress1, AttrAddress2, AttrCity, AttrState, AttrPostcode,
	}, Attributes())
}

func TestIsSyncKey(t *testing.T) {
	assert.True(t, IsSyncKey("billing_city"))
	assert.True(t, IsSyncKey("shipping_postcode"))
	assert.True(t, IsSyncKey("billing_phone"))
	assert.True(t, IsSyncKey("Billing_City"), "prefix test is case-insensitive")
	assert.False(t, IsSyncKey("last_update"))
	assert.False(t, IsSyncKey("first_name"))
	assert.False(t, IsSyncKey("billing"))
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key      string
		wantRole Role
		wantAttr Attribute
		wantOK   bool
	}{
		{"billing_address_1", RoleBilling, AttrAddress1, true},
		{"shipping_postcode", RoleShipping, AttrPostcode, true},
		{"SHIPPING_city", RoleShipping, AttrCity, true},
		{"billing_phone", "", "", false},
		{"billing_email", "", "", false},
		{"home_city", "", "", false},
		{"city", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			role, attr, ok := ParseKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRole, role)
			assert.Equal(t, tt.wantAttr, attr)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "shipping_address_2", Key(RoleShipping, AttrAddress2))
	assert.Equal(t, "billing_state", Key(RoleBilling, AttrState))
}

func TestRole_FlagField(t *testing.T) {
	assert.Equal(t, record.FieldIsBilling, RoleBilling.FlagField())
	assert.Equal(t, record.FieldIsPrimary, RoleShipping.FlagField())
}

func TestToStructuredValue_PassThrough(t *testing.T) {
	m := NewMapper(newStubLookup())

	got, err := m.ToStructuredValue(context.Background(), AttrCity, "Springfield", "")
	require.NoError(t, err)
	assert.Equal(t, "Springfield", got)
}

func TestToStructuredValue_NFC(t *testing.T) {
	m := NewMapper(newStubLookup())

	// "e" followed by a combining acute accent composes to a single rune.
	got, err := m.ToStructuredValue(context.Background(), AttrCity, "Montre\u0301al", "CA")
	require.NoError(t, err)
	assert.Equal(t, "Montr\u00e9al", got)
}

func TestToStructuredValue_StateResolvesFullName(t *testing.T) {
	m := NewMapper(newStubLookup())

	got, err := m.ToStructuredValue(context.Background(), AttrState, "CA", "US")
	require.NoError(t, err)
	assert.Equal(t, "California", got)
}

func TestToStructuredValue_EmptyStateClears(t *testing.T) {
	m := NewMapper(newStubLookup())

	got, err := m.ToStructuredValue(context.Background(), AttrState, "", "US")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestToStructuredValue_UnknownStateFailsFast(t *testing.T) {
	m := NewMapper(newStubLookup())

	_, err := m.ToStructuredValue(context.Background(), AttrState, "ZZ", "US")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownState)

	_, err = m.ToStructuredValue(context.Background(), AttrState, "CA", "")
	assert.ErrorIs(t, err, ErrUnknownState, "no country means no state list")
}

func TestToStructuredValue_LookupError(t *testing.T) {
	lookup := newStubLookup()
	lookup.err = errors.New("reference table offline")
	m := NewMapper(lookup)

	_, err := m.ToStructuredValue(context.Background(), AttrState, "CA", "US")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownState)
	assert.Contains(t, err.Error(), "reference table offline")
}

func TestFlatCountryAndState(t *testing.T) {
	m := NewMapper(newStubLookup())
	ctx := context.Background()

	iso, err := m.FlatCountry(ctx, "1228")
	require.NoError(t, err)
	assert.Equal(t, "US", iso)

	abbr, err := m.FlatState(ctx, "1228", "1004")
	require.NoError(t, err)
	assert.Equal(t, "CA", abbr)

	abbr, err = m.FlatState(ctx, "1228", "9999")
	require.NoError(t, err)
	assert.Equal(t, "", abbr)
}
