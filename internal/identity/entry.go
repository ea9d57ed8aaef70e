package identity

import "github.com/roach88/fieldsync/internal/fields"

// AddressInfo is the cached id and location type of an address record.
type AddressInfo struct {
	ID           string `json:"id"`
	LocationType string `json:"location_type,omitempty"`
}

// Entry is the cached state for one identity pair.
type Entry struct {
	ProfileID      string       `json:"profile_id"`
	ContactID      string       `json:"contact_id"`
	Primary        *AddressInfo `json:"primary,omitempty"`
	Billing        *AddressInfo `json:"billing,omitempty"`
	PrimaryPhoneID string       `json:"primary_phone_id,omitempty"`
}

// Address returns the cached address for a role, or nil.
// The shipping role is the contact's primary address.
func (e *Entry) Address(role fields.Role) *AddressInfo {
	if role == fields.RoleBilling {
		return e.Billing
	}
	return e.Primary
}

// UpdateAddressInfo records the address holding role.
func (e *Entry) UpdateAddressInfo(role fields.Role, id, locationType string) {
	info := &AddressInfo{ID: id, LocationType: locationType}
	if role == fields.RoleBilling {
		e.Billing = info
		return
	}
	e.Primary = info
}

// UpdatePhoneID records the primary phone.
func (e *Entry) UpdatePhoneID(id string) {
	e.PrimaryPhoneID = id
}

func (e *Entry) clone() *Entry {
	c := *e
	if e.Primary != nil {
		p := *e.Primary
		c.Primary = &p
	}
	if e.Billing != nil {
		b := *e.Billing
		c.Billing = &b
	}
	return &c
}
