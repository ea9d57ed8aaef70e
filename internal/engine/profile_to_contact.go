package engine

import (
	"context"
	"errors"

	"github.com/roach88/fieldsync/internal/fields"
	"github.com/roach88/fieldsync/internal/guard"
	"github.com/roach88/fieldsync/internal/identity"
	"github.com/roach88/fieldsync/internal/record"
)

// OnFieldChanged syncs one profile field write to the contact side.
//
// Keys outside the billing_/shipping_ namespace, last_update, and keys
// with no mapped attribute are ignored. At most one upsert is issued.
func (e *Engine) OnFieldChanged(ctx context.Context, fc record.FieldChange) {
	if guard.Suppressed(ctx, guard.ProfileToContact) {
		return
	}
	if !fields.IsSyncKey(fc.Key) {
		return
	}

	logger := e.logger.With(
		"direction", guard.ProfileToContact.String(),
		"profile_id", fc.ProfileID,
		"key", fc.Key,
	)

	err := e.cache.Do(ctx, fc.ProfileID, func(entry *identity.Entry) error {
		if fc.Key == fields.PhoneKey {
			return e.syncPhone(ctx, entry, fc)
		}
		role, attr, ok := fields.ParseKey(fc.Key)
		if !ok {
			return nil
		}
		return e.syncAddress(ctx, entry, role, attr, fc)
	})

	switch {
	case err == nil:
	case errors.Is(err, identity.ErrNotLinked):
		logger.Debug("profile not linked to a contact")
	default:
		e.logFailure(logger, err)
	}
}

// syncPhone updates the cached primary phone or creates one.
func (e *Engine) syncPhone(ctx context.Context, entry *identity.Entry, fc record.FieldChange) error {
	req := record.Fields{
		record.FieldContactID: entry.ContactID,
		record.FieldPhone:     fc.Value,
	}

	create := entry.PrimaryPhoneID == ""
	if create {
		req[record.FieldPhoneType] = e.phoneType
		req[record.FieldLocationType] = e.phoneLocationType
	} else {
		req[record.FieldID] = entry.PrimaryPhoneID
	}

	result, err := e.upsert(ctx, record.TypePhone, req, fc.Key)
	if err != nil {
		return err
	}

	if create {
		entry.UpdatePhoneID(result[record.FieldID])
	}
	return nil
}

// syncAddress updates the address holding role or creates one.
func (e *Engine) syncAddress(ctx context.Context, entry *identity.Entry, role fields.Role, attr fields.Attribute, fc record.FieldChange) error {
	structured, ok := fields.StructuredAttribute(attr)
	if !ok {
		return nil
	}

	value, err := e.structuredValue(ctx, fc.ProfileID, role, attr, fc.Value)
	if err != nil {
		return err
	}

	req := record.Fields{
		record.FieldContactID: entry.ContactID,
		structured:            value,
		role.FlagField():      record.FlagOn,
	}

	cached := entry.Address(role)
	create := cached == nil || cached.ID == ""
	if create {
		req[record.FieldLocationType] = e.locationTypes[role]
	} else {
		req[record.FieldID] = cached.ID
		req[record.FieldLocationType] = cached.LocationType
		if cached.LocationType == "" {
			req[record.FieldLocationType] = e.locationTypes[role]
		}
	}

	result, err := e.upsert(ctx, record.TypeAddress, req, fc.Key)
	if err != nil {
		return err
	}

	if create {
		e.captureAddress(entry, result)
	}
	return nil
}

// structuredValue translates a flat value. State abbreviations are resolved
// within the country currently recorded for the same role.
func (e *Engine) structuredValue(ctx context.Context, profileID string, role fields.Role, attr fields.Attribute, value string) (string, error) {
	var country string
	if attr == fields.AttrState {
		countryKey := fields.Key(role, fields.AttrCountry)
		c, err := e.profiles.Field(ctx, profileID, countryKey)
		if err != nil {
			return "", newSyncError(CodeLookupFailed, "read "+countryKey, fields.Key(role, attr), err)
		}
		country = c
	}

	out, err := e.mapper.ToStructuredValue(ctx, attr, value, country)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, fields.ErrUnknownState):
		return "", newSyncError(CodeUnknownState, "map state", fields.Key(role, attr), err)
	default:
		return "", newSyncError(CodeLookupFailed, "map "+string(attr), fields.Key(role, attr), err)
	}
}

// captureAddress stores a newly created address in the cache slot its flags
// name. is_billing is checked first: the contact store promotes a contact's
// first address to primary, so a new billing address may carry both flags.
func (e *Engine) captureAddress(entry *identity.Entry, result record.Fields) {
	id := result[record.FieldID]
	locationType := result.Value(record.FieldLocationType)

	switch {
	case result.Flag(record.FieldIsBilling):
		entry.UpdateAddressInfo(fields.RoleBilling, id, locationType)
	case result.Flag(record.FieldIsPrimary):
		entry.UpdateAddressInfo(fields.RoleShipping, id, locationType)
	default:
		e.logger.Warn("created address has neither billing nor primary flag",
			"contact_id", entry.ContactID,
			"address_id", id,
		)
	}
}

// upsert writes to the contact store inside a ProfileToContact window.
func (e *Engine) upsert(ctx context.Context, t record.Type, req record.Fields, key string) (record.Fields, error) {
	var result record.Fields
	err := e.guard.Do(ctx, guard.ProfileToContact, func(ctx context.Context) error {
		var err error
		result, err = e.contacts.Upsert(ctx, t, req)
		return err
	})
	if err != nil {
		return nil, newSyncError(CodeUpsertFailed, "upsert "+string(t), key, err)
	}

	e.logger.Debug("contact record upserted",
		"type", string(t),
		"id", result[record.FieldID],
		"key", key,
	)
	return result, nil
}
