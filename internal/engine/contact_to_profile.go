package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/fieldsync/internal/fields"
	"github.com/roach88/fieldsync/internal/guard"
	"github.com/roach88/fieldsync/internal/record"
)

// OnRecordChanged syncs a contact-side pre-commit notification back to the
// owning profile's flat fields.
func (e *Engine) OnRecordChanged(ctx context.Context, c record.Change) {
	if guard.Suppressed(ctx, guard.ContactToProfile) {
		return
	}

	logger := e.logger.With(
		"direction", guard.ContactToProfile.String(),
		"op", string(c.Op),
		"type", string(c.Type),
		"record_id", c.ID,
	)

	switch c.Type {
	case record.TypePhone:
		e.phoneChanged(ctx, logger, c)
	case record.TypeAddress:
		e.addressChanged(ctx, logger, c)
	}
}

// phoneChanged writes billing_phone from a primary phone.
func (e *Engine) phoneChanged(ctx context.Context, logger *slog.Logger, c record.Change) {
	payload := c.Payload.Clone()
	deletion := false

	switch c.Op {
	case record.OpDelete:
		persisted, err := e.contacts.Get(ctx, record.TypePhone, c.ID)
		if err != nil {
			e.logFailure(logger, newSyncError(CodeLookupFailed, "get Phone", "", err))
			return
		}
		if !persisted.Flag(record.FieldIsPrimary) {
			return
		}
		payload[record.FieldContactID] = persisted[record.FieldContactID]
		deletion = true

	case record.OpCreate, record.OpEdit:
		if !payload.Has(record.FieldContactID) || !payload.Flag(record.FieldIsPrimary) {
			return
		}

	default:
		return
	}

	profileID, ok := e.profileFor(ctx, logger, payload.Value(record.FieldContactID))
	if !ok {
		return
	}

	value := ""
	if !deletion {
		value = payload.Value(record.FieldPhone)
	}

	logger = logger.With("profile_id", profileID)
	err := e.guard.Do(ctx, guard.ContactToProfile, func(ctx context.Context) error {
		return e.setField(ctx, profileID, fields.PhoneKey, value)
	})
	if err != nil {
		e.logFailure(logger, err)
	}
	e.evict(ctx, logger, profileID)
}

// addressChanged writes the flat fields of every role the address holds.
func (e *Engine) addressChanged(ctx context.Context, logger *slog.Logger, c record.Change) {
	payload := c.Payload.Clone()
	deletion := false

	switch c.Op {
	case record.OpDelete:
		persisted, err := e.contacts.Get(ctx, record.TypeAddress, c.ID)
		if err != nil {
			e.logFailure(logger, newSyncError(CodeLookupFailed, "get Address", "", err))
			return
		}
		for _, flag := range []string{record.FieldIsPrimary, record.FieldIsBilling} {
			if persisted.Flag(flag) {
				payload[flag] = record.FlagOn
				payload[record.FieldContactID] = persisted[record.FieldContactID]
				deletion = true
			}
		}
		if !deletion {
			return
		}

	case record.OpCreate, record.OpEdit:
		if !payload.Has(record.FieldContactID) {
			return
		}
		if !payload.Flag(record.FieldIsPrimary) && !payload.Flag(record.FieldIsBilling) {
			return
		}

	default:
		return
	}

	profileID, ok := e.profileFor(ctx, logger, payload.Value(record.FieldContactID))
	if !ok {
		return
	}

	logger = logger.With("profile_id", profileID)
	err := e.guard.Do(ctx, guard.ContactToProfile, func(ctx context.Context) error {
		if payload.Flag(record.FieldIsPrimary) {
			e.writeBack(ctx, logger, profileID, fields.RoleShipping, payload, deletion)
		}
		if payload.Flag(record.FieldIsBilling) {
			e.writeBack(ctx, logger, profileID, fields.RoleBilling, payload, deletion)
		}
		return nil
	})
	if err != nil {
		e.logFailure(logger, err)
	}
	e.evict(ctx, logger, profileID)
}

// writeBack writes each mapped attribute of payload to {role}_{attribute}.
// A failure on one attribute is logged and the rest are still written.
func (e *Engine) writeBack(ctx context.Context, logger *slog.Logger, profileID string, role fields.Role, payload record.Fields, deletion bool) {
	for _, attr := range fields.Attributes() {
		structured, _ := fields.StructuredAttribute(attr)
		key := fields.Key(role, attr)

		value, skip, err := e.flatValue(ctx, attr, structured, payload, deletion)
		if err != nil {
			e.logFailure(logger, newSyncError(CodeLookupFailed, "map "+structured, key, err))
			continue
		}
		if skip {
			continue
		}
		if err := e.setField(ctx, profileID, key, value); err != nil {
			e.logFailure(logger, err)
		}
	}
}

// flatValue returns the flat value for one attribute. skip is true when the
// attribute cannot be written, which is a state without a country.
func (e *Engine) flatValue(ctx context.Context, attr fields.Attribute, structured string, payload record.Fields, deletion bool) (value string, skip bool, err error) {
	if deletion {
		return "", false, nil
	}

	switch {
	case attr == fields.AttrState && payload.Has(structured):
		if !payload.Has(record.FieldCountryID) {
			return "", true, nil
		}
		v, err := e.mapper.FlatState(ctx, payload[record.FieldCountryID], payload[structured])
		return v, false, err

	case attr == fields.AttrCountry && payload.Has(structured):
		v, err := e.mapper.FlatCountry(ctx, payload[structured])
		return v, false, err
	}

	return payload.Value(structured), false, nil
}

// profileFor resolves the profile owning a contact. Unlinked contacts and
// resolver failures both end the sync; only failures are logged.
func (e *Engine) profileFor(ctx context.Context, logger *slog.Logger, contactID string) (string, bool) {
	profileID, ok, err := e.resolver.ProfileForContact(ctx, contactID)
	if err != nil {
		e.logFailure(logger, newSyncError(CodeResolveFailed, "resolve profile", "", err))
		return "", false
	}
	if !ok || profileID == "" {
		logger.Debug("contact not linked to a profile", "contact_id", contactID)
		return "", false
	}
	return profileID, true
}

func (e *Engine) setField(ctx context.Context, profileID, key, value string) error {
	if err := e.profiles.SetField(ctx, profileID, key, value); err != nil {
		return newSyncError(CodeWriteFailed, "set field", key, err)
	}
	return nil
}

// evict drops the profile's identity entry; the contact side may have moved
// its primary or billing records.
func (e *Engine) evict(ctx context.Context, logger *slog.Logger, profileID string) {
	if err := e.cache.Invalidate(ctx, profileID); err != nil {
		logger.Warn("identity cache eviction failed", "error", err)
	}
}
