package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// CreateContact inserts a contact and returns its id.
func (s *Store) CreateContact(ctx context.Context, displayName string) (string, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (display_name) VALUES (?)`, displayName)
	if err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) contactExists(ctx context.Context, contactID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE id = ?`, contactID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check contact %s: %w", contactID, err)
	}
	return n > 0, nil
}

// Link associates a profile with a contact, replacing any earlier link of
// that profile. A contact belongs to one profile, so a link held by another
// profile is taken over.
func (s *Store) Link(ctx context.Context, profileID, contactID string) error {
	ok, err := s.contactExists(ctx, contactID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("link %s to contact %s: %w", profileID, contactID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM identity_links WHERE contact_id = ? AND profile_id <> ?`,
		contactID, profileID); err != nil {
		return fmt.Errorf("link %s to contact %s: %w", profileID, contactID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO identity_links (profile_id, contact_id)
		VALUES (?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET contact_id = excluded.contact_id
	`, profileID, contactID); err != nil {
		return fmt.Errorf("link %s to contact %s: %w", profileID, contactID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("link %s to contact %s: %w", profileID, contactID, err)
	}
	return nil
}

// ContactForProfile returns the contact linked to a profile.
func (s *Store) ContactForProfile(ctx context.Context, profileID string) (string, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT contact_id FROM identity_links WHERE profile_id = ?`, profileID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve contact for %s: %w", profileID, err)
	}
	return strconv.FormatInt(id, 10), true, nil
}

// ProfileForContact returns the profile linked to a contact.
func (s *Store) ProfileForContact(ctx context.Context, contactID string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_id FROM identity_links WHERE contact_id = ?`, contactID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve profile for %s: %w", contactID, err)
	}
	return id, true, nil
}
