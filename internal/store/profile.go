package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/fieldsync/internal/record"
)

// Field returns one flat field of a profile. A field that was never written
// reads as "".
func (s *Store) Field(ctx context.Context, profileID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM profile_fields WHERE profile_id = ? AND key = ?`,
		profileID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read field %s/%s: %w", profileID, key, err)
	}
	return value, nil
}

// SetField writes one flat field of a profile and then notifies field
// listeners. Every successful write notifies, including writes that do not
// change the stored value.
func (s *Store) SetField(ctx context.Context, profileID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_fields (profile_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(profile_id, key) DO UPDATE SET value = excluded.value
	`, profileID, key, value)
	if err != nil {
		return fmt.Errorf("write field %s/%s: %w", profileID, key, err)
	}

	s.notifyField(ctx, record.FieldChange{ProfileID: profileID, Key: key, Value: value})
	return nil
}

// Fields returns every flat field of a profile.
func (s *Store) Fields(ctx context.Context, profileID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM profile_fields WHERE profile_id = ? ORDER BY key`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("read fields %s: %w", profileID, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
