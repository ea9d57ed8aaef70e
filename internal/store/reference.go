package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/fieldsync/internal/refdata"
)

// SeedReference loads countries and states, updating rows that already exist.
func (s *Store) SeedReference(ctx context.Context, ds *refdata.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, c := range ds.Countries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO countries (id, iso_code, name) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET iso_code = excluded.iso_code, name = excluded.name
		`, c.ID, c.ISOCode, c.Name)
		if err != nil {
			return fmt.Errorf("seed country %s: %w", c.ISOCode, err)
		}
		for _, st := range c.States {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO states (id, country_id, abbreviation, name) VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					country_id = excluded.country_id,
					abbreviation = excluded.abbreviation,
					name = excluded.name
			`, st.ID, c.ID, st.Abbreviation, st.Name)
			if err != nil {
				return fmt.Errorf("seed state %s/%s: %w", c.ISOCode, st.Abbreviation, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// CountryISO returns the ISO code of a country id.
func (s *Store) CountryISO(ctx context.Context, countryID string) (string, error) {
	var iso string
	err := s.db.QueryRowContext(ctx,
		`SELECT iso_code FROM countries WHERE id = ?`, countryID).Scan(&iso)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("country %s: %w", countryID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("country %s: %w", countryID, err)
	}
	return iso, nil
}

// StateAbbreviation returns the abbreviation of a state id, or "" when the
// state is unknown. countryID narrows the match when non-empty.
func (s *Store) StateAbbreviation(ctx context.Context, countryID, stateID string) (string, error) {
	if stateID == "" {
		return "", nil
	}
	query := `SELECT abbreviation FROM states WHERE id = ?`
	args := []any{stateID}
	if countryID != "" {
		query += ` AND country_id = ?`
		args = append(args, countryID)
	}

	var abbr string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&abbr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("state %s: %w", stateID, err)
	}
	return abbr, nil
}

// States returns abbreviation to name for a country ISO code. An unknown or
// empty country yields an empty map.
func (s *Store) States(ctx context.Context, country string) (map[string]string, error) {
	out := make(map[string]string)
	if country == "" {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.abbreviation, s.name
		FROM states s JOIN countries c ON c.id = s.country_id
		WHERE c.iso_code = ?
	`, strings.ToUpper(country))
	if err != nil {
		return nil, fmt.Errorf("states of %s: %w", country, err)
	}
	defer rows.Close()

	for rows.Next() {
		var abbr, name string
		if err := rows.Scan(&abbr, &name); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out[abbr] = name
	}
	return out, rows.Err()
}
