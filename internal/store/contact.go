package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fieldsync/internal/record"
)

// table describes how one record type maps onto SQL.
type table struct {
	name     string
	columns  []string // excluding id
	flags    []string
	nullable map[string]bool
}

var tables = map[record.Type]table{
	record.TypeAddress: {
		name: "addresses",
		columns: []string{
			record.FieldContactID,
			record.FieldLocationType,
			record.FieldIsPrimary,
			record.FieldIsBilling,
			record.FieldStreetAddress,
			record.FieldSupplementalAddress1,
			record.FieldCity,
			record.FieldStateProvinceID,
			record.FieldPostalCode,
			record.FieldCountryID,
		},
		flags: []string{record.FieldIsPrimary, record.FieldIsBilling},
		nullable: map[string]bool{
			record.FieldStateProvinceID: true,
			record.FieldCountryID:       true,
		},
	},
	record.TypePhone: {
		name: "phones",
		columns: []string{
			record.FieldContactID,
			record.FieldLocationType,
			record.FieldPhoneType,
			record.FieldPhone,
			record.FieldIsPrimary,
		},
		flags: []string{record.FieldIsPrimary},
	},
}

func tableFor(t record.Type) (table, error) {
	tbl, ok := tables[t]
	if !ok {
		return table{}, fmt.Errorf("record type %q is not stored as records", t)
	}
	return tbl, nil
}

func (tbl table) hasColumn(name string) bool {
	if name == record.FieldID {
		return true
	}
	for _, c := range tbl.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (tbl table) isFlag(name string) bool {
	for _, f := range tbl.flags {
		if f == name {
			return true
		}
	}
	return false
}

// blank is a new record before the request is applied.
func (tbl table) blank() record.Fields {
	out := make(record.Fields, len(tbl.columns))
	for _, c := range tbl.columns {
		out[c] = ""
	}
	for _, f := range tbl.flags {
		out[f] = record.FlagOff
	}
	return out
}

func (tbl table) selectList() string {
	return record.FieldID + ", " + strings.Join(tbl.columns, ", ")
}

// Get returns the persisted record.
func (s *Store) Get(ctx context.Context, t record.Type, id string) (record.Fields, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, tbl.selectList(), tbl.name), id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	recs, err := scanRecords(rows, tbl)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s %s: %w", t, id, ErrNotFound)
	}
	return recs[0], nil
}

// Query returns records whose columns equal every filter value, ordered by id.
func (s *Store) Query(ctx context.Context, t record.Type, filter record.Fields) ([]record.Fields, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, tbl.selectList(), tbl.name)
	var (
		where []string
		args  []any
	)
	for _, k := range filter.Keys() {
		if !tbl.hasColumn(k) {
			return nil, fmt.Errorf("query %s: unknown field %q", t, k)
		}
		v := filter[k]
		if tbl.isFlag(k) {
			v = flagValue(filter, k)
		}
		where = append(where, k+" = ?")
		args = append(args, v)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t, err)
	}
	recs, err := scanRecords(rows, tbl)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t, err)
	}
	return recs, nil
}

// Upsert creates a record when req carries no id and otherwise merges req
// into the existing record. Change listeners see the merged record before it
// is written. The persisted record is returned.
func (s *Store) Upsert(ctx context.Context, t record.Type, req record.Fields) (record.Fields, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	op := record.OpCreate
	merged := tbl.blank()
	if id := req.Value(record.FieldID); id != "" {
		existing, err := s.Get(ctx, t, id)
		if err != nil {
			return nil, err
		}
		op = record.OpEdit
		merged = existing
	}

	for _, k := range req.Keys() {
		if k == record.FieldID {
			continue
		}
		if !tbl.hasColumn(k) {
			return nil, fmt.Errorf("upsert %s: unknown field %q", t, k)
		}
		if tbl.isFlag(k) {
			merged[k] = req[k]
			continue
		}
		merged[k] = req.Value(k)
	}

	if err := s.normalize(ctx, tbl, merged); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", t, err)
	}

	if op == record.OpCreate {
		hasPrimary, err := s.hasPrimary(ctx, tbl, merged[record.FieldContactID])
		if err != nil {
			return nil, err
		}
		if !hasPrimary {
			merged[record.FieldIsPrimary] = record.FlagOn
		}
	}

	s.notifyChange(ctx, record.Change{Op: op, Type: t, ID: merged[record.FieldID], Payload: merged})

	id, err := s.persist(ctx, tbl, merged)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", t, err)
	}
	return s.Get(ctx, t, id)
}

// Delete removes a record. Change listeners are notified while the record
// still exists.
func (s *Store) Delete(ctx context.Context, t record.Type, id string) error {
	tbl, err := tableFor(t)
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, t, id); err != nil {
		return err
	}

	s.notifyChange(ctx, record.Change{
		Op:      record.OpDelete,
		Type:    t,
		ID:      id,
		Payload: record.Fields{record.FieldID: id},
	})

	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tbl.name), id); err != nil {
		return fmt.Errorf("delete %s %s: %w", t, id, err)
	}
	return nil
}

// normalize validates the merged record and rewrites values into their
// stored form.
func (s *Store) normalize(ctx context.Context, tbl table, rec record.Fields) error {
	for _, f := range tbl.flags {
		rec[f] = flagValue(rec, f)
	}

	contactID := rec.Value(record.FieldContactID)
	if contactID == "" {
		return errors.New("contact_id is required")
	}
	ok, err := s.contactExists(ctx, contactID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
	}

	if !tbl.nullable[record.FieldCountryID] {
		return nil
	}

	country, err := s.resolveCountry(ctx, rec.Value(record.FieldCountryID))
	if err != nil {
		return err
	}
	rec[record.FieldCountryID] = country

	state, err := s.resolveState(ctx, country, rec.Value(record.FieldStateProvinceID))
	if err != nil {
		return err
	}
	rec[record.FieldStateProvinceID] = state
	return nil
}

// resolveCountry accepts a country id or ISO code.
func (s *Store) resolveCountry(ctx context.Context, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	query := `SELECT id FROM countries WHERE iso_code = ?`
	arg := any(strings.ToUpper(value))
	if isNumeric(value) {
		query = `SELECT id FROM countries WHERE id = ?`
		arg = value
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("country %q: %w", value, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve country %q: %w", value, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// resolveState accepts a state id or the exact state name. Names are matched
// within the country when one is set, otherwise they must be unambiguous.
func (s *Store) resolveState(ctx context.Context, countryID, value string) (string, error) {
	if value == "" {
		return "", nil
	}

	var (
		query string
		args  []any
	)
	switch {
	case isNumeric(value):
		query, args = `SELECT id FROM states WHERE id = ?`, []any{value}
	case countryID != "":
		query, args = `SELECT id FROM states WHERE country_id = ? AND name = ?`, []any{countryID, value}
	default:
		query, args = `SELECT id FROM states WHERE name = ?`, []any{value}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("resolve state %q: %w", value, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan state: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("state %q: %w", value, ErrNotFound)
	case 1:
		return strconv.FormatInt(ids[0], 10), nil
	default:
		return "", fmt.Errorf("state %q is ambiguous without a country", value)
	}
}

func (s *Store) hasPrimary(ctx context.Context, tbl table, contactID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE contact_id = ? AND is_primary = 1`, tbl.name),
		contactID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check primary of %s: %w", contactID, err)
	}
	return n > 0, nil
}

// persist writes rec and returns its id. Flags set on rec are cleared on the
// contact's other records in the same transaction.
func (s *Store) persist(ctx context.Context, tbl table, rec record.Fields) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := rec.Value(record.FieldID)
	for _, f := range tbl.flags {
		if rec[f] != record.FlagOn {
			continue
		}
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET %s = 0 WHERE contact_id = ? AND id != ?`, tbl.name, f),
			rec[record.FieldContactID], idOrZero(id))
		if err != nil {
			return "", fmt.Errorf("clear %s: %w", f, err)
		}
	}

	args := make([]any, 0, len(tbl.columns)+1)
	for _, c := range tbl.columns {
		v := rec[c]
		if tbl.nullable[c] && v == "" {
			args = append(args, nil)
			continue
		}
		args = append(args, v)
	}

	if id == "" {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tbl.columns)), ", ")
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
				tbl.name, strings.Join(tbl.columns, ", "), placeholders),
			args...)
		if err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		n, err := res.LastInsertId()
		if err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		id = strconv.FormatInt(n, 10)
	} else {
		sets := make([]string, len(tbl.columns))
		for i, c := range tbl.columns {
			sets[i] = c + " = ?"
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, tbl.name, strings.Join(sets, ", ")),
			args...); err != nil {
			return "", fmt.Errorf("update %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func scanRecords(rows *sql.Rows, tbl table) ([]record.Fields, error) {
	defer rows.Close()

	names := append([]string{record.FieldID}, tbl.columns...)
	var out []record.Fields
	for rows.Next() {
		vals := make([]sql.NullString, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(record.Fields, len(names))
		for i, n := range names {
			rec[n] = vals[i].String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func flagValue(f record.Fields, key string) string {
	if f.Flag(key) {
		return record.FlagOn
	}
	return record.FlagOff
}

func isNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func idOrZero(id string) string {
	if id == "" {
		return "0"
	}
	return id
}

// Records returns a contact's records of one type, ordered by id.
func (s *Store) Records(ctx context.Context, t record.Type, contactID string) ([]record.Fields, error) {
	return s.Query(ctx, t, record.Fields{record.FieldContactID: contactID})
}
