package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/roach88/fieldsync/internal/guard"
	"github.com/roach88/fieldsync/internal/record"
	"github.com/roach88/fieldsync/internal/refdata"
)

// FieldWrite is one recorded SetField call.
type FieldWrite struct {
	ProfileID string
	Key       string
	Value     string
	Origin    guard.Origin // zero when the write carried no origin
}

// ProfileStore is an in-memory profile field store that records writes.
//
// SetField notifies listeners after the write, like the SQLite store.
type ProfileStore struct {
	mu        sync.Mutex
	fields    map[string]map[string]string
	writes    []FieldWrite
	listeners map[int]record.FieldListener
	nextSub   int

	// SetErr, when set, fails every SetField.
	SetErr error
}

// NewProfileStore creates an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		fields:    make(map[string]map[string]string),
		listeners: make(map[int]record.FieldListener),
	}
}

// Put sets a field without recording or notifying.
func (p *ProfileStore) Put(profileID, key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.put(profileID, key, value)
}

func (p *ProfileStore) put(profileID, key, value string) {
	if p.fields[profileID] == nil {
		p.fields[profileID] = make(map[string]string)
	}
	p.fields[profileID][key] = value
}

// Field implements engine.ProfileFieldStore.
func (p *ProfileStore) Field(_ context.Context, profileID, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fields[profileID][key], nil
}

// Has reports whether the field was ever written.
func (p *ProfileStore) Has(profileID, key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.fields[profileID][key]
	return ok
}

// SetField implements engine.ProfileFieldStore.
func (p *ProfileStore) SetField(ctx context.Context, profileID, key, value string) error {
	p.mu.Lock()
	if p.SetErr != nil {
		p.mu.Unlock()
		return p.SetErr
	}
	p.put(profileID, key, value)
	origin, _ := guard.OriginFrom(ctx)
	p.writes = append(p.writes, FieldWrite{ProfileID: profileID, Key: key, Value: value, Origin: origin})
	listeners := p.snapshot()
	p.mu.Unlock()

	for _, l := range listeners {
		l(ctx, record.FieldChange{ProfileID: profileID, Key: key, Value: value})
	}
	return nil
}

// SubscribeFields implements engine.ProfileFieldStore.
func (p *ProfileStore) SubscribeFields(l record.FieldListener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSub++
	id := p.nextSub
	p.listeners[id] = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *ProfileStore) snapshot() []record.FieldListener {
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]record.FieldListener, len(ids))
	for i, id := range ids {
		out[i] = p.listeners[id]
	}
	return out
}

// Writes returns the recorded SetField calls in order.
func (p *ProfileStore) Writes() []FieldWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FieldWrite(nil), p.writes...)
}

// Upsert is one recorded ContactStore.Upsert call.
type Upsert struct {
	Type    record.Type
	Request record.Fields
	Origin  guard.Origin // zero when the call carried no origin
}

// ContactStore is an in-memory contact record store that records upserts.
//
// It notifies listeners before applying a write. When AutoPromote is set, a
// contact's first record of a type is made primary, like the real contact
// system.
type ContactStore struct {
	mu        sync.Mutex
	records   map[record.Type]map[string]record.Fields
	upserts   []Upsert
	listeners map[int]record.ChangeListener
	nextSub   int
	nextID    int

	AutoPromote bool

	// UpsertErr, when set, fails every Upsert after recording it.
	UpsertErr error
	// QueryErr, when set, fails every Query.
	QueryErr error
}

// NewContactStore creates an empty ContactStore whose ids start at 1.
func NewContactStore() *ContactStore {
	return &ContactStore{
		records:   make(map[record.Type]map[string]record.Fields),
		listeners: make(map[int]record.ChangeListener),
		nextID:    1,
	}
}

// SetNextID sets the id given to the next created record.
func (c *ContactStore) SetNextID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID = id
}

// Put stores a record without recording or notifying. The record must
// carry an id.
func (c *ContactStore) Put(t record.Type, f record.Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(t, f.Clone())
}

func (c *ContactStore) put(t record.Type, f record.Fields) {
	if c.records[t] == nil {
		c.records[t] = make(map[string]record.Fields)
	}
	c.records[t][f[record.FieldID]] = f
}

// Query implements engine.ContactRecordStore. Results are ordered by
// numeric id.
func (c *ContactStore) Query(_ context.Context, t record.Type, filter record.Fields) ([]record.Fields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	return c.query(t, filter), nil
}

func (c *ContactStore) query(t record.Type, filter record.Fields) []record.Fields {
	var out []record.Fields
	for _, rec := range c.records[t] {
		if matches(rec, filter) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i][record.FieldID])
		b, _ := strconv.Atoi(out[j][record.FieldID])
		return a < b
	})
	return out
}

func matches(rec, filter record.Fields) bool {
	for k, v := range filter {
		if rec[k] != v {
			return false
		}
	}
	return true
}

// Get implements engine.ContactRecordStore.
func (c *ContactStore) Get(_ context.Context, t record.Type, id string) (record.Fields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[t][id]
	if !ok {
		return nil, fmt.Errorf("%s %s not found", t, id)
	}
	return rec.Clone(), nil
}

// Upsert implements engine.ContactRecordStore.
func (c *ContactStore) Upsert(ctx context.Context, t record.Type, req record.Fields) (record.Fields, error) {
	origin, _ := guard.OriginFrom(ctx)

	c.mu.Lock()
	c.upserts = append(c.upserts, Upsert{Type: t, Request: req.Clone(), Origin: origin})
	if c.UpsertErr != nil {
		c.mu.Unlock()
		return nil, c.UpsertErr
	}

	op := record.OpCreate
	merged := record.Fields{}
	if id := req.Value(record.FieldID); id != "" {
		existing, ok := c.records[t][id]
		if !ok {
			c.mu.Unlock()
			return nil, fmt.Errorf("%s %s not found", t, id)
		}
		op = record.OpEdit
		merged = existing.Clone()
	}
	for k, v := range req {
		merged[k] = v
	}
	if op == record.OpCreate {
		if c.AutoPromote && len(c.query(t, record.Fields{
			record.FieldContactID: merged[record.FieldContactID],
			record.FieldIsPrimary: record.FlagOn,
		})) == 0 {
			merged[record.FieldIsPrimary] = record.FlagOn
		}
	}
	listeners := c.snapshot()
	c.mu.Unlock()

	change := record.Change{Op: op, Type: t, ID: merged[record.FieldID], Payload: merged}
	for _, l := range listeners {
		l(ctx, record.Change{Op: change.Op, Type: change.Type, ID: change.ID, Payload: change.Payload.Clone()})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if op == record.OpCreate {
		merged[record.FieldID] = strconv.Itoa(c.nextID)
		c.nextID++
	}
	c.put(t, merged)
	return merged.Clone(), nil
}

// Delete removes a record, notifying listeners while it still exists.
func (c *ContactStore) Delete(ctx context.Context, t record.Type, id string) error {
	c.mu.Lock()
	if _, ok := c.records[t][id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%s %s not found", t, id)
	}
	listeners := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		l(ctx, record.Change{Op: record.OpDelete, Type: t, ID: id, Payload: record.Fields{record.FieldID: id}})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records[t], id)
	return nil
}

// Notify delivers a change to listeners without touching stored records.
func (c *ContactStore) Notify(ctx context.Context, change record.Change) {
	c.mu.Lock()
	listeners := c.snapshot()
	c.mu.Unlock()
	for _, l := range listeners {
		l(ctx, change)
	}
}

// SubscribeChanges implements engine.ContactRecordStore.
func (c *ContactStore) SubscribeChanges(l record.ChangeListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *ContactStore) snapshot() []record.ChangeListener {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]record.ChangeListener, len(ids))
	for i, id := range ids {
		out[i] = c.listeners[id]
	}
	return out
}

// Upserts returns the recorded Upsert calls in order.
func (c *ContactStore) Upserts() []Upsert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Upsert(nil), c.upserts...)
}

// Resolver is an in-memory identity resolver.
type Resolver struct {
	mu        sync.Mutex
	contacts  map[string]string // profile -> contact
	profiles  map[string]string // contact -> profile
	calls     int

	// ResolveErr, when set, fails every lookup.
	ResolveErr error
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		contacts: make(map[string]string),
		profiles: make(map[string]string),
	}
}

// Link associates a profile and a contact.
func (r *Resolver) Link(profileID, contactID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[profileID] = contactID
	r.profiles[contactID] = profileID
}

// ContactForProfile implements engine.IdentityResolver.
func (r *Resolver) ContactForProfile(_ context.Context, profileID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.ResolveErr != nil {
		return "", false, r.ResolveErr
	}
	id, ok := r.contacts[profileID]
	return id, ok, nil
}

// ProfileForContact implements engine.IdentityResolver.
func (r *Resolver) ProfileForContact(_ context.Context, contactID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ResolveErr != nil {
		return "", false, r.ResolveErr
	}
	id, ok := r.profiles[contactID]
	return id, ok, nil
}

// ContactLookups returns how many times ContactForProfile was called.
func (r *Resolver) ContactLookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Lookup answers reference queries from a refdata.Dataset.
type Lookup struct {
	isoByID   map[string]string
	abbrByIDs map[[2]string]string
	states    map[string]map[string]string
}

// NewLookup indexes ds.
func NewLookup(ds *refdata.Dataset) *Lookup {
	l := &Lookup{
		isoByID:   make(map[string]string),
		abbrByIDs: make(map[[2]string]string),
		states:    make(map[string]map[string]string),
	}
	for _, c := range ds.Countries {
		cid := strconv.FormatInt(c.ID, 10)
		l.isoByID[cid] = c.ISOCode
		names := make(map[string]string, len(c.States))
		for _, s := range c.States {
			l.abbrByIDs[[2]string{cid, strconv.FormatInt(s.ID, 10)}] = s.Abbreviation
			names[s.Abbreviation] = s.Name
		}
		l.states[c.ISOCode] = names
	}
	return l
}

// CountryISO implements fields.Lookup.
func (l *Lookup) CountryISO(_ context.Context, countryID string) (string, error) {
	iso, ok := l.isoByID[countryID]
	if !ok {
		return "", fmt.Errorf("country %s not found", countryID)
	}
	return iso, nil
}

// StateAbbreviation implements fields.Lookup.
func (l *Lookup) StateAbbreviation(_ context.Context, countryID, stateID string) (string, error) {
	return l.abbrByIDs[[2]string{countryID, stateID}], nil
}

// States implements fields.Lookup.
func (l *Lookup) States(_ context.Context, country string) (map[string]string, error) {
	out := make(map[string]string)
	for abbr, name := range l.states[country] {
		out[abbr] = name
	}
	return out, nil
}
