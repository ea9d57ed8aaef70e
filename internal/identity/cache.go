package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/fieldsync/internal/record"
)

// ErrNotLinked is returned when a profile has no contact identity.
// Callers treat it as "not yet linked", not as a failure.
var ErrNotLinked = errors.New("profile is not linked to a contact")

// ContactResolver maps a profile identity to a contact identity.
type ContactResolver interface {
	ContactForProfile(ctx context.Context, profileID string) (contactID string, ok bool, err error)
}

// RecordQuerier reads contact sub-records.
type RecordQuerier interface {
	Query(ctx context.Context, t record.Type, filter record.Fields) ([]record.Fields, error)
}

// Cache memoizes identity resolution per profile.
type Cache struct {
	resolver ContactResolver
	querier  RecordQuerier
	backend  Backend
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Cache.
type Option func(*Cache)

// WithBackend sets the entry backend. Default: a fresh MemoryBackend.
func WithBackend(b Backend) Option {
	return func(c *Cache) {
		c.backend = b
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates a Cache.
func New(resolver ContactResolver, querier RecordQuerier, opts ...Option) *Cache {
	c := &Cache{
		resolver: resolver,
		querier:  querier,
		backend:  NewMemoryBackend(),
		logger:   slog.Default(),
		locks:    make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs fn against the entry for profileID while holding its lock.
//
// The entry is resolved first if the backend has none. Changes fn makes to
// the entry are saved when fn returns nil and discarded otherwise.
// Returns ErrNotLinked if the profile has no contact.
func (c *Cache) Do(ctx context.Context, profileID string, fn func(e *Entry) error) error {
	unlock := c.lock(profileID)
	defer unlock()

	e, err := c.entry(ctx, profileID)
	if err != nil {
		return err
	}
	if err := fn(e); err != nil {
		return err
	}
	return c.backend.Save(ctx, e)
}

// Resolve returns a copy of the entry for profileID, resolving it if needed.
func (c *Cache) Resolve(ctx context.Context, profileID string) (Entry, error) {
	var out Entry
	err := c.Do(ctx, profileID, func(e *Entry) error {
		out = *e.clone()
		return nil
	})
	return out, err
}

// Invalidate evicts the entry for profileID. The next Do re-resolves.
func (c *Cache) Invalidate(ctx context.Context, profileID string) error {
	unlock := c.lock(profileID)
	defer unlock()
	return c.backend.Delete(ctx, profileID)
}

func (c *Cache) entry(ctx context.Context, profileID string) (*Entry, error) {
	e, err := c.backend.Load(ctx, profileID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, ErrMiss) {
		// A broken backend should not stop syncing; fall back to resolving.
		c.logger.Warn("identity cache load failed",
			"profile_id", profileID,
			"error", err,
		)
	}

	e, err = c.resolve(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := c.backend.Save(ctx, e); err != nil {
		return nil, fmt.Errorf("save entry %s: %w", profileID, err)
	}
	return e, nil
}

// resolve queries the collaborators once for the contact and its primary
// address, billing address and primary phone.
func (c *Cache) resolve(ctx context.Context, profileID string) (*Entry, error) {
	contactID, ok, err := c.resolver.ContactForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("resolve contact for profile %s: %w", profileID, err)
	}
	if !ok || contactID == "" {
		return nil, ErrNotLinked
	}

	e := &Entry{ProfileID: profileID, ContactID: contactID}

	primary, err := c.first(ctx, record.TypeAddress, contactID, record.FieldIsPrimary)
	if err != nil {
		return nil, err
	}
	if primary != nil {
		e.Primary = &AddressInfo{ID: primary[record.FieldID], LocationType: primary.Value(record.FieldLocationType)}
	}

	billing, err := c.first(ctx, record.TypeAddress, contactID, record.FieldIsBilling)
	if err != nil {
		return nil, err
	}
	if billing != nil {
		e.Billing = &AddressInfo{ID: billing[record.FieldID], LocationType: billing.Value(record.FieldLocationType)}
	}

	phone, err := c.first(ctx, record.TypePhone, contactID, record.FieldIsPrimary)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		e.PrimaryPhoneID = phone[record.FieldID]
	}

	c.logger.Debug("identity resolved",
		"profile_id", profileID,
		"contact_id", contactID,
		"primary_address", e.Primary != nil,
		"billing_address", e.Billing != nil,
		"primary_phone", e.PrimaryPhoneID != "",
	)
	return e, nil
}

func (c *Cache) first(ctx context.Context, t record.Type, contactID, flag string) (record.Fields, error) {
	rows, err := c.querier.Query(ctx, t, record.Fields{
		record.FieldContactID: contactID,
		flag:                  record.FlagOn,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s %s=1 for contact %s: %w", t, flag, contactID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (c *Cache) lock(key string) func() {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}
