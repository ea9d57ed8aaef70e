package engine

import (
	"log/slog"

	"github.com/roach88/fieldsync/internal/fields"
	"github.com/roach88/fieldsync/internal/guard"
	"github.com/roach88/fieldsync/internal/identity"
)

// Default location and phone types used when creating records.
const (
	DefaultBillingLocationType  = "Billing"
	DefaultShippingLocationType = "Home"
	DefaultPhoneType            = "Phone"
	DefaultPhoneLocationType    = "Billing"
)

// Engine syncs profile fields and contact records in both directions.
//
// Thread-safety model:
//   - Listeners may run concurrently for different profiles.
//   - Profile-to-contact syncs for the same profile are serialized by the
//     identity cache's per-profile lock.
type Engine struct {
	profiles ProfileFieldStore
	contacts ContactRecordStore
	resolver IdentityResolver
	mapper   *fields.Mapper
	cache    *identity.Cache
	guard    *guard.Guard
	tokens   guard.TokenGenerator
	logger   *slog.Logger

	locationTypes     map[fields.Role]string
	phoneType         string
	phoneLocationType string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache sets the identity cache. Default: an in-memory cache over the
// engine's resolver and contact store.
func WithCache(c *identity.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithTokenGenerator sets the origin token generator.
//
// Default: UUIDv7Generator
// Use guard.NewFixedGenerator for deterministic tests.
func WithTokenGenerator(g guard.TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithLocationTypes sets the location types given to newly created billing
// and shipping addresses.
func WithLocationTypes(billing, shipping string) Option {
	return func(e *Engine) {
		e.locationTypes[fields.RoleBilling] = billing
		e.locationTypes[fields.RoleShipping] = shipping
	}
}

// WithPhoneType sets the phone and location types given to a newly created
// phone.
func WithPhoneType(phoneType, locationType string) Option {
	return func(e *Engine) {
		e.phoneType = phoneType
		e.phoneLocationType = locationType
	}
}

// New creates an Engine. Call Attach to start syncing.
func New(
	profiles ProfileFieldStore,
	contacts ContactRecordStore,
	resolver IdentityResolver,
	refs ReferenceLookup,
	opts ...Option,
) *Engine {
	e := &Engine{
		profiles: profiles,
		contacts: contacts,
		resolver: resolver,
		mapper:   fields.NewMapper(refs),
		logger:   slog.Default(),
		locationTypes: map[fields.Role]string{
			fields.RoleBilling:  DefaultBillingLocationType,
			fields.RoleShipping: DefaultShippingLocationType,
		},
		phoneType:         DefaultPhoneType,
		phoneLocationType: DefaultPhoneLocationType,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		e.cache = identity.New(resolver, contacts, identity.WithLogger(e.logger))
	}
	e.guard = guard.New(e.tokens)

	return e
}

// Attach subscribes the engine to both stores and returns a function that
// unsubscribes it.
func (e *Engine) Attach() (detach func()) {
	unsubFields := e.profiles.SubscribeFields(e.OnFieldChanged)
	unsubChanges := e.contacts.SubscribeChanges(e.OnRecordChanged)

	e.logger.Debug("engine attached")
	return func() {
		unsubFields()
		unsubChanges()
		e.logger.Debug("engine detached")
	}
}

// Cache returns the engine's identity cache.
func (e *Engine) Cache() *identity.Cache {
	return e.cache
}

// OpenWrites reports how many engine-issued writes are in flight.
func (e *Engine) OpenWrites() int {
	return e.guard.Open()
}

// logFailure logs err at the level its cause deserves.
func (e *Engine) logFailure(logger *slog.Logger, err error) {
	code := CodeOf(err)
	if code == "" {
		code = CodeResolveFailed
	}
	logger.Error("sync failed",
		"code", string(code),
		"error", err,
	)
}
