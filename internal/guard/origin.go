package guard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Direction names a sync direction.
type Direction int

const (
	// ProfileToContact propagates profile field writes into contact records.
	ProfileToContact Direction = iota + 1
	// ContactToProfile propagates contact record writes into profile fields.
	ContactToProfile
)

func (d Direction) String() string {
	switch d {
	case ProfileToContact:
		return "profile_to_contact"
	case ContactToProfile:
		return "contact_to_profile"
	default:
		return "unknown"
	}
}

// Origin identifies the guarded write a notification descends from.
type Origin struct {
	Token     string
	Direction Direction
}

type originKey struct{}

// WithOrigin returns a context carrying o.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin carried by ctx, if any.
func OriginFrom(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok
}

// Suppressed reports whether a listener for direction listener must ignore
// a notification delivered with ctx.
func Suppressed(ctx context.Context, listener Direction) bool {
	o, ok := OriginFrom(ctx)
	return ok && o.Direction != listener
}

// TokenGenerator produces origin tokens.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token. Panics once all tokens are consumed, so a
// test that issues more guarded writes than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
