package guard

import (
	"context"
	"sync"
)

// Guard opens suppression windows around engine writes.
type Guard struct {
	gen TokenGenerator

	mu   sync.Mutex
	open map[string]Direction // token -> direction of each open window
}

// New creates a Guard. A nil generator defaults to UUIDv7Generator.
func New(gen TokenGenerator) *Guard {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Guard{
		gen:  gen,
		open: make(map[string]Direction),
	}
}

// Do runs op with a context stamped by direction from.
//
// Notifications raised by op and delivered with the stamped context are
// suppressed for the opposite direction's listener. The window is closed on
// every exit path, including a panic in op, which is re-raised.
//
// If ctx already carries an origin, it is kept: a write nested inside
// another guarded write belongs to the outer window.
func (g *Guard) Do(ctx context.Context, from Direction, op func(ctx context.Context) error) error {
	if _, ok := OriginFrom(ctx); ok {
		return op(ctx)
	}

	o := Origin{Token: g.gen.Generate(), Direction: from}

	g.mu.Lock()
	g.open[o.Token] = from
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.open, o.Token)
		g.mu.Unlock()
	}()

	return op(WithOrigin(ctx, o))
}

// Open returns the number of windows currently open.
// Used for testing and diagnostics.
func (g *Guard) Open() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.open)
}

// OpenFor returns the number of open windows issued by direction d.
func (g *Guard) OpenFor(d Direction) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, dir := range g.open {
		if dir == d {
			n++
		}
	}
	return n
}
