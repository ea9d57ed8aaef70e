package guard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppressed_NoOrigin(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Suppressed(ctx, ProfileToContact))
	assert.False(t, Suppressed(ctx, ContactToProfile))
}

func TestDo_SuppressesOppositeListenerOnly(t *testing.T) {
	g := New(NewFixedGenerator("tok-1"))

	var inside context.Context
	err := g.Do(context.Background(), ProfileToContact, func(ctx context.Context) error {
		inside = ctx
		assert.Equal(t, 1, g.OpenFor(ProfileToContact))
		assert.Equal(t, 0, g.OpenFor(ContactToProfile))
		return nil
	})
	require.NoError(t, err)

	assert.True(t, Suppressed(inside, ContactToProfile), "opposite listener must be disabled during the write")
	assert.False(t, Suppressed(inside, ProfileToContact))

	o, ok := OriginFrom(inside)
	require.True(t, ok)
	assert.Equal(t, "tok-1", o.Token)
	assert.Equal(t, ProfileToContact, o.Direction)
}

func TestDo_ClosesWindowOnError(t *testing.T) {
	g := New(NewFixedGenerator("tok-1"))
	boom := errors.New("boom")

	err := g.Do(context.Background(), ContactToProfile, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, g.Open())
}

func TestDo_ClosesWindowOnPanic(t *testing.T) {
	g := New(NewFixedGenerator("tok-1"))

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = g.Do(context.Background(), ContactToProfile, func(ctx context.Context) error {
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, g.Open())
}

func TestDo_NestedKeepsOuterOrigin(t *testing.T) {
	// Only one token: a nested Do must not draw a second one.
	g := New(NewFixedGenerator("outer"))

	err := g.Do(context.Background(), ProfileToContact, func(ctx context.Context) error {
		return g.Do(ctx, ProfileToContact, func(inner context.Context) error {
			o, ok := OriginFrom(inner)
			require.True(t, ok)
			assert.Equal(t, "outer", o.Token)
			assert.Equal(t, 1, g.Open())
			return nil
		})
	})
	require.NoError(t, err)
}

func TestDo_ConcurrentWindowsAreIndependent(t *testing.T) {
	g := New(nil)

	var wg sync.WaitGroup
	release := make(chan struct{})
	entered := make(chan struct{}, 2)

	for _, d := range []Direction{ProfileToContact, ContactToProfile} {
		wg.Add(1)
		go func(d Direction) {
			defer wg.Done()
			_ = g.Do(context.Background(), d, func(ctx context.Context) error {
				entered <- struct{}{}
				<-release
				return nil
			})
		}(d)
	}

	<-entered
	<-entered
	assert.Equal(t, 2, g.Open())
	close(release)
	wg.Wait()
	assert.Equal(t, 0, g.Open())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "profile_to_contact", ProfileToContact.String())
	assert.Equal(t, "contact_to_profile", ContactToProfile.String())
	assert.Equal(t, "unknown", Direction(0).String())
}
