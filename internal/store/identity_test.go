package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_ResolvesBothWays(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	contactID, err := s.CreateContact(ctx, "Ada")
	require.NoError(t, err)
	require.NoError(t, s.Link(ctx, "7", contactID))

	got, ok, err := s.ContactForProfile(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, contactID, got)

	profile, ok, err := s.ProfileForContact(ctx, contactID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", profile)
}

func TestLink_Relink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.CreateContact(ctx, "Ada")
	require.NoError(t, err)
	second, err := s.CreateContact(ctx, "Grace")
	require.NoError(t, err)

	require.NoError(t, s.Link(ctx, "7", first))
	require.NoError(t, s.Link(ctx, "7", second))

	got, _, err := s.ContactForProfile(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, ok, err := s.ProfileForContact(ctx, first)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLink_TakesOverContact(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	contactID, err := s.CreateContact(ctx, "Ada")
	require.NoError(t, err)

	require.NoError(t, s.Link(ctx, "7", contactID))
	require.NoError(t, s.Link(ctx, "8", contactID))

	profile, ok, err := s.ProfileForContact(ctx, contactID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "8", profile)

	_, ok, err = s.ContactForProfile(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)

	// Linking the same pair again is a no-op.
	require.NoError(t, s.Link(ctx, "8", contactID))
	profile, _, err = s.ProfileForContact(ctx, contactID)
	require.NoError(t, err)
	assert.Equal(t, "8", profile)
}

func TestLink_UnknownContact(t *testing.T) {
	s := createTestStore(t)

	err := s.Link(context.Background(), "7", "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactForProfile_Unlinked(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.ContactForProfile(context.Background(), "7")
	require.NoError(t, err)
	assert.False(t, ok)
}
