package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdminLifecycle(t *testing.T) {
	e := newTestEngine(t)

	require.True(t, e.IsAdmin(testOwner), "owner is implicitly admin")
	require.False(t, e.IsAdmin(testUser1))

	ev, err := e.SetAdmin(testOwner, testUser1)
	require.NoError(t, err)
	require.Equal(t, AdminChangedEvent{Account: testUser1, IsAdmin: true}, ev)
	require.True(t, e.IsAdmin(testUser1))

	ev, err = e.RemoveAdmin(testOwner, testUser1)
	require.NoError(t, err)
	require.Equal(t, AdminChangedEvent{Account: testUser1, IsAdmin: false}, ev)
	require.False(t, e.IsAdmin(testUser1))
}

func TestAdminOwnerOnly(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.SetAdmin(testUser1, testUser2)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.RemoveAdmin(testUser1, testUser2)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Admins are not owners: an admin cannot grow the admin set.
	_, err = e.SetAdmin(testOwner, testAdmin)
	require.NoError(t, err)
	_, err = e.SetAdmin(testAdmin, testUser2)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, e.IsAdmin(testUser2))
}

func TestSetAdminIdempotentStillEmits(t *testing.T) {
	var events []Event
	e := newTestEngine(t, WithEventSink(func(ev Event) {
		events = append(events, ev)
	}))

	for i := 0; i < 2; i++ {
		ev, err := e.SetAdmin(testOwner, testUser1)
		require.NoError(t, err)
		require.Equal(t, AdminChangedEvent{Account: testUser1, IsAdmin: true}, ev)
	}
	require.True(t, e.IsAdmin(testUser1))
	require.Len(t, events, 2, "repeated SetAdmin re-emits the event")

	// Removing an account that is not an admin also succeeds and emits.
	ev, err := e.RemoveAdmin(testOwner, testUser2)
	require.NoError(t, err)
	require.Equal(t, AdminChangedEvent{Account: testUser2, IsAdmin: false}, ev)
	require.Len(t, events, 3)
}

func TestAdminsList(t *testing.T) {
	e := newTestEngine(t)

	require.Empty(t, e.Admins())

	_, err := e.SetAdmin(testOwner, testUser1)
	require.NoError(t, err)
	_, err = e.SetAdmin(testOwner, testUser2)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{testUser1, testUser2}, e.Admins())
}
