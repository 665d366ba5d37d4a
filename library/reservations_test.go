package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceReservationGuards(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "In Stock", 1)
	alice := addTestMember(t, lib, "alice")

	_, err := lib.PlaceReservation(alice.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	// Copies on the shelf: reserve is the wrong tool, just borrow it.
	_, err = lib.PlaceReservation(alice.ID, book.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDuplicateReservationConflicts(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Scarce", 1)
	alice := addTestMember(t, lib, "alice")
	bob := addTestMember(t, lib, "bob")

	_, err := lib.Borrow(bob.ID, book.ID)
	require.NoError(t, err)

	_, err = lib.PlaceReservation(alice.ID, book.ID)
	require.NoError(t, err)

	_, err = lib.PlaceReservation(alice.ID, book.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// Still a conflict once the hold is notified.
	_, err = lib.NotifyNextReservation(book.ID)
	require.NoError(t, err)
	_, err = lib.PlaceReservation(alice.ID, book.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestNotifyNextServesOldestFirst(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Queued", 1)
	borrower := addTestMember(t, lib, "borrower")
	first := addTestMember(t, lib, "first")
	second := addTestMember(t, lib, "second")

	_, err := lib.Borrow(borrower.ID, book.ID)
	require.NoError(t, err)

	r1, err := lib.PlaceReservation(first.ID, book.ID)
	require.NoError(t, err)
	r2, err := lib.PlaceReservation(second.ID, book.ID)
	require.NoError(t, err)

	notified, err := lib.NotifyNextReservation(book.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, notified.ID)
	assert.Equal(t, first.ID, notified.MemberID)

	// A notified hold leaves the queue; the next call serves the second member.
	notified, err = lib.NotifyNextReservation(book.ID)
	require.NoError(t, err)
	assert.Equal(t, r2.ID, notified.ID)
	assert.Equal(t, second.ID, notified.MemberID)

	_, err = lib.NotifyNextReservation(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForceFulfillReservation(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Walk-In", 1)
	borrower := addTestMember(t, lib, "borrower")
	alice := addTestMember(t, lib, "alice")

	_, err := lib.Borrow(borrower.ID, book.ID)
	require.NoError(t, err)

	res, err := lib.PlaceReservation(alice.ID, book.ID)
	require.NoError(t, err)

	require.NoError(t, lib.ForceFulfillReservation(res.ID))

	active, err := lib.MemberReservations(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, lib.ForceFulfillReservation(9999), ErrNotFound)
}

func TestActiveReservationViews(t *testing.T) {
	lib := newTestLibrary(t)
	bookA := addTestBook(t, lib, "Alpha", 1)
	bookB := addTestBook(t, lib, "Beta", 1)
	borrower := addTestMember(t, lib, "borrower")
	alice := addTestMember(t, lib, "alice")

	_, err := lib.Borrow(borrower.ID, bookA.ID)
	require.NoError(t, err)
	_, err = lib.Borrow(borrower.ID, bookB.ID)
	require.NoError(t, err)

	_, err = lib.PlaceReservation(alice.ID, bookA.ID)
	require.NoError(t, err)
	_, err = lib.PlaceReservation(alice.ID, bookB.ID)
	require.NoError(t, err)

	mine, err := lib.MemberReservations(alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := lib.ActiveReservations()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, r := range all {
		assert.Equal(t, ReservationWaiting, r.Status)
	}
}
