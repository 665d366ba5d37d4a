package library

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var cfg Config
	cfg.Librarian.Username = "admin"
	cfg.Librarian.Password = "letmein"
	cfg.Circulation.LoanPeriodDays = 14
	cfg.Circulation.DailyFineRate = "5.00"

	lib, err := NewLibrary(db, cfg)
	require.NoError(t, err)
	return lib
}

// pinClock freezes the library's clock at a fixed instant.
func pinClock(lib *Library, at time.Time) {
	lib.now = func() time.Time { return at }
}

func addTestBook(t *testing.T, lib *Library, title string, copies int) *Book {
	t.Helper()
	book, err := lib.AddBook(&Book{Title: title, TotalCopies: copies}, []string{"Test Author"}, nil)
	require.NoError(t, err)
	return book
}

func addTestMember(t *testing.T, lib *Library, username string) *Member {
	t.Helper()
	member, err := lib.RegisterMember(&Member{
		Name:           username,
		Username:       username,
		MembershipType: MembershipPublic,
	}, username+"-password")
	require.NoError(t, err)
	return member
}

func TestBorrowAndReturnFlow(t *testing.T) {
	lib := newTestLibrary(t)
	start := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	pinClock(lib, start)

	book := addTestBook(t, lib, "Single Copy", 1)
	member := addTestMember(t, lib, "alice")

	loan, err := lib.Borrow(member.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanActive, loan.Status)
	assert.True(t, loan.BorrowDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, loan.DueDate.Equal(time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)))

	after, err := lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.CopiesAvailable)
	assert.Equal(t, 1, after.TimesBorrowed)

	require.NoError(t, lib.Return(member.ID, book.ID, loan.ID))

	after, err = lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.CopiesAvailable)

	returned, err := lib.Loan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, returned.ReturnDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
}

func TestBorrowUnknownBook(t *testing.T) {
	lib := newTestLibrary(t)
	member := addTestMember(t, lib, "alice")

	_, err := lib.Borrow(member.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBorrowOutOfStockWithoutReservation(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Popular", 1)
	alice := addTestMember(t, lib, "alice")
	bob := addTestMember(t, lib, "bob")

	_, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)

	_, err = lib.Borrow(bob.ID, book.ID)
	assert.ErrorIs(t, err, ErrUnavailable)

	// Nothing changed for the failed borrower: no loan, stock untouched.
	loans, err := lib.MemberLoans(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)

	after, err := lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.CopiesAvailable)
	assert.Equal(t, 1, after.TimesBorrowed)
}

func TestBorrowDuplicateActiveLoan(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Two Copies", 2)
	alice := addTestMember(t, lib, "alice")

	_, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)

	_, err = lib.Borrow(alice.ID, book.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// The failed attempt rolled back: only one copy gone, one borrow counted.
	after, err := lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.CopiesAvailable)
	assert.Equal(t, 1, after.TimesBorrowed)
}

func TestReturnValidations(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Guarded", 1)
	other := addTestBook(t, lib, "Other", 1)
	alice := addTestMember(t, lib, "alice")
	bob := addTestMember(t, lib, "bob")

	loan, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, lib.Return(alice.ID, book.ID, 9999), ErrNotFound)
	assert.ErrorIs(t, lib.Return(bob.ID, book.ID, loan.ID), ErrForbidden)
	assert.ErrorIs(t, lib.Return(alice.ID, other.ID, loan.ID), ErrInvalidArgument)

	require.NoError(t, lib.Return(alice.ID, book.ID, loan.ID))

	// Second return: the loan is no longer active and the shelf count stays put.
	assert.ErrorIs(t, lib.Return(alice.ID, book.ID, loan.ID), ErrInvalidState)
	after, err := lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.CopiesAvailable)
}

// TestStockInvariantUnderRandomCirculation drives a random borrow/return
// sequence and checks 0 <= copies_available <= total_copies after every
// committed operation.
func TestStockInvariantUnderRandomCirculation(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Churned", 3)

	members := make([]*Member, 5)
	for i := range members {
		members[i] = addTestMember(t, lib, string(rune('a'+i))+"-member")
	}

	rng := rand.New(rand.NewSource(42))
	activeLoans := map[int64]*Loan{} // member id -> open loan

	for step := 0; step < 200; step++ {
		m := members[rng.Intn(len(members))]
		if loan, ok := activeLoans[m.ID]; ok && rng.Intn(2) == 0 {
			require.NoError(t, lib.Return(m.ID, loan.BookID, loan.ID))
			delete(activeLoans, m.ID)
		} else if !ok {
			loan, err := lib.Borrow(m.ID, book.ID)
			if err != nil {
				require.ErrorIs(t, err, ErrUnavailable)
			} else {
				activeLoans[m.ID] = loan
			}
		}

		after, err := lib.Book(book.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, after.CopiesAvailable, 0)
		assert.LessOrEqual(t, after.CopiesAvailable, after.TotalCopies)
		assert.Equal(t, after.TotalCopies-len(activeLoans), after.CopiesAvailable)
	}
}

// TestReservationFulfillmentOnBorrow walks the notified-reservation path: the
// held copy is consumed without pushing the shelf count below zero.
func TestReservationFulfillmentOnBorrow(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Reserved", 1)
	alice := addTestMember(t, lib, "alice")
	bob := addTestMember(t, lib, "bob")

	_, err := lib.Borrow(bob.ID, book.ID)
	require.NoError(t, err)

	res, err := lib.PlaceReservation(alice.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationWaiting, res.Status)

	notified, err := lib.NotifyNextReservation(book.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, notified.ID)
	assert.Equal(t, ReservationAvailable, notified.Status)

	loan, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanActive, loan.Status)

	// Reservation consumed, shelf count clamped at zero.
	remaining, err := lib.MemberReservations(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	after, err := lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.CopiesAvailable)
	assert.Equal(t, 2, after.TimesBorrowed)
}

func TestGenerateFinesIdempotent(t *testing.T) {
	lib := newTestLibrary(t)
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pinClock(lib, start)

	book := addTestBook(t, lib, "Overdue Soon", 2)
	alice := addTestMember(t, lib, "alice")
	bob := addTestMember(t, lib, "bob")

	loan, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)
	_, err = lib.Borrow(bob.ID, book.ID)
	require.NoError(t, err)

	// Not yet due: nothing to fine.
	count, err := lib.GenerateFines()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// 19 days later both loans are 5 days overdue.
	pinClock(lib, start.AddDate(0, 0, 19))

	count, err = lib.GenerateFines()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Second run finds nothing: the anti-join excludes fined loans.
	count, err = lib.GenerateFines()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	fines, err := lib.MemberFines(alice.ID)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assert.Equal(t, loan.ID, fines[0].LoanID)
	assert.Equal(t, FineOutstanding, fines[0].Status)
	assert.True(t, fines[0].Amount.Equal(decimal.RequireFromString("25.00")),
		"want 5 days x 5.00, got %s", fines[0].Amount)

	// The loan itself stays ACTIVE; overdue is derived, not stored.
	current, err := lib.Loan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanActive, current.Status)
	assert.True(t, current.Overdue(lib.today()))
}

func TestGenerateFinesSkipsReturnedLoans(t *testing.T) {
	lib := newTestLibrary(t)
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pinClock(lib, start)

	book := addTestBook(t, lib, "Returned Late", 1)
	alice := addTestMember(t, lib, "alice")

	loan, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)

	pinClock(lib, start.AddDate(0, 0, 20))
	require.NoError(t, lib.Return(alice.ID, book.ID, loan.ID))

	count, err := lib.GenerateFines()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
