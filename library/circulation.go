package library

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Borrow lends one copy of a book to a member as a single atomic unit:
// stock check (or AVAILABLE-reservation override), duplicate-loan guard,
// stock decrement, loan creation, and reservation fulfillment all commit
// together or not at all.
//
// When the borrow is satisfied by an AVAILABLE reservation the copy was
// already set aside when the reservation was notified, so the availability
// count is not decremented again; it stays at zero instead of undershooting.
func (l *Library) Borrow(memberID, bookID int64) (*Loan, error) {
	var loan *Loan
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		book, err := l.store.BookByID(tx, bookID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: book %d", ErrNotFound, bookID)
			}
			return err
		}

		heldByReservation := false
		if book.CopiesAvailable < 1 {
			_, err := l.store.ReservationWithStatus(tx, memberID, bookID, ReservationAvailable)
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: no copies of %q on the shelf and no available reservation", ErrUnavailable, book.Title)
			}
			if err != nil {
				return err
			}
			heldByReservation = true
		}

		if _, err := l.store.ActiveLoan(tx, memberID, bookID); err == nil {
			return fmt.Errorf("%w: member %d already has an active loan for book %d", ErrConflict, memberID, bookID)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if !heldByReservation {
			book.CopiesAvailable--
		}
		book.TimesBorrowed++
		if err := l.store.UpdateBookCounts(tx, book); err != nil {
			return err
		}

		borrowDate := l.today()
		loan = &Loan{
			MemberID:   memberID,
			BookID:     bookID,
			BorrowDate: borrowDate,
			DueDate:    borrowDate.AddDate(0, 0, l.loanPeriodDays),
			Status:     LoanActive,
		}
		id, err := l.store.InsertLoan(tx, loan)
		if err != nil {
			return err
		}
		loan.ID = id

		// Consume the AVAILABLE reservation, if any, in the same unit of work.
		res, err := l.store.ReservationWithStatus(tx, memberID, bookID, ReservationAvailable)
		if err == nil {
			return l.store.UpdateReservationStatus(tx, res.ID, ReservationFulfilled)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Return closes a loan: it validates ownership, book match and loan state,
// puts the copy back on the shelf (never above total capacity), and marks the
// loan RETURNED, atomically.
//
// Returning does not promote the next WAITING reservation; that is the
// librarian-triggered NotifyNextReservation.
func (l *Library) Return(memberID, bookID, loanID int64) error {
	return l.db.WithTx(func(tx *sqlx.Tx) error {
		loan, err := l.store.LoanByID(tx, loanID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
			}
			return err
		}

		if loan.MemberID != memberID {
			return fmt.Errorf("%w: loan %d does not belong to member %d", ErrForbidden, loanID, memberID)
		}
		if loan.BookID != bookID {
			return fmt.Errorf("%w: loan %d is not for book %d", ErrInvalidArgument, loanID, bookID)
		}
		if loan.Status != LoanActive {
			return fmt.Errorf("%w: loan %d is not active", ErrInvalidState, loanID)
		}

		book, err := l.store.BookByID(tx, loan.BookID)
		if err != nil {
			return err
		}
		// Clamped: a return can never push availability past capacity, even
		// against inconsistent data.
		if book.CopiesAvailable < book.TotalCopies {
			book.CopiesAvailable++
		}
		if err := l.store.UpdateBookCounts(tx, book); err != nil {
			return err
		}

		return l.store.MarkLoanReturned(tx, loan.ID, l.today())
	})
}

// GenerateFines issues one OUTSTANDING fine for every ACTIVE loan past its
// due date that has no fine yet, in a single transaction. Running it again
// immediately creates nothing: the anti-join excludes already-fined loans.
// The loan itself stays ACTIVE; overdue is a derived condition.
func (l *Library) GenerateFines() (int, error) {
	created := 0
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		today := l.today()
		overdue, err := l.store.OverdueLoansWithoutFine(tx, today)
		if err != nil {
			return err
		}

		for _, loan := range overdue {
			daysOverdue := daysBetween(loan.DueDate, today)
			if daysOverdue <= 0 {
				continue
			}
			fine := &Fine{
				MemberID:   loan.MemberID,
				LoanID:     loan.ID,
				Amount:     l.dailyFineRate.Mul(decimal.NewFromInt(int64(daysOverdue))),
				Status:     FineOutstanding,
				DateIssued: today,
			}
			if _, err := l.store.InsertFine(tx, fine); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// Loans lists every loan, most recent first.
func (l *Library) Loans() ([]*Loan, error) {
	var loans []*Loan
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		loans, err = l.store.AllLoans(tx)
		return err
	})
	return loans, err
}

// MemberLoans lists one member's loans, most recent first.
func (l *Library) MemberLoans(memberID int64) ([]*Loan, error) {
	var loans []*Loan
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		loans, err = l.store.LoansByMember(tx, memberID)
		return err
	})
	return loans, err
}

// Loan fetches a single loan by id.
func (l *Library) Loan(loanID int64) (*Loan, error) {
	var loan *Loan
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		loan, err = l.store.LoanByID(tx, loanID)
		return err
	})
	return loan, err
}

// MemberFines lists one member's fines, newest first.
func (l *Library) MemberFines(memberID int64) ([]*Fine, error) {
	var fines []*Fine
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		fines, err = l.store.FinesByMember(tx, memberID)
		return err
	})
	return fines, err
}

// daysBetween counts whole days from a to b, both day-truncated.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
