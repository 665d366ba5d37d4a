package library

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PlaceReservation queues a member for an out-of-stock book. In stock means
// no reservation is needed; a member may hold at most one WAITING or
// AVAILABLE reservation per book.
func (l *Library) PlaceReservation(memberID, bookID int64) (*Reservation, error) {
	var reservation *Reservation
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		book, err := l.store.BookByID(tx, bookID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: book %d", ErrNotFound, bookID)
			}
			return err
		}
		if book.CopiesAvailable > 0 {
			return fmt.Errorf("%w: %q is in stock, no reservation needed", ErrInvalidState, book.Title)
		}
		if _, err := l.store.ActiveReservation(tx, memberID, bookID); err == nil {
			return fmt.Errorf("%w: member %d already has an active reservation for book %d", ErrConflict, memberID, bookID)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		reservation = &Reservation{
			BookID:          bookID,
			MemberID:        memberID,
			ReservationDate: l.now().UTC(),
			Status:          ReservationWaiting,
		}
		id, err := l.store.InsertReservation(tx, reservation)
		if err != nil {
			return err
		}
		reservation.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// NotifyNextReservation promotes the oldest WAITING reservation for a book to
// AVAILABLE and returns it, so the librarian can contact the member. The
// availability count is untouched; the copy moves only through borrow and
// return.
func (l *Library) NotifyNextReservation(bookID int64) (*Reservation, error) {
	var reservation *Reservation
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		next, err := l.store.NextWaitingReservation(tx, bookID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: no waiting reservations for book %d", ErrNotFound, bookID)
			}
			return err
		}
		if err := l.store.UpdateReservationStatus(tx, next.ID, ReservationAvailable); err != nil {
			return err
		}
		next.Status = ReservationAvailable
		reservation = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ForceFulfillReservation is the librarian's manual override: it marks any
// existing reservation FULFILLED regardless of its current status.
func (l *Library) ForceFulfillReservation(reservationID int64) error {
	return l.db.WithTx(func(tx *sqlx.Tx) error {
		if _, err := l.store.ReservationByID(tx, reservationID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: reservation %d", ErrNotFound, reservationID)
			}
			return err
		}
		return l.store.UpdateReservationStatus(tx, reservationID, ReservationFulfilled)
	})
}

// MemberReservations lists a member's WAITING and AVAILABLE reservations,
// oldest first.
func (l *Library) MemberReservations(memberID int64) ([]*Reservation, error) {
	var reservations []*Reservation
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		reservations, err = l.store.ActiveReservationsByMember(tx, memberID)
		return err
	})
	return reservations, err
}

// ActiveReservations lists every WAITING and AVAILABLE reservation, grouped
// by book then oldest first.
func (l *Library) ActiveReservations() ([]*Reservation, error) {
	var reservations []*Reservation
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		reservations, err = l.store.AllActiveReservations(tx)
		return err
	})
	return reservations, err
}
