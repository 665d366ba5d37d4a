package library

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MembershipType is the closed set of member categories. Values are persisted
// as their string form; anything else read back from storage is an error.
type MembershipType string

const (
	MembershipPublic  MembershipType = "PUBLIC"
	MembershipStudent MembershipType = "STUDENT"
	MembershipFaculty MembershipType = "FACULTY"
	MembershipSenior  MembershipType = "SENIOR"
	MembershipYouth   MembershipType = "YOUTH"
)

// ParseMembershipType validates a stored membership type string.
func ParseMembershipType(s string) (MembershipType, error) {
	switch MembershipType(s) {
	case MembershipPublic, MembershipStudent, MembershipFaculty, MembershipSenior, MembershipYouth:
		return MembershipType(s), nil
	}
	return "", fmt.Errorf("unknown membership type %q", s)
}

// LoanStatus is the lifecycle state of a loan. Overdue is not a stored state:
// a loan is overdue when it is ACTIVE and its due date has passed.
type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

func ParseLoanStatus(s string) (LoanStatus, error) {
	switch LoanStatus(s) {
	case LoanActive, LoanReturned:
		return LoanStatus(s), nil
	}
	return "", fmt.Errorf("unknown loan status %q", s)
}

// ReservationStatus is the lifecycle state of a reservation: queued, notified
// as next in line, consumed by a borrow, or expired.
type ReservationStatus string

const (
	ReservationWaiting   ReservationStatus = "WAITING"
	ReservationAvailable ReservationStatus = "AVAILABLE"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch ReservationStatus(s) {
	case ReservationWaiting, ReservationAvailable, ReservationFulfilled, ReservationExpired:
		return ReservationStatus(s), nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// FineStatus is the payment state of a fine.
type FineStatus string

const (
	FineOutstanding FineStatus = "OUTSTANDING"
	FinePaid        FineStatus = "PAID"
)

func ParseFineStatus(s string) (FineStatus, error) {
	switch FineStatus(s) {
	case FineOutstanding, FinePaid:
		return FineStatus(s), nil
	}
	return "", fmt.Errorf("unknown fine status %q", s)
}

// Author is a book author, linked to books many-to-many.
type Author struct {
	ID   int64  `db:"author_id"`
	Name string `db:"author_name"`
}

// Subject is a catalog subject, linked to books many-to-many.
type Subject struct {
	ID   int64  `db:"subject_id"`
	Name string `db:"subject_name"`
}

// Book holds a title's catalog record and its copy counts.
// 0 <= CopiesAvailable <= TotalCopies holds at rest.
type Book struct {
	ID              int64
	Title           string
	Publisher       string
	PublicationDate *time.Time
	TotalCopies     int
	CopiesAvailable int
	TimesBorrowed   int
	Authors         []Author
	Subjects        []Subject
}

// Member is a registered library member.
type Member struct {
	ID               int64
	Name             string
	Username         string
	PasswordHash     string
	Email            string
	PhoneNumber      string
	Address          string
	MembershipType   MembershipType
	MembershipStatus string
	RegistrationDate time.Time
	ExpiryDate       *time.Time
}

// Loan records one member borrowing one copy of one book. Created on borrow,
// updated exactly once on return, never deleted.
type Loan struct {
	ID         int64
	MemberID   int64
	BookID     int64
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     LoanStatus
}

// Overdue reports whether the loan is past due as of the given day.
func (l Loan) Overdue(today time.Time) bool {
	return l.Status == LoanActive && l.DueDate.Before(today)
}

// Reservation is a FIFO queue entry for a member waiting on a book.
type Reservation struct {
	ID              int64
	BookID          int64
	MemberID        int64
	ReservationDate time.Time
	Status          ReservationStatus
}

// Fine is a monetary penalty tied to one overdue loan, issued at most once
// per loan.
type Fine struct {
	ID         int64
	MemberID   int64
	LoanID     int64
	Amount     decimal.Decimal
	Status     FineStatus
	DateIssued time.Time
	DatePaid   *time.Time
}
