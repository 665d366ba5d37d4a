package library

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Store holds every CRUD query against the five tables. All methods take the
// active *sqlx.Tx explicitly so the service layer controls atomicity; none of
// them commit or roll back.
type Store struct{}

// ---------------------------------------------------------------------------
// Row types. Enum columns come back as raw strings and are validated in the
// mappers; a corrupt value fails loudly instead of defaulting.
// ---------------------------------------------------------------------------

type memberRow struct {
	MemberID         int64      `db:"member_id"`
	Name             string     `db:"name"`
	Username         string     `db:"username"`
	PasswordHash     string     `db:"password_hash"`
	Email            string     `db:"email"`
	PhoneNumber      string     `db:"phone_number"`
	Address          string     `db:"address"`
	MembershipType   string     `db:"membership_type"`
	MembershipStatus string     `db:"membership_status"`
	RegistrationDate time.Time  `db:"registration_date"`
	ExpiryDate       *time.Time `db:"expiry_date"`
}

func (r memberRow) toMember() (*Member, error) {
	mt, err := ParseMembershipType(r.MembershipType)
	if err != nil {
		return nil, storageErr("read member", err)
	}
	return &Member{
		ID:               r.MemberID,
		Name:             r.Name,
		Username:         r.Username,
		PasswordHash:     r.PasswordHash,
		Email:            r.Email,
		PhoneNumber:      r.PhoneNumber,
		Address:          r.Address,
		MembershipType:   mt,
		MembershipStatus: r.MembershipStatus,
		RegistrationDate: r.RegistrationDate,
		ExpiryDate:       r.ExpiryDate,
	}, nil
}

type bookRow struct {
	BookID          int64      `db:"book_id"`
	Title           string     `db:"title"`
	Publisher       string     `db:"publisher"`
	PublicationDate *time.Time `db:"publication_date"`
	TotalCopies     int        `db:"total_copies"`
	CopiesAvailable int        `db:"copies_available"`
	TimesBorrowed   int        `db:"times_borrowed"`
}

func (r bookRow) toBook() *Book {
	return &Book{
		ID:              r.BookID,
		Title:           r.Title,
		Publisher:       r.Publisher,
		PublicationDate: r.PublicationDate,
		TotalCopies:     r.TotalCopies,
		CopiesAvailable: r.CopiesAvailable,
		TimesBorrowed:   r.TimesBorrowed,
	}
}

type loanRow struct {
	LoanID     int64      `db:"loan_id"`
	MemberID   int64      `db:"member_id"`
	BookID     int64      `db:"book_id"`
	BorrowDate time.Time  `db:"borrow_date"`
	DueDate    time.Time  `db:"due_date"`
	ReturnDate *time.Time `db:"return_date"`
	Status     string     `db:"status"`
}

func (r loanRow) toLoan() (*Loan, error) {
	st, err := ParseLoanStatus(r.Status)
	if err != nil {
		return nil, storageErr("read loan", err)
	}
	return &Loan{
		ID:         r.LoanID,
		MemberID:   r.MemberID,
		BookID:     r.BookID,
		BorrowDate: r.BorrowDate,
		DueDate:    r.DueDate,
		ReturnDate: r.ReturnDate,
		Status:     st,
	}, nil
}

type reservationRow struct {
	ReservationID   int64     `db:"reservation_id"`
	BookID          int64     `db:"book_id"`
	MemberID        int64     `db:"member_id"`
	ReservationDate time.Time `db:"reservation_date"`
	Status          string    `db:"status"`
}

func (r reservationRow) toReservation() (*Reservation, error) {
	st, err := ParseReservationStatus(r.Status)
	if err != nil {
		return nil, storageErr("read reservation", err)
	}
	return &Reservation{
		ID:              r.ReservationID,
		BookID:          r.BookID,
		MemberID:        r.MemberID,
		ReservationDate: r.ReservationDate,
		Status:          st,
	}, nil
}

type fineRow struct {
	FineID     int64           `db:"fine_id"`
	MemberID   int64           `db:"member_id"`
	LoanID     int64           `db:"loan_id"`
	Amount     decimal.Decimal `db:"amount"`
	Status     string          `db:"status"`
	DateIssued time.Time       `db:"date_issued"`
	DatePaid   *time.Time      `db:"date_paid"`
}

func (r fineRow) toFine() (*Fine, error) {
	st, err := ParseFineStatus(r.Status)
	if err != nil {
		return nil, storageErr("read fine", err)
	}
	return &Fine{
		ID:         r.FineID,
		MemberID:   r.MemberID,
		LoanID:     r.LoanID,
		Amount:     r.Amount,
		Status:     st,
		DateIssued: r.DateIssued,
		DatePaid:   r.DatePaid,
	}, nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// InsertMember adds a new member and returns the generated id.
func (Store) InsertMember(tx *sqlx.Tx, m *Member) (int64, error) {
	res, err := tx.Exec(`INSERT INTO members
        (name, username, password_hash, email, phone_number, address, membership_type, membership_status, registration_date, expiry_date)
        VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.Name, m.Username, m.PasswordHash, m.Email, m.PhoneNumber, m.Address,
		string(m.MembershipType), m.MembershipStatus, m.RegistrationDate, m.ExpiryDate)
	if err != nil {
		return 0, storageErr("insert member", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert member", err)
	}
	return id, nil
}

// MemberByID fetches a member by primary key; ErrNotFound if absent.
func (Store) MemberByID(tx *sqlx.Tx, id int64) (*Member, error) {
	var r memberRow
	err := tx.Get(&r, `SELECT * FROM members WHERE member_id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("member by id", err)
	}
	return r.toMember()
}

// MemberByUsername fetches a member by unique username; ErrNotFound if absent.
func (Store) MemberByUsername(tx *sqlx.Tx, username string) (*Member, error) {
	var r memberRow
	err := tx.Get(&r, `SELECT * FROM members WHERE username=?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("member by username", err)
	}
	return r.toMember()
}

// AllMembers lists every member ordered by name.
func (Store) AllMembers(tx *sqlx.Tx) ([]*Member, error) {
	var rows []memberRow
	if err := tx.Select(&rows, `SELECT * FROM members ORDER BY name`); err != nil {
		return nil, storageErr("list members", err)
	}
	members := make([]*Member, 0, len(rows))
	for _, r := range rows {
		m, err := r.toMember()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// MemberHasActiveLoans reports whether the member has any unreturned loans.
func (Store) MemberHasActiveLoans(tx *sqlx.Tx, memberID int64) (bool, error) {
	var n int
	err := tx.Get(&n, `SELECT COUNT(*) FROM loans WHERE member_id=? AND status=?`, memberID, string(LoanActive))
	if err != nil {
		return false, storageErr("count active loans", err)
	}
	return n > 0, nil
}

// DeleteMember removes a member row; ErrNotFound when nothing was deleted.
func (Store) DeleteMember(tx *sqlx.Tx, memberID int64) error {
	res, err := tx.Exec(`DELETE FROM members WHERE member_id=?`, memberID)
	if err != nil {
		return storageErr("delete member", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete member", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books, authors, subjects
// ---------------------------------------------------------------------------

// InsertBook adds the core book record and returns the generated id.
func (Store) InsertBook(tx *sqlx.Tx, b *Book) (int64, error) {
	res, err := tx.Exec(`INSERT INTO books
        (title, publisher, publication_date, total_copies, copies_available, times_borrowed)
        VALUES (?,?,?,?,?,?)`,
		b.Title, b.Publisher, b.PublicationDate, b.TotalCopies, b.CopiesAvailable, b.TimesBorrowed)
	if err != nil {
		return 0, storageErr("insert book", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert book", err)
	}
	return id, nil
}

// BookByID fetches a book with its authors and subjects; ErrNotFound if absent.
func (s Store) BookByID(tx *sqlx.Tx, id int64) (*Book, error) {
	var r bookRow
	err := tx.Get(&r, `SELECT * FROM books WHERE book_id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("book by id", err)
	}
	b := r.toBook()
	if b.Authors, err = s.authorsForBook(tx, id); err != nil {
		return nil, err
	}
	if b.Subjects, err = s.subjectsForBook(tx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// AllBooks lists every book ordered by title, authors and subjects populated.
func (s Store) AllBooks(tx *sqlx.Tx) ([]*Book, error) {
	var rows []bookRow
	if err := tx.Select(&rows, `SELECT * FROM books ORDER BY title`); err != nil {
		return nil, storageErr("list books", err)
	}
	books := make([]*Book, 0, len(rows))
	for _, r := range rows {
		b := r.toBook()
		var err error
		if b.Authors, err = s.authorsForBook(tx, b.ID); err != nil {
			return nil, err
		}
		if b.Subjects, err = s.subjectsForBook(tx, b.ID); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// UpdateBookCounts persists the mutable copy counters of a book.
func (Store) UpdateBookCounts(tx *sqlx.Tx, b *Book) error {
	_, err := tx.Exec(`UPDATE books SET total_copies=?, copies_available=?, times_borrowed=? WHERE book_id=?`,
		b.TotalCopies, b.CopiesAvailable, b.TimesBorrowed, b.ID)
	if err != nil {
		return storageErr("update book counts", err)
	}
	return nil
}

// DeleteBook removes a book row; the ON DELETE CASCADE on the link tables
// removes its author/subject associations.
func (Store) DeleteBook(tx *sqlx.Tx, bookID int64) error {
	res, err := tx.Exec(`DELETE FROM books WHERE book_id=?`, bookID)
	if err != nil {
		return storageErr("delete book", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete book", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOrCreateAuthor returns the author with the given name, creating the row
// if it does not exist yet.
func (Store) FindOrCreateAuthor(tx *sqlx.Tx, name string) (*Author, error) {
	var a Author
	err := tx.Get(&a, `SELECT author_id, author_name FROM authors WHERE author_name=?`, name)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("find author", err)
	}
	res, err := tx.Exec(`INSERT INTO authors (author_name) VALUES (?)`, name)
	if err != nil {
		return nil, storageErr("create author", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("create author", err)
	}
	return &Author{ID: id, Name: name}, nil
}

// FindOrCreateSubject returns the subject with the given name, creating the
// row if it does not exist yet.
func (Store) FindOrCreateSubject(tx *sqlx.Tx, name string) (*Subject, error) {
	var s Subject
	err := tx.Get(&s, `SELECT subject_id, subject_name FROM subjects WHERE subject_name=?`, name)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("find subject", err)
	}
	res, err := tx.Exec(`INSERT INTO subjects (subject_name) VALUES (?)`, name)
	if err != nil {
		return nil, storageErr("create subject", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageErr("create subject", err)
	}
	return &Subject{ID: id, Name: name}, nil
}

// LinkBookAuthor ties a book to an author in the association table.
func (Store) LinkBookAuthor(tx *sqlx.Tx, bookID, authorID int64) error {
	if _, err := tx.Exec(`INSERT INTO book_authors (book_id, author_id) VALUES (?,?)`, bookID, authorID); err != nil {
		return storageErr("link author", err)
	}
	return nil
}

// LinkBookSubject ties a book to a subject in the association table.
func (Store) LinkBookSubject(tx *sqlx.Tx, bookID, subjectID int64) error {
	if _, err := tx.Exec(`INSERT INTO book_subjects (book_id, subject_id) VALUES (?,?)`, bookID, subjectID); err != nil {
		return storageErr("link subject", err)
	}
	return nil
}

func (Store) authorsForBook(tx *sqlx.Tx, bookID int64) ([]Author, error) {
	var authors []Author
	err := tx.Select(&authors, `SELECT a.author_id, a.author_name FROM authors a
        JOIN book_authors ba ON ba.author_id = a.author_id
        WHERE ba.book_id=? ORDER BY a.author_name`, bookID)
	if err != nil {
		return nil, storageErr("authors for book", err)
	}
	return authors, nil
}

func (Store) subjectsForBook(tx *sqlx.Tx, bookID int64) ([]Subject, error) {
	var subjects []Subject
	err := tx.Select(&subjects, `SELECT s.subject_id, s.subject_name FROM subjects s
        JOIN book_subjects bs ON bs.subject_id = s.subject_id
        WHERE bs.book_id=? ORDER BY s.subject_name`, bookID)
	if err != nil {
		return nil, storageErr("subjects for book", err)
	}
	return subjects, nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

// InsertLoan creates a loan record and returns the generated id.
func (Store) InsertLoan(tx *sqlx.Tx, l *Loan) (int64, error) {
	res, err := tx.Exec(`INSERT INTO loans (member_id, book_id, borrow_date, due_date, return_date, status)
        VALUES (?,?,?,?,?,?)`,
		l.MemberID, l.BookID, l.BorrowDate, l.DueDate, l.ReturnDate, string(l.Status))
	if err != nil {
		return 0, storageErr("insert loan", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert loan", err)
	}
	return id, nil
}

// LoanByID fetches a loan by primary key; ErrNotFound if absent.
func (Store) LoanByID(tx *sqlx.Tx, id int64) (*Loan, error) {
	var r loanRow
	err := tx.Get(&r, `SELECT * FROM loans WHERE loan_id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("loan by id", err)
	}
	return r.toLoan()
}

// ActiveLoan finds the ACTIVE loan for a (member, book) pair; ErrNotFound
// when the member has no open loan for that book.
func (Store) ActiveLoan(tx *sqlx.Tx, memberID, bookID int64) (*Loan, error) {
	var r loanRow
	err := tx.Get(&r, `SELECT * FROM loans WHERE member_id=? AND book_id=? AND status=?`,
		memberID, bookID, string(LoanActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("active loan", err)
	}
	return r.toLoan()
}

// AllLoans lists every loan, most recent borrow first.
func (s Store) AllLoans(tx *sqlx.Tx) ([]*Loan, error) {
	return s.selectLoans(tx, `SELECT * FROM loans ORDER BY borrow_date DESC, loan_id DESC`)
}

// LoansByMember lists a member's loans, most recent borrow first.
func (s Store) LoansByMember(tx *sqlx.Tx, memberID int64) ([]*Loan, error) {
	return s.selectLoans(tx, `SELECT * FROM loans WHERE member_id=? ORDER BY borrow_date DESC, loan_id DESC`, memberID)
}

// OverdueLoansWithoutFine returns ACTIVE loans past due as of today that have
// no fine row yet (anti-join), the working set of the fine batch.
func (s Store) OverdueLoansWithoutFine(tx *sqlx.Tx, today time.Time) ([]*Loan, error) {
	return s.selectLoans(tx, `SELECT l.* FROM loans l
        LEFT JOIN fines f ON f.loan_id = l.loan_id
        WHERE l.status=? AND l.due_date < ? AND f.fine_id IS NULL
        ORDER BY l.loan_id`, string(LoanActive), today)
}

func (Store) selectLoans(tx *sqlx.Tx, query string, args ...any) ([]*Loan, error) {
	var rows []loanRow
	if err := tx.Select(&rows, query, args...); err != nil {
		return nil, storageErr("list loans", err)
	}
	loans := make([]*Loan, 0, len(rows))
	for _, r := range rows {
		l, err := r.toLoan()
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, nil
}

// MarkLoanReturned sets the return date and flips the status to RETURNED.
func (Store) MarkLoanReturned(tx *sqlx.Tx, loanID int64, returnedOn time.Time) error {
	_, err := tx.Exec(`UPDATE loans SET return_date=?, status=? WHERE loan_id=?`,
		returnedOn, string(LoanReturned), loanID)
	if err != nil {
		return storageErr("mark loan returned", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

// InsertReservation adds a queue entry and returns the generated id.
func (Store) InsertReservation(tx *sqlx.Tx, r *Reservation) (int64, error) {
	res, err := tx.Exec(`INSERT INTO reservations (book_id, member_id, reservation_date, status) VALUES (?,?,?,?)`,
		r.BookID, r.MemberID, r.ReservationDate, string(r.Status))
	if err != nil {
		return 0, storageErr("insert reservation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert reservation", err)
	}
	return id, nil
}

// ReservationByID fetches a reservation by primary key; ErrNotFound if absent.
func (Store) ReservationByID(tx *sqlx.Tx, id int64) (*Reservation, error) {
	var r reservationRow
	err := tx.Get(&r, `SELECT * FROM reservations WHERE reservation_id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("reservation by id", err)
	}
	return r.toReservation()
}

// ReservationWithStatus finds the reservation for a (member, book) pair in a
// specific status; ErrNotFound when there is none.
func (Store) ReservationWithStatus(tx *sqlx.Tx, memberID, bookID int64, status ReservationStatus) (*Reservation, error) {
	var r reservationRow
	err := tx.Get(&r, `SELECT * FROM reservations WHERE member_id=? AND book_id=? AND status=?`,
		memberID, bookID, string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("reservation with status", err)
	}
	return r.toReservation()
}

// ActiveReservation finds a WAITING or AVAILABLE reservation for a
// (member, book) pair; ErrNotFound when there is none.
func (Store) ActiveReservation(tx *sqlx.Tx, memberID, bookID int64) (*Reservation, error) {
	var r reservationRow
	err := tx.Get(&r, `SELECT * FROM reservations WHERE member_id=? AND book_id=? AND status IN (?,?)`,
		memberID, bookID, string(ReservationWaiting), string(ReservationAvailable))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("active reservation", err)
	}
	return r.toReservation()
}

// NextWaitingReservation returns the oldest WAITING reservation for a book,
// ties broken by insertion id; ErrNotFound with an empty queue.
func (Store) NextWaitingReservation(tx *sqlx.Tx, bookID int64) (*Reservation, error) {
	var r reservationRow
	err := tx.Get(&r, `SELECT * FROM reservations WHERE book_id=? AND status=?
        ORDER BY reservation_date ASC, reservation_id ASC LIMIT 1`,
		bookID, string(ReservationWaiting))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("next waiting reservation", err)
	}
	return r.toReservation()
}

// UpdateReservationStatus transitions a reservation to a new status.
func (Store) UpdateReservationStatus(tx *sqlx.Tx, reservationID int64, status ReservationStatus) error {
	_, err := tx.Exec(`UPDATE reservations SET status=? WHERE reservation_id=?`, string(status), reservationID)
	if err != nil {
		return storageErr("update reservation status", err)
	}
	return nil
}

// ActiveReservationsByMember lists a member's WAITING and AVAILABLE
// reservations, oldest first.
func (s Store) ActiveReservationsByMember(tx *sqlx.Tx, memberID int64) ([]*Reservation, error) {
	return s.selectReservations(tx, `SELECT * FROM reservations
        WHERE member_id=? AND status IN (?,?)
        ORDER BY reservation_date ASC, reservation_id ASC`,
		memberID, string(ReservationWaiting), string(ReservationAvailable))
}

// AllActiveReservations lists every WAITING and AVAILABLE reservation,
// grouped by book then oldest first.
func (s Store) AllActiveReservations(tx *sqlx.Tx) ([]*Reservation, error) {
	return s.selectReservations(tx, `SELECT * FROM reservations
        WHERE status IN (?,?)
        ORDER BY book_id, reservation_date ASC, reservation_id ASC`,
		string(ReservationWaiting), string(ReservationAvailable))
}

func (Store) selectReservations(tx *sqlx.Tx, query string, args ...any) ([]*Reservation, error) {
	var rows []reservationRow
	if err := tx.Select(&rows, query, args...); err != nil {
		return nil, storageErr("list reservations", err)
	}
	reservations := make([]*Reservation, 0, len(rows))
	for _, r := range rows {
		res, err := r.toReservation()
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, nil
}

// ---------------------------------------------------------------------------
// Fines
// ---------------------------------------------------------------------------

// InsertFine creates a fine record and returns the generated id.
func (Store) InsertFine(tx *sqlx.Tx, f *Fine) (int64, error) {
	res, err := tx.Exec(`INSERT INTO fines (member_id, loan_id, amount, status, date_issued, date_paid)
        VALUES (?,?,?,?,?,?)`,
		f.MemberID, f.LoanID, f.Amount, string(f.Status), f.DateIssued, f.DatePaid)
	if err != nil {
		return 0, storageErr("insert fine", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert fine", err)
	}
	return id, nil
}

// FinesByMember lists a member's fines, newest first.
func (Store) FinesByMember(tx *sqlx.Tx, memberID int64) ([]*Fine, error) {
	var rows []fineRow
	err := tx.Select(&rows, `SELECT * FROM fines WHERE member_id=? ORDER BY date_issued DESC, fine_id DESC`, memberID)
	if err != nil {
		return nil, storageErr("list fines", err)
	}
	fines := make([]*Fine, 0, len(rows))
	for _, r := range rows {
		f, err := r.toFine()
		if err != nil {
			return nil, err
		}
		fines = append(fines, f)
	}
	return fines, nil
}
