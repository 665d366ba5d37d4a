package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// AddBook inserts a new title and links its authors and subjects
// (found or created by name) in one transaction. A new book starts with all
// copies on the shelf and a zero borrow count.
func (l *Library) AddBook(book *Book, authorNames, subjectNames []string) (*Book, error) {
	if book.TotalCopies < 1 {
		return nil, fmt.Errorf("%w: a book needs at least one copy", ErrInvalidArgument)
	}
	book.CopiesAvailable = book.TotalCopies
	book.TimesBorrowed = 0

	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		id, err := l.store.InsertBook(tx, book)
		if err != nil {
			return err
		}
		book.ID = id

		for _, name := range authorNames {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			author, err := l.store.FindOrCreateAuthor(tx, name)
			if err != nil {
				return err
			}
			if err := l.store.LinkBookAuthor(tx, book.ID, author.ID); err != nil {
				return err
			}
			book.Authors = append(book.Authors, *author)
		}

		for _, name := range subjectNames {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			subject, err := l.store.FindOrCreateSubject(tx, name)
			if err != nil {
				return err
			}
			if err := l.store.LinkBookSubject(tx, book.ID, subject.ID); err != nil {
				return err
			}
			book.Subjects = append(book.Subjects, *subject)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// RemoveBook deletes a title. Copies out on loan block removal.
func (l *Library) RemoveBook(bookID int64) error {
	return l.db.WithTx(func(tx *sqlx.Tx) error {
		book, err := l.store.BookByID(tx, bookID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: book %d", ErrNotFound, bookID)
			}
			return err
		}
		if book.CopiesAvailable < book.TotalCopies {
			return fmt.Errorf("%w: copies of %q are on loan", ErrInvalidState, book.Title)
		}
		return l.store.DeleteBook(tx, bookID)
	})
}

// UpdateBookStock changes a book's total copy count. The new total cannot
// drop below the number of copies currently out on loan; the shelf count
// moves by the same delta as the total.
func (l *Library) UpdateBookStock(bookID int64, newTotal int) error {
	return l.db.WithTx(func(tx *sqlx.Tx) error {
		book, err := l.store.BookByID(tx, bookID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: book %d", ErrNotFound, bookID)
			}
			return err
		}
		onLoan := book.TotalCopies - book.CopiesAvailable
		if newTotal < onLoan {
			return fmt.Errorf("%w: new total %d is below the %d copies on loan", ErrInvalidState, newTotal, onLoan)
		}
		book.CopiesAvailable = newTotal - book.TotalCopies + book.CopiesAvailable
		book.TotalCopies = newTotal
		return l.store.UpdateBookCounts(tx, book)
	})
}

// Book fetches a single book with authors and subjects.
func (l *Library) Book(bookID int64) (*Book, error) {
	var book *Book
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		book, err = l.store.BookByID(tx, bookID)
		return err
	})
	return book, err
}

// Books lists the full catalog ordered by title.
func (l *Library) Books() ([]*Book, error) {
	var books []*Book
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		books, err = l.store.AllBooks(tx)
		return err
	})
	return books, err
}
