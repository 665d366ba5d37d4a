package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBookLinksAuthorsAndSubjects(t *testing.T) {
	lib := newTestLibrary(t)

	first, err := lib.AddBook(&Book{Title: "Dune", TotalCopies: 2},
		[]string{"Frank Herbert"}, []string{"Science Fiction", "Politics"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.CopiesAvailable)
	assert.Equal(t, 0, first.TimesBorrowed)
	require.Len(t, first.Authors, 1)
	require.Len(t, first.Subjects, 2)

	// Same author name on a second title reuses the row instead of
	// duplicating it.
	second, err := lib.AddBook(&Book{Title: "Dune Messiah", TotalCopies: 1},
		[]string{"Frank Herbert"}, []string{"Science Fiction"})
	require.NoError(t, err)
	require.Len(t, second.Authors, 1)
	assert.Equal(t, first.Authors[0].ID, second.Authors[0].ID)
	assert.Equal(t, first.Subjects[0].ID, second.Subjects[0].ID)
}

func TestAddBookRequiresCopies(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.AddBook(&Book{Title: "Empty Shelf", TotalCopies: 0}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRemoveBookGuards(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Removable", 1)
	alice := addTestMember(t, lib, "alice")

	assert.ErrorIs(t, lib.RemoveBook(9999), ErrNotFound)

	loan, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, lib.RemoveBook(book.ID), ErrInvalidState)

	require.NoError(t, lib.Return(alice.ID, book.ID, loan.ID))
	require.NoError(t, lib.RemoveBook(book.ID))

	_, err = lib.Book(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBookStock(t *testing.T) {
	lib := newTestLibrary(t)
	book := addTestBook(t, lib, "Restocked", 1)
	alice := addTestMember(t, lib, "alice")

	_, err := lib.Borrow(alice.ID, book.ID)
	require.NoError(t, err)

	// One copy out on loan: growing the total grows the shelf by the delta.
	require.NoError(t, lib.UpdateBookStock(book.ID, 3))
	after, err := lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.TotalCopies)
	assert.Equal(t, 2, after.CopiesAvailable)

	// Shrinking to exactly the loaned count empties the shelf.
	require.NoError(t, lib.UpdateBookStock(book.ID, 1))
	after, err = lib.Book(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.TotalCopies)
	assert.Equal(t, 0, after.CopiesAvailable)

	// Below the loaned count is not a valid stock level.
	assert.ErrorIs(t, lib.UpdateBookStock(book.ID, 0), ErrInvalidState)

	assert.ErrorIs(t, lib.UpdateBookStock(9999, 5), ErrNotFound)
}

func TestBooksOrderedByTitle(t *testing.T) {
	lib := newTestLibrary(t)
	addTestBook(t, lib, "Zebra Crossing", 1)
	addTestBook(t, lib, "Aardvark Atlas", 1)
	addTestBook(t, lib, "Mid Shelf", 1)

	books, err := lib.Books()
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Aardvark Atlas", books[0].Title)
	assert.Equal(t, "Mid Shelf", books[1].Title)
	assert.Equal(t, "Zebra Crossing", books[2].Title)
}
