package library

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RegisterMember creates a member account with a unique username and a
// bcrypt-hashed password. Registration date and ACTIVE status are set here.
func (l *Library) RegisterMember(member *Member, password string) (*Member, error) {
	if member.Username == "" {
		return nil, fmt.Errorf("%w: username required", ErrInvalidArgument)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password required", ErrInvalidArgument)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	member.PasswordHash = hash
	member.MembershipStatus = "ACTIVE"
	member.RegistrationDate = l.today()

	err = l.db.WithTx(func(tx *sqlx.Tx) error {
		if _, err := l.store.MemberByUsername(tx, member.Username); err == nil {
			return fmt.Errorf("%w: username %q is already taken", ErrConflict, member.Username)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		id, err := l.store.InsertMember(tx, member)
		if err != nil {
			return err
		}
		member.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember deletes a member account. Unreturned books block removal.
func (l *Library) RemoveMember(memberID int64) error {
	return l.db.WithTx(func(tx *sqlx.Tx) error {
		open, err := l.store.MemberHasActiveLoans(tx, memberID)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("%w: member %d has unreturned books", ErrInvalidState, memberID)
		}
		if err := l.store.DeleteMember(tx, memberID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: member %d", ErrNotFound, memberID)
			}
			return err
		}
		return nil
	})
}

// Member fetches a member by id.
func (l *Library) Member(memberID int64) (*Member, error) {
	var member *Member
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		member, err = l.store.MemberByID(tx, memberID)
		return err
	})
	return member, err
}

// Members lists every member ordered by name.
func (l *Library) Members() ([]*Member, error) {
	var members []*Member
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		var err error
		members, err = l.store.AllMembers(tx)
		return err
	})
	return members, err
}

// LibrarianLogin checks the supplied credentials against the configured
// librarian account. An empty configured password disables librarian login
// entirely.
func (l *Library) LibrarianLogin(username, password string) bool {
	if l.librarianPass == "" {
		return false
	}
	return username == l.librarianUser && password == l.librarianPass
}

// MemberLogin authenticates a member by username and password. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (l *Library) MemberLogin(username, password string) (*Member, error) {
	var member *Member
	err := l.db.WithTx(func(tx *sqlx.Tx) error {
		m, err := l.store.MemberByUsername(tx, username)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: invalid username or password", ErrForbidden)
			}
			return err
		}
		if !VerifyPassword(password, m.PasswordHash) {
			return fmt.Errorf("%w: invalid username or password", ErrForbidden)
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}
