package library

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection and owns the unit-of-work boundary. Every
// multi-step operation runs inside exactly one WithTx call.
type DB struct {
	db *sqlx.DB
}

// Open opens (or creates) the SQLite database at dbPath and applies schema
// migrations.
func Open(dbPath string) (*DB, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// WithTx runs fn inside a transaction. A nil return from fn commits; any
// error rolls back every write and is returned unchanged, so the specific
// error kind survives the rollback.
func (d *DB) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit tx", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            member_id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone_number TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            membership_type TEXT NOT NULL,
            membership_status TEXT NOT NULL DEFAULT 'ACTIVE',
            registration_date DATE NOT NULL,
            expiry_date DATE
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            book_id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            publisher TEXT NOT NULL DEFAULT '',
            publication_date DATE,
            total_copies INTEGER NOT NULL,
            copies_available INTEGER NOT NULL,
            times_borrowed INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS authors (
            author_id INTEGER PRIMARY KEY AUTOINCREMENT,
            author_name TEXT NOT NULL UNIQUE
        );`,
		`CREATE TABLE IF NOT EXISTS subjects (
            subject_id INTEGER PRIMARY KEY AUTOINCREMENT,
            subject_name TEXT NOT NULL UNIQUE
        );`,
		`CREATE TABLE IF NOT EXISTS book_authors (
            book_id INTEGER NOT NULL REFERENCES books(book_id) ON DELETE CASCADE,
            author_id INTEGER NOT NULL REFERENCES authors(author_id) ON DELETE CASCADE,
            PRIMARY KEY (book_id, author_id)
        );`,
		`CREATE TABLE IF NOT EXISTS book_subjects (
            book_id INTEGER NOT NULL REFERENCES books(book_id) ON DELETE CASCADE,
            subject_id INTEGER NOT NULL REFERENCES subjects(subject_id) ON DELETE CASCADE,
            PRIMARY KEY (book_id, subject_id)
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            loan_id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id INTEGER NOT NULL REFERENCES members(member_id),
            book_id INTEGER NOT NULL REFERENCES books(book_id),
            borrow_date DATE NOT NULL,
            due_date DATE NOT NULL,
            return_date DATE,
            status TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS reservations (
            reservation_id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(book_id),
            member_id INTEGER NOT NULL REFERENCES members(member_id),
            reservation_date DATETIME NOT NULL,
            status TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS fines (
            fine_id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id INTEGER NOT NULL REFERENCES members(member_id),
            loan_id INTEGER NOT NULL REFERENCES loans(loan_id),
            amount TEXT NOT NULL,
            status TEXT NOT NULL,
            date_issued DATE NOT NULL,
            date_paid DATE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_member_book ON loans(member_id, book_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_book ON reservations(book_id, status, reservation_date);`,
		`CREATE INDEX IF NOT EXISTS idx_fines_loan ON fines(loan_id);`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}
