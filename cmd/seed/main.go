package main

import (
	"fmt"
	"os"

	"library-system/library"
)

// Seeds a fresh database with a small demo catalog and a few member accounts.

type seedBook struct {
	title     string
	publisher string
	copies    int
	authors   []string
	subjects  []string
}

type seedMember struct {
	name           string
	username       string
	email          string
	membershipType library.MembershipType
	password       string
}

func main() {
	cfg, err := library.LoadConfig(os.Getenv("LIBRARY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Clean up any existing database files so the seed starts fresh.
	fmt.Println("Cleaning up existing database files...")
	for _, suffix := range []string{"", "-shm", "-wal"} {
		if err := os.Remove(cfg.Database.Path + suffix); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: could not remove %s%s: %v\n", cfg.Database.Path, suffix, err)
		}
	}

	db, err := library.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	lib, err := library.NewLibrary(db, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	books := []seedBook{
		{"1984", "Secker & Warburg", 3, []string{"George Orwell"}, []string{"Dystopia", "Politics"}},
		{"Animal Farm", "Secker & Warburg", 2, []string{"George Orwell"}, []string{"Satire", "Politics"}},
		{"The Fellowship of the Ring", "Allen & Unwin", 2, []string{"J.R.R. Tolkien"}, []string{"Fantasy"}},
		{"The Two Towers", "Allen & Unwin", 2, []string{"J.R.R. Tolkien"}, []string{"Fantasy"}},
		{"The Art of War", "", 1, []string{"Sun Tzu"}, []string{"Strategy", "Philosophy"}},
		{"Romeo and Juliet", "", 1, []string{"William Shakespeare"}, []string{"Drama"}},
		{"The Three Musketeers", "Baudry", 2, []string{"Alexandre Dumas"}, []string{"Adventure"}},
	}

	members := []seedMember{
		{"Alice Martin", "alice", "alice@example.com", library.MembershipPublic, "alice-reads-books"},
		{"Bob Chen", "bob", "bob@example.com", library.MembershipStudent, "bob-reads-books"},
		{"Charlie Osei", "charlie", "charlie@example.com", library.MembershipFaculty, "charlie-reads-books"},
	}

	imported := 0
	for _, b := range books {
		book, err := lib.AddBook(&library.Book{
			Title:       b.title,
			Publisher:   b.publisher,
			TotalCopies: b.copies,
		}, b.authors, b.subjects)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding %q: %v\n", b.title, err)
			os.Exit(1)
		}
		fmt.Printf("Added book ID %d: %s\n", book.ID, book.Title)
		imported++
	}

	registered := 0
	for _, m := range members {
		member, err := lib.RegisterMember(&library.Member{
			Name:           m.name,
			Username:       m.username,
			Email:          m.email,
			MembershipType: m.membershipType,
		}, m.password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error registering %q: %v\n", m.username, err)
			os.Exit(1)
		}
		fmt.Printf("Registered member ID %d: %s (%s)\n", member.ID, member.Name, member.Username)
		registered++
	}

	fmt.Printf("Seed complete: %d books, %d members.\n", imported, registered)
}
