package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"library-system/library"

	"golang.org/x/term"
)

func main() {
	cfg, err := library.LoadConfig(os.Getenv("LIBRARY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := library.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	lib, err := library.NewLibrary(db, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Management System!")
	fmt.Println("Commands: librarian, member, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "librarian":
			handleLibrarianLogin(scanner, lib)
		case "member":
			handleMemberLogin(scanner, lib)
		case "exit":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Unknown command. Type 'librarian', 'member', or 'exit'.")
		}
	}
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func readLine(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func readID(sc *bufio.Scanner, prompt string) (int64, bool) {
	s, ok := readLine(sc, prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Printf("Invalid ID: %s\n", s)
		return 0, false
	}
	return id, true
}

func readInt(sc *bufio.Scanner, prompt string) (int, bool) {
	s, ok := readLine(sc, prompt)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func handleLibrarianLogin(sc *bufio.Scanner, lib *library.Library) {
	username, ok := readLine(sc, "Username: ")
	if !ok {
		return
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if !lib.LibrarianLogin(username, password) {
		fmt.Println("Invalid librarian credentials.")
		return
	}
	fmt.Println("Logged in as librarian.")
	librarianMenu(sc, lib)
}

func handleMemberLogin(sc *bufio.Scanner, lib *library.Library) {
	username, ok := readLine(sc, "Username: ")
	if !ok {
		return
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	member, err := lib.MemberLogin(username, password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return
	}
	fmt.Printf("Welcome, %s!\n", member.Name)
	memberMenu(sc, lib, member)
}

// ---------------------------------------------------------------------------
// Librarian menu
// ---------------------------------------------------------------------------

func librarianMenu(sc *bufio.Scanner, lib *library.Library) {
	fmt.Println("Librarian commands:")
	fmt.Println("  Members: list members, add member, remove member")
	fmt.Println("  Books: list books, add book, remove book, update stock")
	fmt.Println("  Loans: list loans, generate fines")
	fmt.Println("  Reservations: list reservations, notify next, force fulfill")
	fmt.Println("  Session: logout")

	for {
		fmt.Print("\nlibrarian> ")
		if !sc.Scan() {
			return
		}
		switch strings.TrimSpace(sc.Text()) {
		case "list members":
			handleListMembers(lib)
		case "add member":
			handleAddMember(sc, lib)
		case "remove member":
			handleRemoveMember(sc, lib)
		case "list books":
			handleListBooks(lib)
		case "add book":
			handleAddBook(sc, lib)
		case "remove book":
			handleRemoveBook(sc, lib)
		case "update stock":
			handleUpdateStock(sc, lib)
		case "list loans":
			handleListLoans(lib)
		case "generate fines":
			handleGenerateFines(lib)
		case "list reservations":
			handleListReservations(lib)
		case "notify next":
			handleNotifyNext(sc, lib)
		case "force fulfill":
			handleForceFulfill(sc, lib)
		case "logout":
			fmt.Println("Logged out.")
			return
		default:
			fmt.Println("Unknown command. Type one of the commands listed above.")
		}
	}
}

func handleListMembers(lib *library.Library) {
	members, err := lib.Members()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Printf("%-5s %-25s %-20s %-10s %-10s %s\n", "ID", "Name", "Username", "Type", "Status", "Joined")
	fmt.Println(strings.Repeat("-", 90))
	for _, m := range members {
		fmt.Printf("%-5d %-25s %-20s %-10s %-10s %s\n",
			m.ID, truncateString(m.Name, 25), truncateString(m.Username, 20),
			m.MembershipType, m.MembershipStatus, m.RegistrationDate.Format("2006-01-02"))
	}
}

func handleAddMember(sc *bufio.Scanner, lib *library.Library) {
	name, ok := readLine(sc, "Name: ")
	if !ok {
		return
	}
	username, ok := readLine(sc, "Username: ")
	if !ok {
		return
	}
	email, ok := readLine(sc, "Email: ")
	if !ok {
		return
	}
	phone, ok := readLine(sc, "Phone: ")
	if !ok {
		return
	}
	address, ok := readLine(sc, "Address: ")
	if !ok {
		return
	}
	typeStr, ok := readLine(sc, "Membership type (PUBLIC/STUDENT/FACULTY/SENIOR/YOUTH): ")
	if !ok {
		return
	}
	membershipType, err := library.ParseMembershipType(strings.ToUpper(typeStr))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}

	member, err := lib.RegisterMember(&library.Member{
		Name:           name,
		Username:       username,
		Email:          email,
		PhoneNumber:    phone,
		Address:        address,
		MembershipType: membershipType,
	}, password)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Added member '%s' with ID %d\n", member.Name, member.ID)
}

func handleRemoveMember(sc *bufio.Scanner, lib *library.Library) {
	id, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	if err := lib.RemoveMember(id); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Member %d removed.\n", id)
}

func handleListBooks(lib *library.Library) {
	books, err := lib.Books()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-5s %-35s %-30s %-12s %s\n", "ID", "Title", "Authors", "Available", "Borrowed")
	fmt.Println(strings.Repeat("-", 100))
	for _, b := range books {
		names := make([]string, 0, len(b.Authors))
		for _, a := range b.Authors {
			names = append(names, a.Name)
		}
		fmt.Printf("%-5d %-35s %-30s %3d / %-6d %d time(s)\n",
			b.ID, truncateString(b.Title, 35), truncateString(strings.Join(names, ", "), 30),
			b.CopiesAvailable, b.TotalCopies, b.TimesBorrowed)
	}
}

func handleAddBook(sc *bufio.Scanner, lib *library.Library) {
	title, ok := readLine(sc, "Title: ")
	if !ok {
		return
	}
	publisher, ok := readLine(sc, "Publisher: ")
	if !ok {
		return
	}
	pubDateStr, ok := readLine(sc, "Publication date (YYYY-MM-DD, optional): ")
	if !ok {
		return
	}
	var pubDate *time.Time
	if pubDateStr != "" {
		d, err := time.Parse("2006-01-02", pubDateStr)
		if err != nil {
			fmt.Printf("Invalid date: %s\n", pubDateStr)
			return
		}
		pubDate = &d
	}
	copies, ok := readInt(sc, "Total copies: ")
	if !ok {
		return
	}
	authors, ok := readLine(sc, "Authors (comma separated): ")
	if !ok {
		return
	}
	subjects, ok := readLine(sc, "Subjects (comma separated): ")
	if !ok {
		return
	}

	book, err := lib.AddBook(&library.Book{
		Title:           title,
		Publisher:       publisher,
		PublicationDate: pubDate,
		TotalCopies:     copies,
	}, strings.Split(authors, ","), strings.Split(subjects, ","))
	if err != nil {
		fmt.Printf("Error adding book: %v\n", err)
		return
	}
	fmt.Printf("Added book ID %d with %d copies.\n", book.ID, book.TotalCopies)
}

func handleRemoveBook(sc *bufio.Scanner, lib *library.Library) {
	id, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	if err := lib.RemoveBook(id); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Book %d removed.\n", id)
}

func handleUpdateStock(sc *bufio.Scanner, lib *library.Library) {
	id, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	total, ok := readInt(sc, "New total copies: ")
	if !ok {
		return
	}
	if err := lib.UpdateBookStock(id, total); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Stock for book %d updated to %d copies.\n", id, total)
}

func handleListLoans(lib *library.Library) {
	loans, err := lib.Loans()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printLoans(loans)
}

func handleGenerateFines(lib *library.Library) {
	count, err := lib.GenerateFines()
	if err != nil {
		fmt.Printf("Error generating fines: %v\n", err)
		return
	}
	fmt.Printf("Generated %d fine(s).\n", count)
}

func handleListReservations(lib *library.Library) {
	reservations, err := lib.ActiveReservations()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printReservations(reservations)
}

func handleNotifyNext(sc *bufio.Scanner, lib *library.Library) {
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	res, err := lib.NotifyNextReservation(bookID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	member, err := lib.Member(res.MemberID)
	if err != nil {
		fmt.Printf("Reservation %d is now AVAILABLE for member %d.\n", res.ID, res.MemberID)
		return
	}
	fmt.Printf("Reservation %d is now AVAILABLE. Notify %s (%s).\n", res.ID, member.Name, member.Email)
}

func handleForceFulfill(sc *bufio.Scanner, lib *library.Library) {
	id, ok := readID(sc, "Reservation ID: ")
	if !ok {
		return
	}
	if err := lib.ForceFulfillReservation(id); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Reservation %d marked FULFILLED.\n", id)
}

// ---------------------------------------------------------------------------
// Member menu
// ---------------------------------------------------------------------------

func memberMenu(sc *bufio.Scanner, lib *library.Library, member *library.Member) {
	fmt.Println("Member commands: list books, borrow, return, my loans, reserve, my reservations, my fines, logout")

	for {
		fmt.Printf("\n%s> ", member.Username)
		if !sc.Scan() {
			return
		}
		switch strings.TrimSpace(sc.Text()) {
		case "list books":
			handleListBooks(lib)
		case "borrow":
			handleBorrow(sc, lib, member)
		case "return":
			handleReturn(sc, lib, member)
		case "my loans":
			handleMyLoans(lib, member)
		case "reserve":
			handleReserve(sc, lib, member)
		case "my reservations":
			handleMyReservations(lib, member)
		case "my fines":
			handleMyFines(lib, member)
		case "logout":
			fmt.Println("Logged out.")
			return
		default:
			fmt.Println("Unknown command. Type one of the commands listed above.")
		}
	}
}

func handleBorrow(sc *bufio.Scanner, lib *library.Library, member *library.Member) {
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	loan, err := lib.Borrow(member.ID, bookID)
	if err != nil {
		fmt.Printf("Error borrowing book: %v\n", err)
		return
	}
	fmt.Printf("Borrowed. Loan ID %d, due on %s.\n", loan.ID, loan.DueDate.Format("2006-01-02"))
}

func handleReturn(sc *bufio.Scanner, lib *library.Library, member *library.Member) {
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	loanID, ok := readID(sc, "Loan ID: ")
	if !ok {
		return
	}
	if err := lib.Return(member.ID, bookID, loanID); err != nil {
		fmt.Printf("Error returning book: %v\n", err)
		return
	}
	fmt.Println("Book returned.")
}

func handleMyLoans(lib *library.Library, member *library.Member) {
	loans, err := lib.MemberLoans(member.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printLoans(loans)
}

func handleReserve(sc *bufio.Scanner, lib *library.Library, member *library.Member) {
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	res, err := lib.PlaceReservation(member.ID, bookID)
	if err != nil {
		fmt.Printf("Error placing reservation: %v\n", err)
		return
	}
	fmt.Printf("Reservation %d placed. You will be notified when a copy is available.\n", res.ID)
}

func handleMyReservations(lib *library.Library, member *library.Member) {
	reservations, err := lib.MemberReservations(member.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printReservations(reservations)
}

func handleMyFines(lib *library.Library, member *library.Member) {
	fines, err := lib.MemberFines(member.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(fines) == 0 {
		fmt.Println("No fines.")
		return
	}
	fmt.Printf("%-5s %-8s %-12s %-12s %s\n", "ID", "Loan", "Amount", "Status", "Issued")
	fmt.Println(strings.Repeat("-", 55))
	for _, f := range fines {
		fmt.Printf("%-5d %-8d %-12s %-12s %s\n",
			f.ID, f.LoanID, f.Amount.StringFixed(2), f.Status, f.DateIssued.Format("2006-01-02"))
	}
}

// ---------------------------------------------------------------------------
// Shared output helpers
// ---------------------------------------------------------------------------

func printLoans(loans []*library.Loan) {
	if len(loans) == 0 {
		fmt.Println("No loans.")
		return
	}
	fmt.Printf("%-5s %-8s %-8s %-12s %-12s %-12s %s\n", "ID", "Member", "Book", "Borrowed", "Due", "Returned", "Status")
	fmt.Println(strings.Repeat("-", 75))
	for _, l := range loans {
		returned := "-"
		if l.ReturnDate != nil {
			returned = l.ReturnDate.Format("2006-01-02")
		}
		fmt.Printf("%-5d %-8d %-8d %-12s %-12s %-12s %s\n",
			l.ID, l.MemberID, l.BookID,
			l.BorrowDate.Format("2006-01-02"), l.DueDate.Format("2006-01-02"), returned, l.Status)
	}
}

func printReservations(reservations []*library.Reservation) {
	if len(reservations) == 0 {
		fmt.Println("No active reservations.")
		return
	}
	fmt.Printf("%-5s %-8s %-8s %-20s %s\n", "ID", "Book", "Member", "Placed", "Status")
	fmt.Println(strings.Repeat("-", 60))
	for _, r := range reservations {
		fmt.Printf("%-5d %-8d %-8d %-20s %s\n",
			r.ID, r.BookID, r.MemberID, r.ReservationDate.Format("2006-01-02 15:04"), r.Status)
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
