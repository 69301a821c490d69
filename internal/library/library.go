// Package library holds the books and loans served by the Library API, kept
// in memory.
package library

import (
	"errors"

	"github.com/google/uuid"
)

// Domain errors. Handlers map them to HTTP status codes.
var (
	// ErrBookNotFound is returned when a book id is unknown.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookAlreadyLoaned is returned when a book is on a loan that has not
	// been returned.
	ErrBookAlreadyLoaned = errors.New("book is already loaned")

	// ErrLoanNotFound is returned when a loan id is unknown.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanNotApproved is returned when returning a loan that was never
	// approved.
	ErrLoanNotApproved = errors.New("loan was not approved")

	// ErrLoanNotRequested is returned when approving a loan that is not
	// waiting for approval.
	ErrLoanNotRequested = errors.New("loan is not awaiting approval")

	// ErrUserRequired is returned when listing loans without a user.
	ErrUserRequired = errors.New("a user id must be provided")
)

// Book is a single copy of a title. Two issues of the same title share an
// ISBN.
type Book struct {
	ID     uuid.UUID `json:"id"`
	Issue  int       `json:"issue"`
	ISBN   string    `json:"isbn"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// LoanStatus is the lifecycle state of a Loan.
type LoanStatus string

// Loan states. A loan is requested, then approved, then returned.
const (
	LoanRequested LoanStatus = "requested"
	LoanApproved  LoanStatus = "approved"
	LoanReturned  LoanStatus = "returned"
)

// Loan is a user's request to borrow a book.
type Loan struct {
	ID     uuid.UUID  `json:"id"`
	BookID uuid.UUID  `json:"book_id"`
	UserID string     `json:"user_id"`
	Status LoanStatus `json:"status"`
}

// Seed book ids.
var (
	BookOneFirstIssue  = uuid.MustParse("daa5931c-87e1-4111-bf05-639144dc46f5")
	BookOneSecondIssue = uuid.MustParse("3f5f7000-c2c0-4d14-888c-c5a5631b5a38")
	BookTwo            = uuid.MustParse("e25921b9-e681-4b03-88be-2e411fec5d2b")
)

// SeedBooks returns the catalogue a fresh server starts with.
func SeedBooks() []Book {
	return []Book{
		{ID: BookOneFirstIssue, Issue: 1, ISBN: "978-3-16-148410-0", Title: "Book 1", Author: "Author 1"},
		{ID: BookOneSecondIssue, Issue: 2, ISBN: "978-3-16-148410-0", Title: "Book 1", Author: "Author 1"},
		{ID: BookTwo, Issue: 1, ISBN: "978-4-25-652123-0", Title: "Book 2", Author: "Author 2"},
	}
}
