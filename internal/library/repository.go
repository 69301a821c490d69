package library

import (
	"sync"

	"github.com/google/uuid"
)

// BookRepository stores books in memory. It is safe for concurrent use.
type BookRepository struct {
	mu    sync.RWMutex
	books []Book
}

// NewBookRepository returns a repository holding books.
func NewBookRepository(books ...Book) *BookRepository {
	return &BookRepository{books: append([]Book(nil), books...)}
}

// Get returns the book with id.
func (r *BookRepository) Get(id uuid.UUID) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrBookNotFound
}

// List returns every book in insertion order.
func (r *BookRepository) List() []Book {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Book(nil), r.books...)
}

// Create stores book. A zero id is replaced by a random one.
func (r *BookRepository) Create(book Book) Book {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.books = append(r.books, book)
	return book
}

// LoanRepository stores loans in memory. It is safe for concurrent use.
type LoanRepository struct {
	books *BookRepository

	mu    sync.RWMutex
	loans map[uuid.UUID]Loan
	order []uuid.UUID
}

// NewLoanRepository returns an empty repository lending books from books.
func NewLoanRepository(books *BookRepository) *LoanRepository {
	return &LoanRepository{
		books: books,
		loans: make(map[uuid.UUID]Loan),
	}
}

// Get returns the loan with id.
func (r *LoanRepository) Get(id uuid.UUID) (Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loan, ok := r.loans[id]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	return loan, nil
}

// List returns the loans of userID.
func (r *LoanRepository) List(userID string) ([]Loan, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	loans := []Loan{}
	for _, id := range r.order {
		if loan := r.loans[id]; loan.UserID == userID {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

// ListAll returns every loan in request order.
func (r *LoanRepository) ListAll() []Loan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loans := make([]Loan, 0, len(r.order))
	for _, id := range r.order {
		loans = append(loans, r.loans[id])
	}
	return loans
}

// Request opens a loan of bookID for userID. The book must exist and must
// not be on a loan that has not been returned.
func (r *LoanRepository) Request(bookID uuid.UUID, userID string) (Loan, error) {
	if _, err := r.books.Get(bookID); err != nil {
		return Loan{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, loan := range r.loans {
		if loan.BookID == bookID && loan.Status != LoanReturned {
			return Loan{}, ErrBookAlreadyLoaned
		}
	}

	loan := Loan{
		ID:     uuid.New(),
		BookID: bookID,
		UserID: userID,
		Status: LoanRequested,
	}
	r.loans[loan.ID] = loan
	r.order = append(r.order, loan.ID)
	return loan, nil
}

// Approve marks a requested loan as approved.
func (r *LoanRepository) Approve(id uuid.UUID) (Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loan, ok := r.loans[id]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	if loan.Status != LoanRequested {
		return Loan{}, ErrLoanNotRequested
	}
	loan.Status = LoanApproved
	r.loans[id] = loan
	return loan, nil
}

// Return marks an approved loan as returned, which frees the book.
func (r *LoanRepository) Return(id uuid.UUID) (Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loan, ok := r.loans[id]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	if loan.Status != LoanApproved {
		return Loan{}, ErrLoanNotApproved
	}
	loan.Status = LoanReturned
	r.loans[id] = loan
	return loan, nil
}

// Delete removes the loan. Deleting an unknown loan is a no-op.
func (r *LoanRepository) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[id]; !ok {
		return
	}
	delete(r.loans, id)
	for i, loanID := range r.order {
		if loanID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
