package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ginguard "github.com/fabiensh/library-api/framework/gin"
	"github.com/fabiensh/library-api/internal/config"
	"github.com/fabiensh/library-api/internal/library"
	"github.com/fabiensh/library-api/permission"
)

const (
	invalidIDDetail    = "The given ID is not a valid UUID."
	invalidBodyDetail  = "The request body is invalid."
	notYourLoanDetail  = "Loan belongs to another user."
	internalDetail     = "Something went wrong."
	missingIdentityMsg = "No access token can be found in the Authorization header"
)

var libraryErrors = []struct {
	err    error
	status int
	detail string
}{
	{library.ErrBookNotFound, http.StatusNotFound, "Book with given ID does not exist."},
	{library.ErrBookAlreadyLoaned, http.StatusConflict, "Book is already loaned."},
	{library.ErrLoanNotFound, http.StatusNotFound, "Loan with given ID does not exist."},
	{library.ErrLoanNotApproved, http.StatusBadRequest, "Cannot return a loan that was not approved."},
	{library.ErrLoanNotRequested, http.StatusConflict, "Only a requested loan can be approved."},
	{library.ErrUserRequired, http.StatusBadRequest, "A user must be provided."},
}

type handlers struct {
	books *library.BookRepository
	loans *library.LoanRepository
	auth  config.AuthConfig
}

type detail struct {
	Detail string `json:"detail"`
}

type authConfigResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	TokenURL         string `json:"token_url"`
	Audience         string `json:"audience"`
	ClientID         string `json:"client_id,omitempty"`
}

type createBookRequest struct {
	Issue  int    `json:"issue" binding:"required,min=1"`
	ISBN   string `json:"isbn" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
}

type requestLoanRequest struct {
	BookID uuid.UUID `json:"book_id" binding:"required"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) authConfig(c *gin.Context) {
	c.JSON(http.StatusOK, authConfigResponse{
		AuthorizationURL: h.auth.AuthorizationURL(),
		TokenURL:         h.auth.TokenURL(),
		Audience:         h.auth.Audience,
		ClientID:         h.auth.ClientID,
	})
}

func (h *handlers) introspection(c *gin.Context) {
	identity, err := ginguard.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, detail{missingIdentityMsg})
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *handlers) listBooks(c *gin.Context) {
	c.JSON(http.StatusOK, h.books.List())
}

func (h *handlers) getBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	book, err := h.books.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *handlers) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail{invalidBodyDetail})
		return
	}
	book := h.books.Create(library.Book{
		Issue:  req.Issue,
		ISBN:   req.ISBN,
		Title:  req.Title,
		Author: req.Author,
	})
	c.JSON(http.StatusCreated, book)
}

func (h *handlers) requestLoan(c *gin.Context) {
	identity, err := ginguard.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, detail{missingIdentityMsg})
		return
	}

	var req requestLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail{invalidBodyDetail})
		return
	}

	loan, err := h.loans.Request(req.BookID, identity.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *handlers) listLoans(c *gin.Context) {
	identity, err := ginguard.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, detail{missingIdentityMsg})
		return
	}
	loans, err := h.loans.List(identity.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (h *handlers) listAllLoans(c *gin.Context) {
	c.JSON(http.StatusOK, h.loans.ListAll())
}

func (h *handlers) approveLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	loan, err := h.loans.Approve(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// returnLoan lets approvers return any loan and borrowers their own.
func (h *handlers) returnLoan(c *gin.Context) {
	identity, err := ginguard.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, detail{missingIdentityMsg})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if !identity.HasPermission(permission.LoanApprove) {
		loan, err := h.loans.Get(id)
		if err != nil {
			writeError(c, err)
			return
		}
		if loan.UserID != identity.Subject {
			c.JSON(http.StatusForbidden, detail{notYourLoanDetail})
			return
		}
	}

	loan, err := h.loans.Return(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *handlers) deleteLoan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.loans.Delete(id)
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, detail{invalidIDDetail})
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	for _, e := range libraryErrors {
		if errors.Is(err, e.err) {
			c.JSON(e.status, detail{e.detail})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, detail{internalDetail})
}
