package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
	"libraryledger/internal/services"
)

const dateLayout = "2006-01-02"

type LibraryHandler struct {
	svc services.LibraryService
}

func RegisterRoutes(r *gin.Engine, svc services.LibraryService) {
	h := &LibraryHandler{svc: svc}

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Catalog
	r.GET("/categories", h.listCategories)
	r.POST("/categories", h.createCategory)
	r.DELETE("/categories/:id", h.deleteCategory)

	r.GET("/books", h.listActiveBooks)
	r.GET("/books/all", h.listAllBooks)
	r.POST("/books", h.createBook)
	r.GET("/books/:id", h.getBook)
	r.PATCH("/books/:id", h.updateBook)
	r.DELETE("/books/:id", h.deleteBook)
	r.POST("/books/:id/deactivate", h.deactivateBook)
	r.GET("/books/:id/reservations", h.listReservations)
	r.POST("/books/:id/reservations", h.placeReservation)

	// Readers
	r.GET("/readers", h.listReaders)
	r.POST("/readers", h.registerReader)
	r.GET("/readers/:id", h.getReader)
	r.DELETE("/readers/:id", h.deleteReader)
	r.GET("/readers/:id/loans", h.listReaderLoans)

	// Loans
	r.GET("/loans", h.listLoans)
	r.POST("/loans", h.createLoan)
	r.GET("/loans/:id", h.getLoan)
	r.PATCH("/loans/:id", h.updateLoan)

	// Damages
	r.GET("/damages", h.listDamages)
	r.POST("/damages", h.recordDamage)
	r.GET("/damages/:id", h.getDamage)
	r.PATCH("/damages/:id", h.updateDamage)

	// Reservations
	r.DELETE("/reservations/:id", h.cancelReservation)
	r.POST("/reservations/:id/fulfill", h.fulfillReservation)
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidDamageType):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrReaderNotFound),
		errors.Is(err, services.ErrLoanNotFound),
		errors.Is(err, services.ErrDamageNotFound),
		errors.Is(err, services.ErrReservationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInventoryExhausted),
		errors.Is(err, services.ErrProtected),
		errors.Is(err, services.ErrDuplicateBookCode),
		errors.Is(err, services.ErrDuplicateCardID),
		errors.Is(err, services.ErrDuplicateReservation),
		errors.Is(err, services.ErrCopiesAvailable),
		errors.Is(err, services.ErrNotHeadOfQueue),
		errors.Is(err, services.ErrCopyAlreadyLost):
		status = http.StatusConflict
	case errors.Is(err, services.ErrIntegrityViolation):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// parseDate turns an optional YYYY-MM-DD string into a date.
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ─── Categories ───────────────────────────────────────────────────────────────

type createCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (h *LibraryHandler) listCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *LibraryHandler) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	category, err := h.svc.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *LibraryHandler) deleteCategory(c *gin.Context) {
	id, ok := parseID(c, "category")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Books ────────────────────────────────────────────────────────────────────

type createBookRequest struct {
	Code          string `json:"code" binding:"required,max=50"`
	Title         string `json:"title" binding:"required,max=200"`
	CategoryID    string `json:"category_id" binding:"required,uuid"`
	Author        string `json:"author" binding:"required"`
	Publisher     string `json:"publisher" binding:"required"`
	Price         int64  `json:"price"`
	TotalQuantity int    `json:"total_quantity"`
	Available     *int   `json:"available"`
	IsActive      *bool  `json:"is_active"`
}

type updateBookRequest struct {
	Title         *string `json:"title"`
	CategoryID    *string `json:"category_id" binding:"omitempty,uuid"`
	Author        *string `json:"author"`
	Publisher     *string `json:"publisher"`
	Price         *int64  `json:"price"`
	TotalQuantity *int    `json:"total_quantity"`
	Available     *int    `json:"available"`
	IsActive      *bool   `json:"is_active"`
}

func (h *LibraryHandler) listActiveBooks(c *gin.Context) {
	books, err := h.svc.ListActiveBooks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) listAllBooks(c *gin.Context) {
	books, err := h.svc.ListAllBooks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		badRequest(c, "invalid category id")
		return
	}

	book, err := h.svc.CreateBook(c.Request.Context(), services.CreateBookInput{
		Code:          req.Code,
		Title:         req.Title,
		CategoryID:    categoryID,
		Author:        req.Author,
		Publisher:     req.Publisher,
		Price:         req.Price,
		TotalQuantity: req.TotalQuantity,
		Available:     req.Available,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}
	book, err := h.svc.GetBook(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := services.BookUpdate{
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		Price:         req.Price,
		TotalQuantity: req.TotalQuantity,
		Available:     req.Available,
		IsActive:      req.IsActive,
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			badRequest(c, "invalid category id")
			return
		}
		in.CategoryID = &categoryID
	}

	book, err := h.svc.UpdateBook(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) deactivateBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}
	book, err := h.svc.DeactivateBook(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}
	if err := h.svc.DeleteBook(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Readers ──────────────────────────────────────────────────────────────────

type registerReaderRequest struct {
	CardID   string `json:"card_id" binding:"required,max=50"`
	FullName string `json:"full_name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"required,max=20"`
}

func (h *LibraryHandler) listReaders(c *gin.Context) {
	readers, err := h.svc.ListReaders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, readers)
}

func (h *LibraryHandler) registerReader(c *gin.Context) {
	var req registerReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	reader, err := h.svc.RegisterReader(c.Request.Context(), services.RegisterReaderInput{
		CardID:   req.CardID,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reader)
}

func (h *LibraryHandler) getReader(c *gin.Context) {
	id, ok := parseID(c, "reader")
	if !ok {
		return
	}
	reader, err := h.svc.GetReader(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reader)
}

func (h *LibraryHandler) deleteReader(c *gin.Context) {
	id, ok := parseID(c, "reader")
	if !ok {
		return
	}
	if err := h.svc.DeleteReader(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) listReaderLoans(c *gin.Context) {
	id, ok := parseID(c, "reader")
	if !ok {
		return
	}
	loans, err := h.svc.ListReaderLoans(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoanResponses(loans))
}

// ─── Loans ────────────────────────────────────────────────────────────────────

// loanResponse adds the derived fine to a stored loan.
type loanResponse struct {
	*models.Loan
	Fine int64 `json:"fine"`
}

func toLoanResponse(loan *models.Loan) loanResponse {
	return loanResponse{Loan: loan, Fine: services.CalculateFine(loan.DueDate, loan.ReturnDate)}
}

func toLoanResponses(loans []models.Loan) []loanResponse {
	out := make([]loanResponse, 0, len(loans))
	for i := range loans {
		out = append(out, toLoanResponse(&loans[i]))
	}
	return out
}

type createLoanRequest struct {
	ReaderID   string  `json:"reader_id" binding:"required,uuid"`
	BookID     string  `json:"book_id" binding:"required,uuid"`
	BorrowDate *string `json:"borrow_date"`
	DueDate    *string `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	Status     string  `json:"status" binding:"omitempty,oneof=borrowing returned"`
}

type updateLoanRequest struct {
	BorrowDate *string `json:"borrow_date"`
	DueDate    *string `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	Status     string  `json:"status" binding:"omitempty,oneof=borrowing returned"`
}

type loanTransitionResponse struct {
	Loan           loanResponse `json:"loan"`
	AvailableDelta int          `json:"available_delta"`
}

func (h *LibraryHandler) listLoans(c *gin.Context) {
	filter := repositories.LoanFilter{Status: models.LoanStatus(c.Query("status"))}
	if v := c.Query("reader_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			badRequest(c, "invalid reader id")
			return
		}
		filter.ReaderID = id
	}
	if v := c.Query("book_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			badRequest(c, "invalid book id")
			return
		}
		filter.BookID = id
	}
	loans, err := h.svc.ListLoans(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoanResponses(loans))
}

func (h *LibraryHandler) createLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	readerID, err := uuid.Parse(req.ReaderID)
	if err != nil {
		badRequest(c, "invalid reader id")
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		badRequest(c, "invalid book id")
		return
	}
	in := services.LoanInput{
		ReaderID: readerID,
		BookID:   bookID,
		Status:   models.LoanStatus(req.Status),
	}
	if !bindLoanDates(c, &in, req.BorrowDate, req.DueDate, req.ReturnDate) {
		return
	}

	tr, err := h.svc.ApplyLoanTransition(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanTransitionResponse{Loan: toLoanResponse(tr.Loan), AvailableDelta: tr.AvailableDelta})
}

func (h *LibraryHandler) getLoan(c *gin.Context) {
	id, ok := parseID(c, "loan")
	if !ok {
		return
	}
	loan, err := h.svc.GetLoan(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoanResponse(loan))
}

func (h *LibraryHandler) updateLoan(c *gin.Context) {
	id, ok := parseID(c, "loan")
	if !ok {
		return
	}
	var req updateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := services.LoanInput{ID: &id, Status: models.LoanStatus(req.Status)}
	if !bindLoanDates(c, &in, req.BorrowDate, req.DueDate, req.ReturnDate) {
		return
	}

	tr, err := h.svc.ApplyLoanTransition(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanTransitionResponse{Loan: toLoanResponse(tr.Loan), AvailableDelta: tr.AvailableDelta})
}

func bindLoanDates(c *gin.Context, in *services.LoanInput, borrow, due, returned *string) bool {
	var err error
	if in.BorrowDate, err = parseDate(borrow); err != nil {
		badRequest(c, "invalid borrow_date, want YYYY-MM-DD")
		return false
	}
	if in.DueDate, err = parseDate(due); err != nil {
		badRequest(c, "invalid due_date, want YYYY-MM-DD")
		return false
	}
	if in.ReturnDate, err = parseDate(returned); err != nil {
		badRequest(c, "invalid return_date, want YYYY-MM-DD")
		return false
	}
	return true
}

// ─── Damages ──────────────────────────────────────────────────────────────────

type recordDamageRequest struct {
	LoanID          string  `json:"loan_id" binding:"required,uuid"`
	DamageType      string  `json:"damage_type" binding:"required,oneof=lost torn water_damaged minor"`
	ReportedDate    *string `json:"reported_date"`
	CompensationFee int64   `json:"compensation_fee" binding:"gte=0"`
	IsPaid          bool    `json:"is_paid"`
	Notes           string  `json:"notes"`
}

type updateDamageRequest struct {
	IsPaid          *bool   `json:"is_paid"`
	Notes           *string `json:"notes"`
	CompensationFee *int64  `json:"compensation_fee" binding:"omitempty,gte=0"`
}

type damageRecordResponse struct {
	Damage         *models.Damage `json:"damage"`
	TotalDelta     int            `json:"total_delta"`
	AvailableDelta int            `json:"available_delta"`
}

func (h *LibraryHandler) listDamages(c *gin.Context) {
	unpaid, err := strconv.ParseBool(c.DefaultQuery("unpaid", "false"))
	if err != nil {
		badRequest(c, "invalid unpaid flag")
		return
	}
	damages, err := h.svc.ListDamages(c.Request.Context(), unpaid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, damages)
}

func (h *LibraryHandler) recordDamage(c *gin.Context) {
	var req recordDamageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	loanID, err := uuid.Parse(req.LoanID)
	if err != nil {
		badRequest(c, "invalid loan id")
		return
	}
	reported, err := parseDate(req.ReportedDate)
	if err != nil {
		badRequest(c, "invalid reported_date, want YYYY-MM-DD")
		return
	}

	rec, err := h.svc.RecordDamage(c.Request.Context(), services.DamageInput{
		LoanID:          loanID,
		DamageType:      models.DamageType(req.DamageType),
		ReportedDate:    reported,
		CompensationFee: req.CompensationFee,
		IsPaid:          req.IsPaid,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, damageRecordResponse{
		Damage:         rec.Damage,
		TotalDelta:     rec.TotalDelta,
		AvailableDelta: rec.AvailableDelta,
	})
}

func (h *LibraryHandler) getDamage(c *gin.Context) {
	id, ok := parseID(c, "damage")
	if !ok {
		return
	}
	damage, err := h.svc.GetDamage(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, damage)
}

func (h *LibraryHandler) updateDamage(c *gin.Context) {
	id, ok := parseID(c, "damage")
	if !ok {
		return
	}
	var req updateDamageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	damage, err := h.svc.UpdateDamage(c.Request.Context(), id, services.DamageUpdate{
		IsPaid:          req.IsPaid,
		Notes:           req.Notes,
		CompensationFee: req.CompensationFee,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, damage)
}

// ─── Reservations ─────────────────────────────────────────────────────────────

type placeReservationRequest struct {
	ReaderID string `json:"reader_id" binding:"required,uuid"`
}

func (h *LibraryHandler) placeReservation(c *gin.Context) {
	bookID, ok := parseID(c, "book")
	if !ok {
		return
	}
	var req placeReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	readerID, err := uuid.Parse(req.ReaderID)
	if err != nil {
		badRequest(c, "invalid reader id")
		return
	}
	res, err := h.svc.PlaceReservation(c.Request.Context(), bookID, readerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *LibraryHandler) listReservations(c *gin.Context) {
	bookID, ok := parseID(c, "book")
	if !ok {
		return
	}
	reservations, err := h.svc.ListReservations(c.Request.Context(), bookID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (h *LibraryHandler) cancelReservation(c *gin.Context) {
	id, ok := parseID(c, "reservation")
	if !ok {
		return
	}
	if err := h.svc.CancelReservation(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) fulfillReservation(c *gin.Context) {
	id, ok := parseID(c, "reservation")
	if !ok {
		return
	}
	tr, err := h.svc.FulfillReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanTransitionResponse{Loan: toLoanResponse(tr.Loan), AvailableDelta: tr.AvailableDelta})
}
