package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
)

// ─── Inputs & Results ─────────────────────────────────────────────────────────

type CreateBookInput struct {
	Code          string    `validate:"required,max=50"`
	Title         string    `validate:"required,max=200"`
	CategoryID    uuid.UUID `validate:"required"`
	Author        string    `validate:"required,max=200"`
	Publisher     string    `validate:"required,max=200"`
	Price         int64
	TotalQuantity int
	// Available defaults to TotalQuantity.
	Available *int
	// IsActive defaults to true.
	IsActive *bool
}

// BookUpdate is a direct admin edit. Nil fields are left untouched.
type BookUpdate struct {
	Title         *string    `validate:"omitempty,min=1,max=200"`
	CategoryID    *uuid.UUID
	Author        *string `validate:"omitempty,min=1,max=200"`
	Publisher     *string `validate:"omitempty,min=1,max=200"`
	Price         *int64
	TotalQuantity *int
	Available     *int
	IsActive      *bool
}

type RegisterReaderInput struct {
	CardID   string `validate:"required,max=50"`
	FullName string `validate:"required,max=200"`
	Phone    string `validate:"required,max=20"`
}

// LoanInput describes one loan transition. A nil ID creates a loan; otherwise the
// stored loan is updated and only non-nil/non-empty fields are applied.
type LoanInput struct {
	ID         *uuid.UUID
	ReaderID   uuid.UUID
	BookID     uuid.UUID
	BorrowDate *time.Time
	DueDate    *time.Time
	ReturnDate *time.Time
	Status     models.LoanStatus
}

type DamageInput struct {
	LoanID       uuid.UUID         `validate:"required"`
	DamageType   models.DamageType `validate:"required"`
	ReportedDate *time.Time
	// CompensationFee is derived from the book price when zero.
	CompensationFee int64 `validate:"gte=0"`
	IsPaid          bool
	Notes           string
}

// DamageUpdate edits bookkeeping fields only; stock is never touched again.
type DamageUpdate struct {
	IsPaid          *bool
	Notes           *string
	CompensationFee *int64 `validate:"omitempty,gte=0"`
}

// BookSummary is a book as seen by the admin listing.
type BookSummary struct {
	models.Book
	LoanCount int64 `json:"loan_count"`
}

// LoanTransition is the outcome of ApplyLoanTransition.
type LoanTransition struct {
	Loan           *models.Loan
	AvailableDelta int
	Fine           int64
}

// DamageRecord is the outcome of RecordDamage.
type DamageRecord struct {
	Damage         *models.Damage
	TotalDelta     int
	AvailableDelta int
}

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService defines the application-level operations of the library ledger.
type LibraryService interface {
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateBook(ctx context.Context, in CreateBookInput) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in BookUpdate) (*models.Book, error)
	DeactivateBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListActiveBooks(ctx context.Context) ([]models.Book, error)
	ListAllBooks(ctx context.Context) ([]BookSummary, error)

	RegisterReader(ctx context.Context, in RegisterReaderInput) (*models.Reader, error)
	GetReader(ctx context.Context, id uuid.UUID) (*models.Reader, error)
	ListReaders(ctx context.Context) ([]models.Reader, error)
	DeleteReader(ctx context.Context, id uuid.UUID) error

	ApplyLoanTransition(ctx context.Context, in LoanInput) (*LoanTransition, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	ListLoans(ctx context.Context, filter repositories.LoanFilter) ([]models.Loan, error)
	ListReaderLoans(ctx context.Context, readerID uuid.UUID) ([]models.Loan, error)

	RecordDamage(ctx context.Context, in DamageInput) (*DamageRecord, error)
	UpdateDamage(ctx context.Context, id uuid.UUID, in DamageUpdate) (*models.Damage, error)
	GetDamage(ctx context.Context, id uuid.UUID) (*models.Damage, error)
	ListDamages(ctx context.Context, unpaidOnly bool) ([]models.Damage, error)

	PlaceReservation(ctx context.Context, bookID, readerID uuid.UUID) (*models.Reservation, error)
	ListReservations(ctx context.Context, bookID uuid.UUID) ([]models.Reservation, error)
	CancelReservation(ctx context.Context, id uuid.UUID) error
	FulfillReservation(ctx context.Context, id uuid.UUID) (*LoanTransition, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	db              *gorm.DB
	categoryRepo    repositories.CategoryRepository
	bookRepo        repositories.BookRepository
	readerRepo      repositories.ReaderRepository
	loanRepo        repositories.LoanRepository
	damageRepo      repositories.DamageRepository
	reservationRepo repositories.ReservationRepository

	validate *validator.Validate
	now      func() time.Time
}

// Option customises a LibraryService.
type Option func(*libraryService)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *libraryService) { s.now = now }
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(
	db *gorm.DB,
	categoryRepo repositories.CategoryRepository,
	bookRepo repositories.BookRepository,
	readerRepo repositories.ReaderRepository,
	loanRepo repositories.LoanRepository,
	damageRepo repositories.DamageRepository,
	reservationRepo repositories.ReservationRepository,
	opts ...Option,
) LibraryService {
	s := &libraryService{
		db:              db,
		categoryRepo:    categoryRepo,
		bookRepo:        bookRepo,
		readerRepo:      readerRepo,
		loanRepo:        loanRepo,
		damageRepo:      damageRepo,
		reservationRepo: reservationRepo,
		validate:        validator.New(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New builds the repositories for db and returns the service on top of them.
func New(db *gorm.DB, opts ...Option) LibraryService {
	return NewLibraryService(
		db,
		repositories.NewCategoryRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewReaderRepository(db),
		repositories.NewLoanRepository(db),
		repositories.NewDamageRepository(db),
		repositories.NewReservationRepository(db),
		opts...,
	)
}

func (s *libraryService) today() time.Time {
	return DateOnly(s.now())
}

func (s *libraryService) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
