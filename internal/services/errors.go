package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrInventoryExhausted is matched by InventoryExhaustedError. It is the only
	// rejection path of a loan transition.
	ErrInventoryExhausted = errors.New("no copies available")

	// ErrIntegrityViolation is matched by IntegrityViolationError.
	ErrIntegrityViolation = errors.New("book counters violate integrity")

	ErrBookNotFound        = errors.New("book not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrReaderNotFound      = errors.New("reader not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrDamageNotFound      = errors.New("damage not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrProtected is returned when a delete would orphan referencing records.
	ErrProtected = errors.New("record is referenced by other records")

	ErrDuplicateBookCode = errors.New("book code already exists")
	ErrDuplicateCardID   = errors.New("reader card id already exists")

	// ErrDuplicateReservation is returned when the reader already queues for the book.
	ErrDuplicateReservation = errors.New("reader already has a reservation for this book")

	// ErrCopiesAvailable is returned when a reservation is requested for a book
	// that can be borrowed right away.
	ErrCopiesAvailable = errors.New("book has available copies, borrow it directly")

	// ErrNotHeadOfQueue is returned when fulfilling a reservation that is not first in line.
	ErrNotHeadOfQueue = errors.New("reservation is not at the head of the queue")

	// ErrCopyAlreadyLost is returned when the copy behind a loan was already reported lost.
	ErrCopyAlreadyLost = errors.New("copy of this loan was already reported lost")

	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatus     = errors.New("invalid loan status")
	ErrInvalidDamageType = errors.New("invalid damage type")
)

// InventoryExhaustedError carries the title of the book that has no copy left.
type InventoryExhaustedError struct {
	BookTitle string
}

func (e *InventoryExhaustedError) Error() string {
	return fmt.Sprintf("book %q has no copies available", e.BookTitle)
}

func (e *InventoryExhaustedError) Is(target error) bool { return target == ErrInventoryExhausted }

// IntegrityViolationError names the offending book field.
type IntegrityViolationError struct {
	Field  string
	Reason string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *IntegrityViolationError) Is(target error) bool { return target == ErrIntegrityViolation }

// notFound maps gorm.ErrRecordNotFound to the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// isUniqueViolation checks for a unique-constraint error from any supported driver.
// PostgreSQL error code 23505 = unique_violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
