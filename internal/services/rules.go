package services

import (
	"time"

	"libraryledger/internal/models"
)

// ─── Loan & Damage Constants ──────────────────────────────────────────────────

const (
	// LoanPeriodDays is the default number of days between borrow and due date.
	LoanPeriodDays = 14

	// FinePerDay is the fine (in currency units) per full day a return is late.
	FinePerDay = 1000
)

// DateOnly truncates t to a calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveDueDate returns due unless it is unset, in which case the loan period
// is added to the borrow date.
func ResolveDueDate(borrow, due time.Time) time.Time {
	if due.IsZero() {
		return DateOnly(borrow).AddDate(0, 0, LoanPeriodDays)
	}
	return DateOnly(due)
}

// CalculateFine computes the overdue fine for a loan.
//
// Rules:
//   - No fine when returnDate is unset or not after dueDate.
//   - Otherwise FinePerDay for every full calendar day between the two dates.
func CalculateFine(dueDate time.Time, returnDate *time.Time) int64 {
	if returnDate == nil {
		return 0
	}
	due := DateOnly(dueDate)
	returned := DateOnly(*returnDate)
	if !returned.After(due) {
		return 0
	}
	daysLate := int64(returned.Sub(due).Hours() / 24)
	return daysLate * FinePerDay
}

// RequiresCopy reports whether moving a loan into next needs a free copy.
// prev is empty for a loan that is being created.
func RequiresCopy(isNew bool, prev, next models.LoanStatus) bool {
	if next != models.LoanStatusBorrowing {
		return false
	}
	return isNew || prev == models.LoanStatusReturned
}

// AvailableDelta is the change to a book's available counter caused by one
// loan transition.
func AvailableDelta(isNew bool, prev, next models.LoanStatus) int {
	switch {
	case isNew && next == models.LoanStatusBorrowing:
		return -1
	case isNew:
		return 0
	case prev == models.LoanStatusBorrowing && next == models.LoanStatusReturned:
		return 1
	case prev == models.LoanStatusReturned && next == models.LoanStatusBorrowing:
		return -1
	}
	return 0
}

// CompensationFee derives the charge for a damaged copy from its list price.
// Unknown damage types cost nothing.
func CompensationFee(price int64, damageType models.DamageType) int64 {
	switch damageType {
	case models.DamageTypeLost:
		return 2 * price
	case models.DamageTypeTorn, models.DamageTypeWaterDamaged:
		return price
	case models.DamageTypeMinor:
		return price * 3 / 10
	}
	return 0
}

// RemoveLostCopy shrinks the stock by one copy and keeps available within it.
func RemoveLostCopy(totalQuantity, available int) (newTotal, newAvailable int, err error) {
	if totalQuantity <= 0 {
		return totalQuantity, available, &IntegrityViolationError{
			Field:  "total_quantity",
			Reason: "no copy left to mark as lost",
		}
	}
	newTotal = totalQuantity - 1
	newAvailable = available
	if newAvailable > newTotal {
		newAvailable = newTotal
	}
	return newTotal, newAvailable, nil
}

// ValidateBookCounters rejects a book whose counters or price are out of range.
func ValidateBookCounters(book *models.Book) error {
	switch {
	case book.Price < 0:
		return &IntegrityViolationError{Field: "price", Reason: "must not be negative"}
	case book.TotalQuantity < 0:
		return &IntegrityViolationError{Field: "total_quantity", Reason: "must not be negative"}
	case book.Available < 0:
		return &IntegrityViolationError{Field: "available", Reason: "must not be negative"}
	case book.Available > book.TotalQuantity:
		return &IntegrityViolationError{Field: "available", Reason: "must not exceed total_quantity"}
	}
	return nil
}
