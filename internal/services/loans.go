package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/repositories"
)

// ─── Loan Transitions ─────────────────────────────────────────────────────────

// ApplyLoanTransition creates or updates a loan and moves the book's available
// counter accordingly, all in one transaction.
//
// Steps:
//  1. Lock the book row (FOR UPDATE); for updates also lock the loan row.
//  2. Resolve the due date (borrow date + LoanPeriodDays when unset).
//  3. Admission check: entering "borrowing" from nothing or from "returned"
//     needs available > 0, otherwise InventoryExhaustedError.
//  4. Persist the loan.
//  5. Apply the counter delta (see AvailableDelta) exactly once.
func (s *libraryService) ApplyLoanTransition(ctx context.Context, in LoanInput) (*LoanTransition, error) {
	var result *LoanTransition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.applyLoanTransition(tx, in)
		return err
	})
	if err != nil {
		log.Printf("[ERROR] ApplyLoanTransition: transaction failed for book %s / loan %s: %v", in.BookID, loanRef(in.ID), err)
		return nil, err
	}
	return result, nil
}

func (s *libraryService) applyLoanTransition(tx *gorm.DB, in LoanInput) (*LoanTransition, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}

	isNew := in.ID == nil
	var (
		loan *models.Loan
		book *models.Book
		prev models.LoanStatus
		err  error
	)

	if isNew {
		if in.ReaderID == uuid.Nil || in.BookID == uuid.Nil {
			return nil, fmt.Errorf("%w: reader and book are required", ErrInvalidInput)
		}
		if _, err := s.readerRepo.GetByID(tx, in.ReaderID); err != nil {
			return nil, notFound(err, ErrReaderNotFound)
		}
		// Soft-deleted books cannot be lent out.
		book, err = s.bookRepo.GetActiveByIDForUpdate(tx, in.BookID)
		if err != nil {
			return nil, notFound(err, ErrBookNotFound)
		}
		loan = &models.Loan{
			ReaderID:   in.ReaderID,
			BookID:     in.BookID,
			BorrowDate: s.today(),
			Status:     models.LoanStatusBorrowing,
		}
	} else {
		loan, err = s.loanRepo.GetByIDForUpdate(tx, *in.ID)
		if err != nil {
			return nil, notFound(err, ErrLoanNotFound)
		}
		prev = loan.Status
		// Reader and book never change after creation; returns must still work
		// for books that were soft-deleted in the meantime.
		book, err = s.bookRepo.GetByIDForUpdate(tx, loan.BookID)
		if err != nil {
			return nil, notFound(err, ErrBookNotFound)
		}
	}

	if in.Status != "" {
		loan.Status = in.Status
	}
	if in.BorrowDate != nil {
		loan.BorrowDate = DateOnly(*in.BorrowDate)
	}
	if in.DueDate != nil {
		loan.DueDate = DateOnly(*in.DueDate)
	}
	if in.ReturnDate != nil {
		rd := DateOnly(*in.ReturnDate)
		loan.ReturnDate = &rd
	}
	loan.DueDate = ResolveDueDate(loan.BorrowDate, loan.DueDate)

	switch loan.Status {
	case models.LoanStatusReturned:
		if loan.ReturnDate == nil {
			today := s.today()
			loan.ReturnDate = &today
		}
	case models.LoanStatusBorrowing:
		loan.ReturnDate = nil
	}

	// A copy reported lost already left the stock, so its loan no longer
	// moves the available counter in either direction.
	lost := false
	if !isNew {
		if lost, err = s.damageRepo.HasLostCopy(tx, loan.ID); err != nil {
			log.Printf("[ERROR] ApplyLoanTransition: failed to check lost copy for loan %s: %v", loan.ID, err)
			return nil, err
		}
	}

	if !lost && RequiresCopy(isNew, prev, loan.Status) && book.Available <= 0 {
		log.Printf("[WARN] ApplyLoanTransition: book %s %q has no copies available", book.ID, book.Title)
		return nil, &InventoryExhaustedError{BookTitle: book.Title}
	}

	if isNew {
		err = s.loanRepo.Create(tx, loan)
	} else {
		err = s.loanRepo.Update(tx, loan)
	}
	if err != nil {
		log.Printf("[ERROR] ApplyLoanTransition: failed to persist loan for book %s: %v", book.ID, err)
		return nil, err
	}

	delta := 0
	if !lost {
		delta = AvailableDelta(isNew, prev, loan.Status)
	}
	if delta != 0 {
		if err := s.bookRepo.AdjustAvailable(tx, book.ID, delta); err != nil {
			log.Printf("[ERROR] ApplyLoanTransition: failed to adjust available for book %s: %v", book.ID, err)
			return nil, err
		}
		book.Available += delta
	}

	loan.Book = book
	log.Printf("[INFO] ApplyLoanTransition: loan %s %s→%s on book %s, available %+d (now %d/%d)",
		loan.ID, statusLabel(prev), loan.Status, book.Code, delta, book.Available, book.TotalQuantity)

	return &LoanTransition{
		Loan:           loan,
		AvailableDelta: delta,
		Fine:           CalculateFine(loan.DueDate, loan.ReturnDate),
	}, nil
}

// ─── Loan Queries ─────────────────────────────────────────────────────────────

func (s *libraryService) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	return loan, nil
}

func (s *libraryService) ListLoans(ctx context.Context, filter repositories.LoanFilter) ([]models.Loan, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return s.loanRepo.List(s.db.WithContext(ctx), filter)
}

// ListReaderLoans returns the full loan history of one reader.
func (s *libraryService) ListReaderLoans(ctx context.Context, readerID uuid.UUID) ([]models.Loan, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.readerRepo.GetByID(db, readerID); err != nil {
		return nil, notFound(err, ErrReaderNotFound)
	}
	return s.loanRepo.List(db, repositories.LoanFilter{ReaderID: readerID})
}

func loanRef(id *uuid.UUID) string {
	if id == nil {
		return "new"
	}
	return id.String()
}

func statusLabel(s models.LoanStatus) string {
	if s == "" {
		return "new"
	}
	return string(s)
}
