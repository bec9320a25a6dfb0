package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
)

// ─── Reservation Queue ────────────────────────────────────────────────────────

// PlaceReservation appends a reader to the waiting queue of a book that has no
// copy left. The book row lock keeps queue positions unique.
func (s *libraryService) PlaceReservation(ctx context.Context, bookID, readerID uuid.UUID) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.readerRepo.GetByID(tx, readerID); err != nil {
			return notFound(err, ErrReaderNotFound)
		}
		book, err := s.bookRepo.GetActiveByIDForUpdate(tx, bookID)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}
		if book.Available > 0 {
			return ErrCopiesAvailable
		}

		existing, err := s.reservationRepo.GetByBookAndReader(tx, bookID, readerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			log.Printf("[WARN] PlaceReservation: reader %s already has reservation %s for book %s", readerID, existing.ID, bookID)
			return ErrDuplicateReservation
		}

		nextPos, err := s.reservationRepo.GetNextQueuePosition(tx, bookID)
		if err != nil {
			return err
		}
		res = &models.Reservation{
			BookID:        bookID,
			ReaderID:      readerID,
			QueuePosition: nextPos,
			CreatedAt:     s.now().UTC(),
		}
		if err := s.reservationRepo.Create(tx, res); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateReservation
			}
			log.Printf("[ERROR] PlaceReservation: failed to create reservation for reader %s / book %s: %v", readerID, bookID, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] PlaceReservation: reader %s queued for book %s at position %d (id=%s)", readerID, bookID, res.QueuePosition, res.ID)
	return res, nil
}

// ListReservations returns the queue of a book, ordered by queue position.
func (s *libraryService) ListReservations(ctx context.Context, bookID uuid.UUID) ([]models.Reservation, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.bookRepo.GetByID(db, bookID); err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	return s.reservationRepo.ListByBook(db, bookID)
}

func (s *libraryService) CancelReservation(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.reservationRepo.GetByID(tx, id)
		if err != nil {
			return notFound(err, ErrReservationNotFound)
		}
		if err := s.reservationRepo.Delete(tx, res.ID); err != nil {
			return err
		}
		log.Printf("[INFO] CancelReservation: removed reservation %s (reader %s, book %s)", res.ID, res.ReaderID, res.BookID)
		return nil
	})
}

// FulfillReservation lends the book to the reader at the head of its queue and
// drops the reservation. The loan goes through the regular admission check.
func (s *libraryService) FulfillReservation(ctx context.Context, id uuid.UUID) (*LoanTransition, error) {
	var result *LoanTransition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.reservationRepo.GetByID(tx, id)
		if err != nil {
			return notFound(err, ErrReservationNotFound)
		}
		// Lock the book before reading the queue head.
		if _, err := s.bookRepo.GetByIDForUpdate(tx, res.BookID); err != nil {
			return notFound(err, ErrBookNotFound)
		}
		head, err := s.reservationRepo.GetNextForBook(tx, res.BookID)
		if err != nil {
			return err
		}
		if head.ID != res.ID {
			return ErrNotHeadOfQueue
		}

		result, err = s.applyLoanTransition(tx, LoanInput{
			ReaderID: res.ReaderID,
			BookID:   res.BookID,
			Status:   models.LoanStatusBorrowing,
		})
		if err != nil {
			return err
		}
		return s.reservationRepo.Delete(tx, res.ID)
	})
	if err != nil {
		log.Printf("[ERROR] FulfillReservation: transaction failed for reservation %s: %v", id, err)
		return nil, err
	}
	log.Printf("[INFO] FulfillReservation: reservation %s converted to loan %s", id, result.Loan.ID)
	return result, nil
}
