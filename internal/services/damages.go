package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
)

// ─── Damage Ledger ────────────────────────────────────────────────────────────

// RecordDamage stores a damage report against a loan.
//
// A zero CompensationFee is derived from the book price (see CompensationFee).
// A "lost" report also removes one copy from the book's stock and clamps
// available to the new total. The loan's own status is left alone, and a
// second lost report on the same loan fails with ErrCopyAlreadyLost.
func (s *libraryService) RecordDamage(ctx context.Context, in DamageInput) (*DamageRecord, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if !in.DamageType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDamageType, in.DamageType)
	}

	var record *DamageRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByIDForUpdate(tx, in.LoanID)
		if err != nil {
			return notFound(err, ErrLoanNotFound)
		}
		book, err := s.bookRepo.GetByIDForUpdate(tx, loan.BookID)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}

		damage := &models.Damage{
			LoanID:          loan.ID,
			DamageType:      in.DamageType,
			ReportedDate:    s.today(),
			CompensationFee: in.CompensationFee,
			IsPaid:          in.IsPaid,
			Notes:           in.Notes,
		}
		if in.ReportedDate != nil {
			damage.ReportedDate = DateOnly(*in.ReportedDate)
		}
		if damage.CompensationFee == 0 {
			damage.CompensationFee = CompensationFee(book.Price, in.DamageType)
		}

		newTotal, newAvailable := book.TotalQuantity, book.Available
		if in.DamageType == models.DamageTypeLost {
			lost, err := s.damageRepo.HasLostCopy(tx, loan.ID)
			if err != nil {
				return err
			}
			if lost {
				log.Printf("[WARN] RecordDamage: copy of loan %s is already reported lost", loan.ID)
				return ErrCopyAlreadyLost
			}
			newTotal, newAvailable, err = RemoveLostCopy(book.TotalQuantity, book.Available)
			if err != nil {
				log.Printf("[WARN] RecordDamage: book %s has no copy left to mark lost", book.ID)
				return err
			}
		}

		if err := s.damageRepo.Create(tx, damage); err != nil {
			log.Printf("[ERROR] RecordDamage: failed to create damage for loan %s: %v", loan.ID, err)
			return err
		}

		record = &DamageRecord{
			Damage:         damage,
			TotalDelta:     newTotal - book.TotalQuantity,
			AvailableDelta: newAvailable - book.Available,
		}
		if record.TotalDelta != 0 || record.AvailableDelta != 0 {
			if err := s.bookRepo.SetStock(tx, book.ID, newTotal, newAvailable); err != nil {
				log.Printf("[ERROR] RecordDamage: failed to update stock of book %s: %v", book.ID, err)
				return err
			}
		}
		book.TotalQuantity, book.Available = newTotal, newAvailable
		loan.Book = book
		damage.Loan = loan

		log.Printf("[INFO] RecordDamage: %s damage %s on loan %s, fee=%d, stock of %s now %d/%d",
			damage.DamageType, damage.ID, loan.ID, damage.CompensationFee, book.Code, book.Available, book.TotalQuantity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateDamage edits payment state, notes or the fee of an existing report.
func (s *libraryService) UpdateDamage(ctx context.Context, id uuid.UUID, in DamageUpdate) (*models.Damage, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.IsPaid != nil {
		fields["is_paid"] = *in.IsPaid
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.CompensationFee != nil {
		fields["compensation_fee"] = *in.CompensationFee
	}

	db := s.db.WithContext(ctx)
	if _, err := s.damageRepo.GetByID(db, id); err != nil {
		return nil, notFound(err, ErrDamageNotFound)
	}
	if len(fields) > 0 {
		if err := s.damageRepo.Update(db, id, fields); err != nil {
			log.Printf("[ERROR] UpdateDamage: failed to update damage %s: %v", id, err)
			return nil, err
		}
	}
	return s.GetDamage(ctx, id)
}

func (s *libraryService) GetDamage(ctx context.Context, id uuid.UUID) (*models.Damage, error) {
	damage, err := s.damageRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, notFound(err, ErrDamageNotFound)
	}
	return damage, nil
}

func (s *libraryService) ListDamages(ctx context.Context, unpaidOnly bool) ([]models.Damage, error) {
	return s.damageRepo.List(s.db.WithContext(ctx), unpaidOnly)
}
