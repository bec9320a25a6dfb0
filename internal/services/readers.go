package services

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
)

// ─── Reader Registry ──────────────────────────────────────────────────────────

func (s *libraryService) RegisterReader(ctx context.Context, in RegisterReaderInput) (*models.Reader, error) {
	in.CardID = strings.TrimSpace(in.CardID)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	reader := &models.Reader{
		CardID:   in.CardID,
		FullName: in.FullName,
		Phone:    in.Phone,
	}
	if err := s.readerRepo.Create(s.db.WithContext(ctx), reader); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCardID
		}
		log.Printf("[ERROR] RegisterReader: failed to create reader %s: %v", in.CardID, err)
		return nil, err
	}
	log.Printf("[INFO] RegisterReader: registered %s %q (id=%s)", reader.CardID, reader.FullName, reader.ID)
	return reader, nil
}

func (s *libraryService) GetReader(ctx context.Context, id uuid.UUID) (*models.Reader, error) {
	reader, err := s.readerRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, notFound(err, ErrReaderNotFound)
	}
	return reader, nil
}

func (s *libraryService) ListReaders(ctx context.Context) ([]models.Reader, error) {
	return s.readerRepo.List(s.db.WithContext(ctx))
}

// DeleteReader removes a reader without loan history. Pending reservations go with it.
func (s *libraryService) DeleteReader(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.readerRepo.GetByID(tx, id); err != nil {
			return notFound(err, ErrReaderNotFound)
		}
		n, err := s.loanRepo.CountByReader(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("[WARN] DeleteReader: reader %s is referenced by %d loan(s)", id, n)
			return ErrProtected
		}
		if err := s.reservationRepo.DeleteByReader(tx, id); err != nil {
			return err
		}
		return s.readerRepo.Delete(tx, id)
	})
}
