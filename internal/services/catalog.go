package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
)

// ─── Categories ───────────────────────────────────────────────────────────────

func (s *libraryService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	category := &models.Category{Name: name}
	if err := s.categoryRepo.Create(s.db.WithContext(ctx), category); err != nil {
		log.Printf("[ERROR] CreateCategory: failed to create category %q: %v", name, err)
		return nil, err
	}
	log.Printf("[INFO] CreateCategory: created category %q (id=%s)", category.Name, category.ID)
	return category, nil
}

func (s *libraryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(s.db.WithContext(ctx))
}

// DeleteCategory removes a category that no book (active or not) refers to.
func (s *libraryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.categoryRepo.GetByID(tx, id); err != nil {
			return notFound(err, ErrCategoryNotFound)
		}
		n, err := s.bookRepo.CountByCategory(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("[WARN] DeleteCategory: category %s still has %d book(s)", id, n)
			return ErrProtected
		}
		return s.categoryRepo.Delete(tx, id)
	})
}

// ─── Book Management ──────────────────────────────────────────────────────────

// CreateBook validates and stores a catalog entry.
func (s *libraryService) CreateBook(ctx context.Context, in CreateBookInput) (*models.Book, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	book := &models.Book{
		Code:          strings.TrimSpace(in.Code),
		Title:         in.Title,
		CategoryID:    in.CategoryID,
		Author:        in.Author,
		Publisher:     in.Publisher,
		Price:         in.Price,
		TotalQuantity: in.TotalQuantity,
		Available:     in.TotalQuantity,
		IsActive:      true,
	}
	if in.Available != nil {
		book.Available = *in.Available
	}
	if in.IsActive != nil {
		book.IsActive = *in.IsActive
	}
	if err := ValidateBookCounters(book); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.categoryRepo.GetByID(tx, book.CategoryID); err != nil {
			return notFound(err, ErrCategoryNotFound)
		}
		if err := s.bookRepo.Create(tx, book); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateBookCode
			}
			log.Printf("[ERROR] CreateBook: failed to create book record: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %s %q (id=%s) with %d/%d copies, active=%t",
		book.Code, book.Title, book.ID, book.Available, book.TotalQuantity, book.IsActive)
	return book, nil
}

// GetBook looks a book up in the unrestricted view.
func (s *libraryService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	return book, nil
}

// UpdateBook applies a direct admin edit under the book row lock. The resulting
// counters must pass ValidateBookCounters.
func (s *libraryService) UpdateBook(ctx context.Context, id uuid.UUID, in BookUpdate) (*models.Book, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	var updated *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.bookRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			return notFound(err, ErrBookNotFound)
		}

		if in.Title != nil {
			book.Title = *in.Title
		}
		if in.CategoryID != nil && *in.CategoryID != book.CategoryID {
			category, err := s.categoryRepo.GetByID(tx, *in.CategoryID)
			if err != nil {
				return notFound(err, ErrCategoryNotFound)
			}
			book.CategoryID = category.ID
			book.Category = category
		}
		if in.Author != nil {
			book.Author = *in.Author
		}
		if in.Publisher != nil {
			book.Publisher = *in.Publisher
		}
		if in.Price != nil {
			book.Price = *in.Price
		}
		if in.TotalQuantity != nil {
			book.TotalQuantity = *in.TotalQuantity
		}
		if in.Available != nil {
			book.Available = *in.Available
		}
		if in.IsActive != nil {
			book.IsActive = *in.IsActive
		}

		if err := ValidateBookCounters(book); err != nil {
			log.Printf("[WARN] UpdateBook: rejected edit of book %s: %v", id, err)
			return err
		}
		if err := s.bookRepo.Update(tx, book); err != nil {
			log.Printf("[ERROR] UpdateBook: failed to save book %s: %v", id, err)
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] UpdateBook: book %s now %d/%d copies, active=%t", updated.ID, updated.Available, updated.TotalQuantity, updated.IsActive)
	return updated, nil
}

// DeactivateBook soft-deletes a book: it disappears from the active view but
// keeps its loan history.
func (s *libraryService) DeactivateBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	inactive := false
	return s.UpdateBook(ctx, id, BookUpdate{IsActive: &inactive})
}

// DeleteBook physically removes a book that was never lent out.
func (s *libraryService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByIDForUpdate(tx, id); err != nil {
			return notFound(err, ErrBookNotFound)
		}
		n, err := s.loanRepo.CountByBook(tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("[WARN] DeleteBook: book %s is referenced by %d loan(s)", id, n)
			return ErrProtected
		}
		if err := s.reservationRepo.DeleteByBook(tx, id); err != nil {
			return err
		}
		return s.bookRepo.Delete(tx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] DeleteBook: deleted book %s", id)
	return nil
}

// ListActiveBooks returns the books available for day-to-day lending.
func (s *libraryService) ListActiveBooks(ctx context.Context) ([]models.Book, error) {
	return s.bookRepo.ListActive(s.db.WithContext(ctx))
}

// ListAllBooks returns every book, soft-deleted ones included, with its loan count.
func (s *libraryService) ListAllBooks(ctx context.Context) ([]BookSummary, error) {
	db := s.db.WithContext(ctx)
	books, err := s.bookRepo.ListAll(db)
	if err != nil {
		return nil, err
	}
	counts, err := s.loanRepo.CountsPerBook(db)
	if err != nil {
		return nil, err
	}
	out := make([]BookSummary, 0, len(books))
	for _, b := range books {
		out = append(out, BookSummary{Book: b, LoanCount: counts[b.ID]})
	}
	return out, nil
}
