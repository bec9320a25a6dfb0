// Package seed loads a small, known data set used for demos and acceptance checks.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/services"
)

// Summary reports what Run created and the values worth checking afterwards.
type Summary struct {
	Categories  int64
	ActiveBooks int64
	TotalBooks  int64
	Readers     int64
	Loans       int64

	DeMenAvailable    int
	SoDoFine          int64
	SoDoAvailable     int
	DoraemonLoanCount int64
}

type bookSpec struct {
	code, title, category, author, publisher string
	price                                    int64
	total, available                         int
	active                                   bool
}

type loanSpec struct {
	reader, book      string
	borrow, due, back string
	status            models.LoanStatus
}

var categories = []string{"Văn học", "Khoa học tự nhiên", "Thiếu nhi"}

var books = []bookSpec{
	{"VH001", "Dế Mèn Phiêu Lưu Ký", "Thiếu nhi", "Tô Hoài", "NXB Kim Đồng", 50000, 5, 5, true},
	{"VH002", "Số Đỏ", "Văn học", "Vũ Trọng Phụng", "NXB Văn học", 80000, 3, 3, true},
	{"KH001", "Vật Lý Đại Cương", "Khoa học tự nhiên", "Nguyễn Văn A", "NXB Giáo dục", 120000, 4, 4, true},
	{"VH003", "Chí Phèo", "Văn học", "Nam Cao", "NXB Văn học", 60000, 2, 2, true},
	{"TN001", "Doraemon Tập 1", "Thiếu nhi", "Fujiko F. Fujio", "NXB Kim Đồng", 25000, 10, 10, true},
	{"VH999", "Sách Đã Hủy", "Văn học", "Unknown", "NXB Test", 10000, 1, 0, false},
}

var readers = []services.RegisterReaderInput{
	{CardID: "BD001", FullName: "Nguyễn Văn A", Phone: "0901234567"},
	{CardID: "BD002", FullName: "Trần Thị B", Phone: "0912345678"},
	{CardID: "BD003", FullName: "Lê Văn C", Phone: "0923456789"},
}

var loans = []loanSpec{
	{"BD001", "VH001", "2026-01-01", "2026-01-15", "", models.LoanStatusBorrowing},
	// Returned three days late.
	{"BD002", "VH002", "2026-01-01", "2026-01-07", "2026-01-10", models.LoanStatusReturned},
	{"BD003", "KH001", "2026-01-05", "2026-01-19", "", models.LoanStatusBorrowing},
	{"BD002", "TN001", "2025-12-20", "2026-01-03", "2026-01-02", models.LoanStatusReturned},
	{"BD003", "TN001", "2025-12-25", "2026-01-08", "2026-01-08", models.LoanStatusReturned},
}

// Run wipes every table and loads the demo data set through svc, so the
// ledger rules apply to the seeded loans exactly as they do to live ones.
func Run(ctx context.Context, db *gorm.DB, svc services.LibraryService) (*Summary, error) {
	if err := wipe(db.WithContext(ctx)); err != nil {
		return nil, err
	}

	categoryIDs := make(map[string]uuid.UUID, len(categories))
	for _, name := range categories {
		c, err := svc.CreateCategory(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("seed category %q: %w", name, err)
		}
		categoryIDs[name] = c.ID
	}
	log.Printf("[INFO] seed: created %d categories", len(categoryIDs))

	bookIDs := make(map[string]uuid.UUID, len(books))
	for _, b := range books {
		available, active := b.available, b.active
		book, err := svc.CreateBook(ctx, services.CreateBookInput{
			Code:          b.code,
			Title:         b.title,
			CategoryID:    categoryIDs[b.category],
			Author:        b.author,
			Publisher:     b.publisher,
			Price:         b.price,
			TotalQuantity: b.total,
			Available:     &available,
			IsActive:      &active,
		})
		if err != nil {
			return nil, fmt.Errorf("seed book %s: %w", b.code, err)
		}
		bookIDs[b.code] = book.ID
	}
	log.Printf("[INFO] seed: created %d books (including 1 inactive)", len(bookIDs))

	readerIDs := make(map[string]uuid.UUID, len(readers))
	for _, in := range readers {
		r, err := svc.RegisterReader(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("seed reader %s: %w", in.CardID, err)
		}
		readerIDs[in.CardID] = r.ID
	}
	log.Printf("[INFO] seed: created %d readers", len(readerIDs))

	for i, l := range loans {
		in := services.LoanInput{
			ReaderID:   readerIDs[l.reader],
			BookID:     bookIDs[l.book],
			BorrowDate: mustDate(l.borrow),
			DueDate:    mustDate(l.due),
			ReturnDate: mustDate(l.back),
			Status:     l.status,
		}
		if _, err := svc.ApplyLoanTransition(ctx, in); err != nil {
			return nil, fmt.Errorf("seed loan %d (%s/%s): %w", i+1, l.reader, l.book, err)
		}
	}
	log.Printf("[INFO] seed: created %d loans", len(loans))

	return summarize(ctx, db, svc, bookIDs, readerIDs)
}

// wipe deletes children before parents so foreign keys never block.
func wipe(db *gorm.DB) error {
	for _, m := range []any{&models.Damage{}, &models.Reservation{}, &models.Loan{}, &models.Book{}, &models.Reader{}, &models.Category{}} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("wipe %T: %w", m, err)
		}
	}
	return nil
}

func summarize(ctx context.Context, db *gorm.DB, svc services.LibraryService, bookIDs, readerIDs map[string]uuid.UUID) (*Summary, error) {
	db = db.WithContext(ctx)
	s := &Summary{}
	counts := []struct {
		model any
		where string
		dst   *int64
	}{
		{&models.Category{}, "", &s.Categories},
		{&models.Book{}, "is_active = true", &s.ActiveBooks},
		{&models.Book{}, "", &s.TotalBooks},
		{&models.Reader{}, "", &s.Readers},
		{&models.Loan{}, "", &s.Loans},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	demen, err := svc.GetBook(ctx, bookIDs["VH001"])
	if err != nil {
		return nil, err
	}
	s.DeMenAvailable = demen.Available

	sodo, err := svc.GetBook(ctx, bookIDs["VH002"])
	if err != nil {
		return nil, err
	}
	s.SoDoAvailable = sodo.Available

	sodoLoans, err := svc.ListReaderLoans(ctx, readerIDs["BD002"])
	if err != nil {
		return nil, err
	}
	for _, l := range sodoLoans {
		if l.BookID == sodo.ID {
			s.SoDoFine = services.CalculateFine(l.DueDate, l.ReturnDate)
		}
	}

	all, err := svc.ListAllBooks(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range all {
		if b.ID == bookIDs["TN001"] {
			s.DoraemonLoanCount = b.LoanCount
		}
	}

	log.Printf("[INFO] seed: Dế Mèn available=%d (expect 4), Số Đỏ fine=%d (expect 3000) available=%d (expect 3), Doraemon loans=%d (expect 2)",
		s.DeMenAvailable, s.SoDoFine, s.SoDoAvailable, s.DoraemonLoanCount)
	return s, nil
}

func mustDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}
