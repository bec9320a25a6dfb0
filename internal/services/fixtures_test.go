package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"libraryledger/internal/models"
	"libraryledger/internal/services"
	"libraryledger/internal/testutil"
)

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	svc      services.LibraryService
	category *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &fixture{
		ctx: context.Background(),
		db:  db,
		svc: services.New(db, services.WithClock(testutil.Clock)),
	}
	var err error
	f.category, err = f.svc.CreateCategory(f.ctx, "Văn học")
	require.NoError(t, err)
	return f
}

func (f *fixture) book(t *testing.T, code string, price int64, total, available int) *models.Book {
	t.Helper()
	book, err := f.svc.CreateBook(f.ctx, services.CreateBookInput{
		Code:          code,
		Title:         "Book " + code,
		CategoryID:    f.category.ID,
		Author:        "Author",
		Publisher:     "Publisher",
		Price:         price,
		TotalQuantity: total,
		Available:     &available,
	})
	require.NoError(t, err)
	return book
}

func (f *fixture) reader(t *testing.T, cardID string) *models.Reader {
	t.Helper()
	reader, err := f.svc.RegisterReader(f.ctx, services.RegisterReaderInput{
		CardID:   cardID,
		FullName: "Reader " + cardID,
		Phone:    "0900000000",
	})
	require.NoError(t, err)
	return reader
}

func (f *fixture) borrow(t *testing.T, readerID, bookID uuid.UUID) *models.Loan {
	t.Helper()
	tr, err := f.svc.ApplyLoanTransition(f.ctx, services.LoanInput{ReaderID: readerID, BookID: bookID})
	require.NoError(t, err)
	return tr.Loan
}

func (f *fixture) available(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	book, err := f.svc.GetBook(f.ctx, bookID)
	require.NoError(t, err)
	return book.Available
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }

func day(t interface{ Format(string) string }) string {
	return t.Format("2006-01-02")
}
