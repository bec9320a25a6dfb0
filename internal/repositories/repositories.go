package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libraryledger/internal/models"
)

type CategoryRepository interface {
	Create(db *gorm.DB, category *models.Category) error
	List(db *gorm.DB) ([]models.Category, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Category, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

// BookRepository exposes the active-only and the unrestricted view of the books
// table as separate methods. Nothing filters on is_active implicitly.
type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	Update(db *gorm.DB, book *models.Book) error
	ListActive(db *gorm.DB) ([]models.Book, error)
	ListAll(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetActiveByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	AdjustAvailable(db *gorm.DB, bookID uuid.UUID, delta int) error
	SetStock(db *gorm.DB, bookID uuid.UUID, totalQuantity, available int) error
	CountByCategory(db *gorm.DB, categoryID uuid.UUID) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

type ReaderRepository interface {
	Create(db *gorm.DB, reader *models.Reader) error
	List(db *gorm.DB) ([]models.Reader, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Reader, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

// LoanFilter narrows ListLoans. Zero values match everything.
type LoanFilter struct {
	Status   models.LoanStatus
	ReaderID uuid.UUID
	BookID   uuid.UUID
}

type LoanRepository interface {
	Create(db *gorm.DB, loan *models.Loan) error
	Update(db *gorm.DB, loan *models.Loan) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Loan, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Loan, error)
	List(db *gorm.DB, filter LoanFilter) ([]models.Loan, error)
	CountByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
	CountByReader(db *gorm.DB, readerID uuid.UUID) (int64, error)
	CountsPerBook(db *gorm.DB) (map[uuid.UUID]int64, error)
}

type DamageRepository interface {
	Create(db *gorm.DB, damage *models.Damage) error
	Update(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Damage, error)
	List(db *gorm.DB, unpaidOnly bool) ([]models.Damage, error)
	HasLostCopy(db *gorm.DB, loanID uuid.UUID) (bool, error)
}

type ReservationRepository interface {
	Create(db *gorm.DB, reservation *models.Reservation) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Reservation, error)
	GetNextForBook(db *gorm.DB, bookID uuid.UUID) (*models.Reservation, error)
	GetByBookAndReader(db *gorm.DB, bookID, readerID uuid.UUID) (*models.Reservation, error)
	Delete(db *gorm.DB, id uuid.UUID) error
	DeleteByBook(db *gorm.DB, bookID uuid.UUID) error
	DeleteByReader(db *gorm.DB, readerID uuid.UUID) error
	GetNextQueuePosition(db *gorm.DB, bookID uuid.UUID) (int, error)
	ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.Reservation, error)
}

// concrete implementations

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(db *gorm.DB, category *models.Category) error {
	if db == nil {
		db = r.db
	}
	return db.Create(category).Error
}

func (r *categoryRepository) List(db *gorm.DB) ([]models.Category, error) {
	if db == nil {
		db = r.db
	}
	var categories []models.Category
	if err := db.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Category, error) {
	if db == nil {
		db = r.db
	}
	var category models.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Category{}, "id = ?", id).Error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(book).Error
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Save(book).Error
}

func (r *bookRepository) ListActive(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Preload("Category").Where("is_active = ?", true).Order("code").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) ListAll(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Preload("Category").Order("code").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.Preload("Category").First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetActiveByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ? AND is_active = ?", id, true).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) AdjustAvailable(db *gorm.DB, bookID uuid.UUID, delta int) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("available", gorm.Expr("available + ?", delta)).
		Error
}

func (r *bookRepository) SetStock(db *gorm.DB, bookID uuid.UUID, totalQuantity, available int) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumns(map[string]interface{}{
			"total_quantity": totalQuantity,
			"available":      available,
		}).Error
}

func (r *bookRepository) CountByCategory(db *gorm.DB, categoryID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Book{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

type readerRepository struct {
	db *gorm.DB
}

func NewReaderRepository(db *gorm.DB) ReaderRepository {
	return &readerRepository{db: db}
}

func (r *readerRepository) Create(db *gorm.DB, reader *models.Reader) error {
	if db == nil {
		db = r.db
	}
	return db.Create(reader).Error
}

func (r *readerRepository) List(db *gorm.DB) ([]models.Reader, error) {
	if db == nil {
		db = r.db
	}
	var readers []models.Reader
	if err := db.Order("card_id").Find(&readers).Error; err != nil {
		return nil, err
	}
	return readers, nil
}

func (r *readerRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Reader, error) {
	if db == nil {
		db = r.db
	}
	var reader models.Reader
	if err := db.First(&reader, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reader, nil
}

func (r *readerRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Reader{}, "id = ?", id).Error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(loan).Error
}

func (r *loanRepository) Update(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Model(loan).
		Select("borrow_date", "due_date", "return_date", "status").
		Updates(loan).Error
}

func (r *loanRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	if err := db.Preload("Book").Preload("Reader").First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) List(db *gorm.DB, filter LoanFilter) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	q := db.Preload("Book").Preload("Reader")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ReaderID != uuid.Nil {
		q = q.Where("reader_id = ?", filter.ReaderID)
	}
	if filter.BookID != uuid.Nil {
		q = q.Where("book_id = ?", filter.BookID)
	}
	var loans []models.Loan
	if err := q.Order("borrow_date DESC, id").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) CountByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Loan{}).Where("book_id = ?", bookID).Count(&n).Error
	return n, err
}

func (r *loanRepository) CountByReader(db *gorm.DB, readerID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Loan{}).Where("reader_id = ?", readerID).Count(&n).Error
	return n, err
}

func (r *loanRepository) CountsPerBook(db *gorm.DB) (map[uuid.UUID]int64, error) {
	if db == nil {
		db = r.db
	}
	var rows []struct {
		BookID uuid.UUID
		Total  int64
	}
	if err := db.Model(&models.Loan{}).
		Select("book_id, COUNT(*) AS total").
		Group("book_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.BookID] = row.Total
	}
	return counts, nil
}

type damageRepository struct {
	db *gorm.DB
}

func NewDamageRepository(db *gorm.DB) DamageRepository {
	return &damageRepository{db: db}
}

func (r *damageRepository) Create(db *gorm.DB, damage *models.Damage) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(damage).Error
}

func (r *damageRepository) Update(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Damage{}).Where("id = ?", id).Updates(fields).Error
}

func (r *damageRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Damage, error) {
	if db == nil {
		db = r.db
	}
	var damage models.Damage
	if err := db.Preload("Loan.Book").Preload("Loan.Reader").First(&damage, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &damage, nil
}

func (r *damageRepository) List(db *gorm.DB, unpaidOnly bool) ([]models.Damage, error) {
	if db == nil {
		db = r.db
	}
	q := db.Preload("Loan.Book").Preload("Loan.Reader")
	if unpaidOnly {
		q = q.Where("is_paid = ?", false)
	}
	var damages []models.Damage
	if err := q.Order("reported_date DESC, id").Find(&damages).Error; err != nil {
		return nil, err
	}
	return damages, nil
}

// HasLostCopy reports whether the copy behind a loan has been reported lost.
func (r *damageRepository) HasLostCopy(db *gorm.DB, loanID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Damage{}).
		Where("loan_id = ? AND damage_type = ?", loanID, models.DamageTypeLost).
		Count(&n).Error
	return n > 0, err
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(db *gorm.DB, reservation *models.Reservation) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(reservation).Error
}

func (r *reservationRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var res models.Reservation
	if err := db.First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) GetNextForBook(db *gorm.DB, bookID uuid.UUID) (*models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var res models.Reservation
	err := db.Where("book_id = ?", bookID).
		Order("queue_position ASC, created_at ASC").
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) GetByBookAndReader(db *gorm.DB, bookID, readerID uuid.UUID) (*models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var res models.Reservation
	err := db.Where("book_id = ? AND reader_id = ?", bookID, readerID).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Reservation{}, "id = ?", id).Error
}

func (r *reservationRepository) DeleteByBook(db *gorm.DB, bookID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Reservation{}, "book_id = ?", bookID).Error
}

func (r *reservationRepository) DeleteByReader(db *gorm.DB, readerID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Reservation{}, "reader_id = ?", readerID).Error
}

// GetNextQueuePosition must run while the caller holds the book row lock, which
// keeps MAX(queue_position) stable under concurrency.
func (r *reservationRepository) GetNextQueuePosition(db *gorm.DB, bookID uuid.UUID) (int, error) {
	if db == nil {
		db = r.db
	}
	var maxPos int
	if err := db.Model(&models.Reservation{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(MAX(queue_position), 0)").
		Scan(&maxPos).Error; err != nil {
		return 0, err
	}
	return maxPos + 1, nil
}

func (r *reservationRepository) ListByBook(db *gorm.DB, bookID uuid.UUID) ([]models.Reservation, error) {
	if db == nil {
		db = r.db
	}
	var res []models.Reservation
	if err := db.Preload("Reader").
		Where("book_id = ?", bookID).
		Order("queue_position ASC").
		Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
