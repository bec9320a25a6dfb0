package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanStatus string

const (
	LoanStatusBorrowing LoanStatus = "borrowing"
	LoanStatusReturned  LoanStatus = "returned"
)

// Valid reports whether s is one of the known loan states.
func (s LoanStatus) Valid() bool {
	return s == LoanStatusBorrowing || s == LoanStatusReturned
}

type DamageType string

const (
	DamageTypeLost         DamageType = "lost"
	DamageTypeTorn         DamageType = "torn"
	DamageTypeWaterDamaged DamageType = "water_damaged"
	DamageTypeMinor        DamageType = "minor"
)

func (t DamageType) Valid() bool {
	switch t {
	case DamageTypeLost, DamageTypeTorn, DamageTypeWaterDamaged, DamageTypeMinor:
		return true
	}
	return false
}

// IDs are generated client side so that every supported driver gets the same behaviour.
func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"name"`
}

func (c *Category) BeforeCreate(*gorm.DB) error { newID(&c.ID); return nil }

// Book is a catalog entry. Available and TotalQuantity are only changed by loan
// transitions, damage recording and validated admin edits.
type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string    `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	CategoryID    uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	Category      *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
	Author        string    `gorm:"size:200;not null" json:"author"`
	Publisher     string    `gorm:"size:200;not null" json:"publisher"`
	Price         int64     `gorm:"not null" json:"price"`
	TotalQuantity int       `gorm:"not null" json:"total_quantity"`
	Available     int       `gorm:"not null" json:"available"`
	IsActive      bool      `gorm:"not null;index" json:"is_active"`
}

func (b *Book) BeforeCreate(*gorm.DB) error { newID(&b.ID); return nil }

type Reader struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CardID    string    `gorm:"size:50;not null;uniqueIndex" json:"card_id"`
	FullName  string    `gorm:"size:200;not null" json:"full_name"`
	Phone     string    `gorm:"size:20;not null" json:"phone"`
	CreatedAt time.Time `gorm:"<-:create;not null" json:"created_at"`
}

func (r *Reader) BeforeCreate(*gorm.DB) error { newID(&r.ID); return nil }

type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReaderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"reader_id"`
	Reader     *Reader    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"reader,omitempty"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       *Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"book,omitempty"`
	BorrowDate time.Time  `gorm:"type:date;not null;index" json:"borrow_date"`
	DueDate    time.Time  `gorm:"type:date;not null;index" json:"due_date"`
	ReturnDate *time.Time `gorm:"type:date" json:"return_date"`
	Status     LoanStatus `gorm:"size:20;not null;index" json:"status"`
}

func (l *Loan) BeforeCreate(*gorm.DB) error { newID(&l.ID); return nil }

type Damage struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LoanID          uuid.UUID  `gorm:"type:uuid;not null;index;<-:create" json:"loan_id"`
	Loan            *Loan      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"loan,omitempty"`
	DamageType      DamageType `gorm:"size:20;not null" json:"damage_type"`
	ReportedDate    time.Time  `gorm:"type:date;not null" json:"reported_date"`
	CompensationFee int64      `gorm:"not null" json:"compensation_fee"`
	IsPaid          bool       `gorm:"not null" json:"is_paid"`
	Notes           string     `gorm:"type:text" json:"notes"`
}

func (d *Damage) BeforeCreate(*gorm.DB) error { newID(&d.ID); return nil }

type Reservation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reservation_queue,priority:1;uniqueIndex:idx_reservation_reader,priority:1" json:"book_id"`
	Book          *Book     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ReaderID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reservation_reader,priority:2" json:"reader_id"`
	Reader        *Reader   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reader,omitempty"`
	QueuePosition int       `gorm:"not null;uniqueIndex:idx_reservation_queue,priority:2" json:"queue_position"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (r *Reservation) BeforeCreate(*gorm.DB) error { newID(&r.ID); return nil }

// All lists every model in dependency order, for migrations and wipes.
func All() []any {
	return []any{&Category{}, &Book{}, &Reader{}, &Loan{}, &Damage{}, &Reservation{}}
}
