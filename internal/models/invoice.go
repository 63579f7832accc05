package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is a receivable: money a client owes the business.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID `gorm:"index"`
	CustomerID    uuid.UUID `gorm:"index"`
	InvoiceNumber string    `gorm:"index"`
	CustomerName  string    `gorm:"index"`
	Total         float64
	AmountPaid    float64
	Status        string `gorm:"index"`
	IssueDate     time.Time
	DueDate       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Outstanding is the unpaid remainder of the invoice.
func (i *Invoice) Outstanding() float64 {
	return i.Total - i.AmountPaid
}
