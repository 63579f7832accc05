package models

import (
	"time"

	"github.com/google/uuid"
)

// SupplierInvoice is a payable: money the business owes a supplier.
type SupplierInvoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID `gorm:"index"`
	SupplierID    uuid.UUID `gorm:"index"`
	InvoiceNumber string    `gorm:"index"`
	SupplierName  string    `gorm:"index"`
	Total         float64
	AmountPaid    float64
	Status        string `gorm:"index"`
	IssueDate     time.Time
	DueDate       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Outstanding is the unpaid remainder of the purchase.
func (s *SupplierInvoice) Outstanding() float64 {
	return s.Total - s.AmountPaid
}
