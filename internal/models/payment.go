package models

import (
	"time"

	"github.com/google/uuid"
)

// Party types a payment can belong to.
const (
	PartyClient   = "client"
	PartySupplier = "supplier"
)

// Payment is a single cash movement split across one or more documents.
// Immutable once created.
type Payment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID `gorm:"index"`
	PartyType    string
	PartyID      uuid.UUID `gorm:"index"`
	Amount       float64
	PaymentDate  time.Time
	Reference    string
	Currency     string
	ExchangeRate float64
	CreatedAt    time.Time

	Allocations []PaymentAllocation `gorm:"foreignKey:PaymentID"`
}

// PaymentAllocation is the portion of a payment applied to one document.
// Exactly one of InvoiceID / SupplierInvoiceID is set. For a given payment
// the allocation amounts sum to the payment amount.
type PaymentAllocation struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PaymentID         uuid.UUID  `gorm:"index"`
	InvoiceID         *uuid.UUID `gorm:"index"`
	SupplierInvoiceID *uuid.UUID `gorm:"index"`
	Amount            float64
	CreatedAt         time.Time
}
