package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Direction of a statement line relative to the business's bank account:
// credit is money in, debit is money out. Amount is always positive.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// Category types assignable to a transaction without a full match.
const (
	CategoryNone     = "none"
	CategoryClient   = "client"
	CategorySupplier = "supplier"
	CategoryAccount  = "account"
)

type BankTransaction struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID `gorm:"index"`
	ImportBatchID uuid.UUID `gorm:"index"`

	TransactionDate time.Time `gorm:"column:transaction_date"`
	Description     string
	Amount          float64 `gorm:"index"`
	Direction       string  `gorm:"index"`
	Reference       string

	IsReconciled bool   `gorm:"index"`
	CategoryType string `gorm:"default:none"`
	CategoryID   *uuid.UUID

	// At most one of the matched links is set at a time.
	MatchedInvoiceID         *uuid.UUID
	MatchedSupplierInvoiceID *uuid.UUID
	MatchedAccountID         *uuid.UUID
	ConfidenceScore          float64
	MatchDetails             datatypes.JSON

	// DedupKey is company|date|normalized description|amount|direction.
	// Its unique index is the source of truth for import idempotency.
	DedupKey string `gorm:"uniqueIndex"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Matched reports whether the transaction is linked to any target.
func (t *BankTransaction) Matched() bool {
	return t.MatchedInvoiceID != nil || t.MatchedSupplierInvoiceID != nil || t.MatchedAccountID != nil
}

// ClearMatch drops all target links and the recorded confidence.
func (t *BankTransaction) ClearMatch() {
	t.MatchedInvoiceID = nil
	t.MatchedSupplierInvoiceID = nil
	t.MatchedAccountID = nil
	t.ConfidenceScore = 0
	t.MatchDetails = nil
}
