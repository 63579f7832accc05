package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Actions recorded against a bank transaction.
const (
	ActionMatched      = "matched"
	ActionReconciled   = "reconciled"
	ActionUnreconciled = "unreconciled"
	ActionUnmatched    = "unmatched"
)

// How a match came about.
const (
	MethodManual     = "manual"
	MethodAutoRule   = "auto_rule"
	MethodSuggestion = "suggestion"
)

// Match target types.
const (
	TargetInvoice         = "invoice"
	TargetSupplierInvoice = "supplier_invoice"
	TargetAccount         = "account"
)

// ReconciliationHistoryEntry records one match/unmatch/reconcile action.
// Entries are append-only: never updated, never deleted.
type ReconciliationHistoryEntry struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID `gorm:"index"`
	BankTransactionID uuid.UUID `gorm:"index"`
	Action            string    `gorm:"index"`
	MatchedToType     string
	MatchedToID       *uuid.UUID
	MatchMethod       string
	Notes             string
	Actor             string
	Details           datatypes.JSON
	CreatedAt         time.Time
}
