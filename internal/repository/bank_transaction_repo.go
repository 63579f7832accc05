package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"accounting-reconciliation-backend/internal/apperrors"
	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// GetByID fetches a single transaction.
func (r *BankTransactionRepository) GetByID(id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := r.db.First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bank transaction %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &tx, nil
}

// UnmatchedFilter narrows the auto-match candidate set. Zero values mean
// "no filter".
type UnmatchedFilter struct {
	Direction     string
	From          time.Time
	To            time.Time
	ImportBatchID uuid.UUID
}

// ListUnmatched returns the company's unreconciled transactions that carry
// no match link, oldest first.
func (r *BankTransactionRepository) ListUnmatched(companyID uuid.UUID, f UnmatchedFilter) ([]models.BankTransaction, error) {
	query := r.db.
		Where("company_id = ? AND is_reconciled = ?", companyID, false).
		Where("matched_invoice_id IS NULL AND matched_supplier_invoice_id IS NULL AND matched_account_id IS NULL").
		Order("transaction_date ASC, id ASC")

	if f.Direction != "" {
		query = query.Where("direction = ?", f.Direction)
	}
	if !f.From.IsZero() {
		query = query.Where("transaction_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("transaction_date <= ?", f.To)
	}
	if f.ImportBatchID != uuid.Nil {
		query = query.Where("import_batch_id = ?", f.ImportBatchID)
	}

	var txs []models.BankTransaction
	err := query.Find(&txs).Error
	return txs, err
}

// List returns a company-scoped page of transactions with cursor pagination.
// status is one of all|reconciled|unreconciled|matched|unmatched.
func (r *BankTransactionRepository) List(companyID uuid.UUID, status, cursor string, limit int, search string) ([]models.BankTransaction, string, bool, error) {
	query := r.db.
		Where("company_id = ?", companyID).
		Order("id ASC").
		Limit(limit + 1)

	switch status {
	case "", "all":
	case "reconciled":
		query = query.Where("is_reconciled = ?", true)
	case "unreconciled":
		query = query.Where("is_reconciled = ?", false)
	case "matched":
		query = query.Where("matched_invoice_id IS NOT NULL OR matched_supplier_invoice_id IS NOT NULL OR matched_account_id IS NOT NULL")
	case "unmatched":
		query = query.Where("matched_invoice_id IS NULL AND matched_supplier_invoice_id IS NULL AND matched_account_id IS NULL")
	}

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(description) LIKE ? OR LOWER(reference) LIKE ?", like, like)
	}

	var txs []models.BankTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(txs) > limit {
		hasMore = true
		nextCursor = txs[limit-1].ID.String()
		txs = txs[:limit]
	}
	return txs, nextCursor, hasMore, nil
}
