package repository

import (
	"time"

	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository appends and queries the reconciliation audit trail.
// The table is append-only: there are no update or delete methods.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append writes one entry using the given handle, so callers can include it
// in a surrounding transaction.
func (r *HistoryRepository) Append(tx *gorm.DB, entry *models.ReconciliationHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return tx.Create(entry).Error
}

// HistoryFilter narrows a history listing. Zero values mean "no filter".
type HistoryFilter struct {
	Action            string
	BankTransactionID uuid.UUID
	From              time.Time
	To                time.Time
}

// List returns the company's history entries, newest first.
func (r *HistoryRepository) List(companyID uuid.UUID, f HistoryFilter) ([]models.ReconciliationHistoryEntry, error) {
	query := r.db.
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC")

	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.BankTransactionID != uuid.Nil {
		query = query.Where("bank_transaction_id = ?", f.BankTransactionID)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at <= ?", f.To)
	}

	var entries []models.ReconciliationHistoryEntry
	err := query.Find(&entries).Error
	return entries, err
}
