package repository

import (
	"errors"
	"fmt"

	"accounting-reconciliation-backend/internal/apperrors"
	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository is the read-only gateway into the accounting subledger:
// open receivables/payables and expense accounts. The rest of the core only
// reads through it; balance mutation happens in the allocation engine.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ListOpenReceivables returns the company's payable-into invoices, oldest
// due first.
func (r *LedgerRepository) ListOpenReceivables(companyID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("company_id = ? AND status IN ?", companyID, models.OpenStatuses).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

// ListOpenReceivablesByCustomer narrows open receivables to one client.
func (r *LedgerRepository) ListOpenReceivablesByCustomer(companyID, customerID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("company_id = ? AND customer_id = ? AND status IN ?", companyID, customerID, models.OpenStatuses).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

// ListOpenPayables returns the company's unpaid supplier invoices, oldest
// due first.
func (r *LedgerRepository) ListOpenPayables(companyID uuid.UUID) ([]models.SupplierInvoice, error) {
	var purchases []models.SupplierInvoice
	err := r.db.
		Where("company_id = ? AND status IN ?", companyID, models.OpenStatuses).
		Order("due_date ASC").
		Find(&purchases).Error
	return purchases, err
}

// ListOpenPayablesBySupplier narrows open payables to one supplier.
func (r *LedgerRepository) ListOpenPayablesBySupplier(companyID, supplierID uuid.UUID) ([]models.SupplierInvoice, error) {
	var purchases []models.SupplierInvoice
	err := r.db.
		Where("company_id = ? AND supplier_id = ? AND status IN ?", companyID, supplierID, models.OpenStatuses).
		Order("due_date ASC").
		Find(&purchases).Error
	return purchases, err
}

// ListAccounts returns the company's expense/category accounts.
func (r *LedgerRepository) ListAccounts(companyID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.
		Where("company_id = ?", companyID).
		Order("code ASC").
		Find(&accounts).Error
	return accounts, err
}

// GetInvoice fetches a single receivable.
func (r *LedgerRepository) GetInvoice(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invoice %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &invoice, nil
}

// GetSupplierInvoice fetches a single payable.
func (r *LedgerRepository) GetSupplierInvoice(id uuid.UUID) (*models.SupplierInvoice, error) {
	var purchase models.SupplierInvoice
	if err := r.db.First(&purchase, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("supplier invoice %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &purchase, nil
}

// GetAccount fetches a single account.
func (r *LedgerRepository) GetAccount(id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &account, nil
}
