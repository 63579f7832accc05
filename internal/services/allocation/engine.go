// Package allocation creates payments and splits them across open
// receivables/payables, keeping document balances consistent under
// concurrent callers.
package allocation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"accounting-reconciliation-backend/internal/apperrors"
	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epsilon is the tolerance for allocation sum comparisons.
const Epsilon = 0.005

// AllocationInput targets one document. Exactly one of InvoiceID /
// SupplierInvoiceID must be set.
type AllocationInput struct {
	InvoiceID         *uuid.UUID `json:"invoice_id"`
	SupplierInvoiceID *uuid.UUID `json:"supplier_invoice_id"`
	Amount            float64    `json:"amount"`
}

// PaymentInput describes one payment and how it splits across documents.
type PaymentInput struct {
	PartyType   string            `json:"party_type"`
	PartyID     uuid.UUID         `json:"party_id"`
	PaymentDate time.Time         `json:"payment_date"`
	Amount      float64           `json:"amount"`
	Reference   string            `json:"reference"`
	Currency    string            `json:"currency"`
	Allocations []AllocationInput `json:"allocations"`
}

type Engine struct {
	db     *gorm.DB
	ledger *repository.LedgerRepository
	logger *zap.Logger
}

func NewEngine(db *gorm.DB, ledger *repository.LedgerRepository, logger *zap.Logger) *Engine {
	return &Engine{db: db, ledger: ledger, logger: logger}
}

// CreatePayment validates the allocation set and applies it as a single
// atomic unit: one payment row, one allocation row per entry, and a guarded
// balance increment per target. Any failure rolls everything back.
func (e *Engine) CreatePayment(companyID uuid.UUID, in PaymentInput) (*models.Payment, error) {
	var payment *models.Payment
	err := e.db.Transaction(func(tx *gorm.DB) error {
		p, err := e.CreatePaymentTx(tx, companyID, in)
		payment = p
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("payment created",
		zap.String("company_id", companyID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Float64("amount", payment.Amount),
		zap.Int("allocations", len(payment.Allocations)),
	)
	return payment, nil
}

// CreatePaymentTx runs the allocation inside an existing transaction, for
// callers that need the payment atomic with their own writes.
func (e *Engine) CreatePaymentTx(tx *gorm.DB, companyID uuid.UUID, in PaymentInput) (*models.Payment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:           uuid.New(),
		CompanyID:    companyID,
		PartyType:    in.PartyType,
		PartyID:      in.PartyID,
		Amount:       in.Amount,
		PaymentDate:  in.PaymentDate,
		Reference:    in.Reference,
		Currency:     in.Currency,
		ExchangeRate: 1,
		CreatedAt:    time.Now(),
	}
	if payment.Currency == "" {
		payment.Currency = "EUR"
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, err
	}

	for _, alloc := range in.Allocations {
		row := models.PaymentAllocation{
			ID:                uuid.New(),
			PaymentID:         payment.ID,
			InvoiceID:         alloc.InvoiceID,
			SupplierInvoiceID: alloc.SupplierInvoiceID,
			Amount:            alloc.Amount,
			CreatedAt:         time.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
		payment.Allocations = append(payment.Allocations, row)

		if alloc.InvoiceID != nil {
			if err := e.applyToInvoice(tx, companyID, *alloc.InvoiceID, alloc.Amount); err != nil {
				return nil, err
			}
		} else {
			if err := e.applyToSupplierInvoice(tx, companyID, *alloc.SupplierInvoiceID, alloc.Amount); err != nil {
				return nil, err
			}
		}
	}

	return payment, nil
}

func validateInput(in PaymentInput) error {
	if in.Amount <= 0 {
		return fmt.Errorf("payment amount must be positive: %w", apperrors.ErrAllocationMismatch)
	}
	if len(in.Allocations) == 0 {
		return fmt.Errorf("payment needs at least one allocation: %w", apperrors.ErrAllocationMismatch)
	}

	sum := 0.0
	for _, alloc := range in.Allocations {
		if alloc.Amount <= 0 {
			return fmt.Errorf("allocation amount must be positive: %w", apperrors.ErrAllocationMismatch)
		}
		if (alloc.InvoiceID == nil) == (alloc.SupplierInvoiceID == nil) {
			return fmt.Errorf("allocation must target exactly one document: %w", apperrors.ErrAllocationMismatch)
		}
		sum += alloc.Amount
	}
	if math.Abs(sum-in.Amount) > Epsilon {
		return fmt.Errorf("allocations sum to %.2f, payment amount is %.2f: %w", sum, in.Amount, apperrors.ErrAllocationMismatch)
	}
	return nil
}

// applyToInvoice checks the target and increments its paid amount. The
// UPDATE itself re-validates the balance, so a concurrent allocation that
// settled the invoice first makes this one fail instead of overpaying.
func (e *Engine) applyToInvoice(tx *gorm.DB, companyID, invoiceID uuid.UUID, amount float64) error {
	var invoice models.Invoice
	if err := tx.First(&invoice, "id = ?", invoiceID).Error; err != nil {
		return fmt.Errorf("invoice %s: %w", invoiceID, apperrors.ErrAllocationMismatch)
	}
	if invoice.CompanyID != companyID {
		return fmt.Errorf("invoice %s belongs to another company: %w", invoiceID, apperrors.ErrInvalidTarget)
	}
	if invoice.Status == models.StatusDraft || invoice.Status == models.StatusCancelled {
		return fmt.Errorf("invoice %s is not open for payment: %w", invoiceID, apperrors.ErrAllocationMismatch)
	}
	if amount > invoice.Outstanding()+Epsilon {
		return fmt.Errorf("allocation %.2f exceeds outstanding %.2f on invoice %s: %w",
			amount, invoice.Outstanding(), invoiceID, apperrors.ErrAllocationMismatch)
	}

	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND amount_paid + ? <= total + ?", invoiceID, amount, Epsilon).
		Update("amount_paid", gorm.Expr("amount_paid + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invoice %s was modified concurrently: %w", invoiceID, apperrors.ErrConcurrentModification)
	}

	return recomputeInvoiceStatus(tx, invoiceID)
}

func (e *Engine) applyToSupplierInvoice(tx *gorm.DB, companyID, purchaseID uuid.UUID, amount float64) error {
	var purchase models.SupplierInvoice
	if err := tx.First(&purchase, "id = ?", purchaseID).Error; err != nil {
		return fmt.Errorf("supplier invoice %s: %w", purchaseID, apperrors.ErrAllocationMismatch)
	}
	if purchase.CompanyID != companyID {
		return fmt.Errorf("supplier invoice %s belongs to another company: %w", purchaseID, apperrors.ErrInvalidTarget)
	}
	if purchase.Status == models.StatusDraft || purchase.Status == models.StatusCancelled {
		return fmt.Errorf("supplier invoice %s is not open for payment: %w", purchaseID, apperrors.ErrAllocationMismatch)
	}
	if amount > purchase.Outstanding()+Epsilon {
		return fmt.Errorf("allocation %.2f exceeds outstanding %.2f on supplier invoice %s: %w",
			amount, purchase.Outstanding(), purchaseID, apperrors.ErrAllocationMismatch)
	}

	res := tx.Model(&models.SupplierInvoice{}).
		Where("id = ? AND amount_paid + ? <= total + ?", purchaseID, amount, Epsilon).
		Update("amount_paid", gorm.Expr("amount_paid + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("supplier invoice %s was modified concurrently: %w", purchaseID, apperrors.ErrConcurrentModification)
	}

	return recomputeSupplierInvoiceStatus(tx, purchaseID)
}

func recomputeInvoiceStatus(tx *gorm.DB, id uuid.UUID) error {
	var invoice models.Invoice
	if err := tx.First(&invoice, "id = ?", id).Error; err != nil {
		return err
	}
	status := models.ComputeStatus(invoice.Status, invoice.Total, invoice.AmountPaid, invoice.DueDate, time.Now())
	if status == invoice.Status {
		return nil
	}
	return tx.Model(&models.Invoice{}).Where("id = ?", id).Update("status", status).Error
}

func recomputeSupplierInvoiceStatus(tx *gorm.DB, id uuid.UUID) error {
	var purchase models.SupplierInvoice
	if err := tx.First(&purchase, "id = ?", id).Error; err != nil {
		return err
	}
	status := models.ComputeStatus(purchase.Status, purchase.Total, purchase.AmountPaid, purchase.DueDate, time.Now())
	if status == purchase.Status {
		return nil
	}
	return tx.Model(&models.SupplierInvoice{}).Where("id = ?", id).Update("status", status).Error
}

// AutoAllocateTarget is one open document offered to AutoAllocate.
type AutoAllocateTarget struct {
	InvoiceID         *uuid.UUID
	SupplierInvoiceID *uuid.UUID
	Outstanding       float64
	DueDate           time.Time
}

// AutoAllocateResult carries the proposed split and whatever could not be
// placed. The remainder is surfaced, never silently dropped.
type AutoAllocateResult struct {
	Allocations []AllocationInput `json:"allocations"`
	Remainder   float64           `json:"remainder"`
}

// AutoAllocate greedily spreads amount across the targets oldest-due-first,
// capping each allocation at the target's outstanding balance. Pure
// function, no persistence.
func AutoAllocate(amount float64, targets []AutoAllocateTarget) AutoAllocateResult {
	sorted := make([]AutoAllocateTarget, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})

	result := AutoAllocateResult{}
	remaining := amount
	for _, t := range sorted {
		if remaining <= Epsilon {
			break
		}
		if t.Outstanding <= 0 {
			continue
		}
		take := math.Min(remaining, t.Outstanding)
		result.Allocations = append(result.Allocations, AllocationInput{
			InvoiceID:         t.InvoiceID,
			SupplierInvoiceID: t.SupplierInvoiceID,
			Amount:            take,
		})
		remaining -= take
	}
	if remaining > Epsilon {
		result.Remainder = remaining
	}
	return result
}

// AutoAllocatePayment fetches the party's open documents, splits the amount
// oldest-due-first, and creates a payment for the allocated part. When the
// open documents cannot absorb the whole amount, the leftover is returned
// with no payment row for it.
func (e *Engine) AutoAllocatePayment(companyID uuid.UUID, in PaymentInput) (*models.Payment, float64, error) {
	if in.Amount <= 0 {
		return nil, 0, fmt.Errorf("payment amount must be positive: %w", apperrors.ErrAllocationMismatch)
	}

	var targets []AutoAllocateTarget
	switch in.PartyType {
	case models.PartyClient:
		invoices, err := e.ledger.ListOpenReceivablesByCustomer(companyID, in.PartyID)
		if err != nil {
			return nil, 0, err
		}
		for i := range invoices {
			id := invoices[i].ID
			targets = append(targets, AutoAllocateTarget{
				InvoiceID:   &id,
				Outstanding: invoices[i].Outstanding(),
				DueDate:     invoices[i].DueDate,
			})
		}
	case models.PartySupplier:
		purchases, err := e.ledger.ListOpenPayablesBySupplier(companyID, in.PartyID)
		if err != nil {
			return nil, 0, err
		}
		for i := range purchases {
			id := purchases[i].ID
			targets = append(targets, AutoAllocateTarget{
				SupplierInvoiceID: &id,
				Outstanding:       purchases[i].Outstanding(),
				DueDate:           purchases[i].DueDate,
			})
		}
	default:
		return nil, 0, fmt.Errorf("unknown party type %q: %w", in.PartyType, apperrors.ErrAllocationMismatch)
	}

	split := AutoAllocate(in.Amount, targets)
	if len(split.Allocations) == 0 {
		return nil, split.Remainder, nil
	}

	in.Allocations = split.Allocations
	in.Amount -= split.Remainder
	payment, err := e.CreatePayment(companyID, in)
	if err != nil {
		return nil, 0, err
	}
	return payment, split.Remainder, nil
}
