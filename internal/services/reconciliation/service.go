// Package reconciliation drives the bank transaction state machine:
// Unmatched → Matched → Reconciled, with unmatch back out of either state.
// Every transition appends to the reconciliation history.
package reconciliation

import (
	"encoding/json"
	"errors"
	"fmt"

	"accounting-reconciliation-backend/internal/apperrors"
	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/repository"
	"accounting-reconciliation-backend/internal/services/allocation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db           *gorm.DB
	transactions *repository.BankTransactionRepository
	ledger       *repository.LedgerRepository
	history      *repository.HistoryRepository
	allocator    *allocation.Engine
	logger       *zap.Logger
}

func NewService(
	db *gorm.DB,
	transactions *repository.BankTransactionRepository,
	ledger *repository.LedgerRepository,
	history *repository.HistoryRepository,
	allocator *allocation.Engine,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:           db,
		transactions: transactions,
		ledger:       ledger,
		history:      history,
		allocator:    allocator,
		logger:       logger,
	}
}

// MatchInput describes one operator- or rule-chosen match.
type MatchInput struct {
	TargetType    string
	TargetID      uuid.UUID
	Notes         string
	Method        string
	Confidence    int
	Actor         string
	AutoReconcile bool
}

// Match links the transaction to its target. Re-matching replaces the prior
// link and appends a fresh history entry; it never rewrites history. The
// reconciled flag is untouched unless AutoReconcile is set.
func (s *Service) Match(txID uuid.UUID, in MatchInput) (*models.BankTransaction, error) {
	tx, err := s.transactions.GetByID(txID)
	if err != nil {
		return nil, err
	}
	if err := s.validateTarget(tx, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	tx.ClearMatch()
	switch in.TargetType {
	case models.TargetInvoice:
		tx.MatchedInvoiceID = &in.TargetID
	case models.TargetSupplierInvoice:
		tx.MatchedSupplierInvoiceID = &in.TargetID
	case models.TargetAccount:
		tx.MatchedAccountID = &in.TargetID
	}
	tx.ConfidenceScore = float64(in.Confidence)

	details, _ := json.Marshal(map[string]interface{}{
		"target_type": in.TargetType,
		"target_id":   in.TargetID.String(),
		"score":       in.Confidence,
		"method":      in.Method,
	})
	tx.MatchDetails = details

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Save(tx).Error; err != nil {
			return err
		}
		return s.history.Append(dbtx, &models.ReconciliationHistoryEntry{
			CompanyID:         tx.CompanyID,
			BankTransactionID: tx.ID,
			Action:            models.ActionMatched,
			MatchedToType:     in.TargetType,
			MatchedToID:       &in.TargetID,
			MatchMethod:       in.Method,
			Notes:             in.Notes,
			Actor:             in.Actor,
			Details:           details,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction matched",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("target_type", in.TargetType),
		zap.String("target_id", in.TargetID.String()),
		zap.String("method", in.Method),
	)

	if in.AutoReconcile {
		return s.Reconcile(txID, true, in.Actor)
	}
	return tx, nil
}

// validateTarget enforces company scoping and, for documents, that the
// outstanding balance still has room for the transaction amount.
func (s *Service) validateTarget(tx *models.BankTransaction, targetType string, targetID uuid.UUID) error {
	switch targetType {
	case models.TargetInvoice:
		invoice, err := s.ledger.GetInvoice(targetID)
		if err != nil {
			return fmt.Errorf("invoice %s does not exist: %w", targetID, apperrors.ErrInvalidTarget)
		}
		if invoice.CompanyID != tx.CompanyID {
			return fmt.Errorf("invoice %s belongs to another company: %w", targetID, apperrors.ErrInvalidTarget)
		}
		if tx.Amount > invoice.Outstanding()+allocation.Epsilon {
			return fmt.Errorf("invoice %s has %.2f outstanding, no room for %.2f: %w",
				targetID, invoice.Outstanding(), tx.Amount, apperrors.ErrInvalidTarget)
		}
	case models.TargetSupplierInvoice:
		purchase, err := s.ledger.GetSupplierInvoice(targetID)
		if err != nil {
			return fmt.Errorf("supplier invoice %s does not exist: %w", targetID, apperrors.ErrInvalidTarget)
		}
		if purchase.CompanyID != tx.CompanyID {
			return fmt.Errorf("supplier invoice %s belongs to another company: %w", targetID, apperrors.ErrInvalidTarget)
		}
		if tx.Amount > purchase.Outstanding()+allocation.Epsilon {
			return fmt.Errorf("supplier invoice %s has %.2f outstanding, no room for %.2f: %w",
				targetID, purchase.Outstanding(), tx.Amount, apperrors.ErrInvalidTarget)
		}
	case models.TargetAccount:
		account, err := s.ledger.GetAccount(targetID)
		if err != nil {
			return fmt.Errorf("account %s does not exist: %w", targetID, apperrors.ErrInvalidTarget)
		}
		if account.CompanyID != tx.CompanyID {
			return fmt.Errorf("account %s belongs to another company: %w", targetID, apperrors.ErrInvalidTarget)
		}
	default:
		return fmt.Errorf("unknown target type %q: %w", targetType, apperrors.ErrInvalidTarget)
	}
	return nil
}

// Reconcile toggles the reconciled flag. Reconciling a transaction matched
// to a document first records the cash movement as a payment allocated to
// that document, atomically with the flag flip.
func (s *Service) Reconcile(txID uuid.UUID, reconciled bool, actor string) (*models.BankTransaction, error) {
	tx, err := s.transactions.GetByID(txID)
	if err != nil {
		return nil, err
	}
	if tx.IsReconciled == reconciled {
		return tx, nil
	}

	action := models.ActionReconciled
	if !reconciled {
		action = models.ActionUnreconciled
	}

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if reconciled {
			if err := s.settleMatchedDocument(dbtx, tx); err != nil {
				return err
			}
		}

		tx.IsReconciled = reconciled
		if err := dbtx.Save(tx).Error; err != nil {
			return err
		}

		targetType, targetID := matchedTarget(tx)
		return s.history.Append(dbtx, &models.ReconciliationHistoryEntry{
			CompanyID:         tx.CompanyID,
			BankTransactionID: tx.ID,
			Action:            action,
			MatchedToType:     targetType,
			MatchedToID:       targetID,
			Actor:             actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction reconciliation changed",
		zap.String("transaction_id", tx.ID.String()),
		zap.Bool("reconciled", reconciled),
	)
	return tx, nil
}

// settleMatchedDocument creates the payment for a document-matched
// transaction. Account matches and plain categorizations move no subledger
// balance, so they reconcile without a payment. The document is read through
// the transaction handle so the whole settlement is one atomic unit.
func (s *Service) settleMatchedDocument(dbtx *gorm.DB, tx *models.BankTransaction) error {
	reference := tx.Reference
	if reference == "" {
		reference = tx.Description
	}

	switch {
	case tx.MatchedInvoiceID != nil:
		var invoice models.Invoice
		if err := dbtx.First(&invoice, "id = ?", *tx.MatchedInvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("invoice %s: %w", *tx.MatchedInvoiceID, apperrors.ErrNotFound)
			}
			return err
		}
		_, err := s.allocator.CreatePaymentTx(dbtx, tx.CompanyID, allocation.PaymentInput{
			PartyType:   models.PartyClient,
			PartyID:     invoice.CustomerID,
			PaymentDate: tx.TransactionDate,
			Amount:      tx.Amount,
			Reference:   reference,
			Allocations: []allocation.AllocationInput{{InvoiceID: tx.MatchedInvoiceID, Amount: tx.Amount}},
		})
		return err
	case tx.MatchedSupplierInvoiceID != nil:
		var purchase models.SupplierInvoice
		if err := dbtx.First(&purchase, "id = ?", *tx.MatchedSupplierInvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("supplier invoice %s: %w", *tx.MatchedSupplierInvoiceID, apperrors.ErrNotFound)
			}
			return err
		}
		_, err := s.allocator.CreatePaymentTx(dbtx, tx.CompanyID, allocation.PaymentInput{
			PartyType:   models.PartySupplier,
			PartyID:     purchase.SupplierID,
			PaymentDate: tx.TransactionDate,
			Amount:      tx.Amount,
			Reference:   reference,
			Allocations: []allocation.AllocationInput{{SupplierInvoiceID: tx.MatchedSupplierInvoiceID, Amount: tx.Amount}},
		})
		return err
	default:
		return nil
	}
}

// Unmatch drops the transaction's link and reconciled flag, returning it to
// the initial state. The prior target is preserved in the history entry.
func (s *Service) Unmatch(txID uuid.UUID, actor, notes string) (*models.BankTransaction, error) {
	tx, err := s.transactions.GetByID(txID)
	if err != nil {
		return nil, err
	}

	targetType, targetID := matchedTarget(tx)
	tx.ClearMatch()
	tx.IsReconciled = false

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Save(tx).Error; err != nil {
			return err
		}
		return s.history.Append(dbtx, &models.ReconciliationHistoryEntry{
			CompanyID:         tx.CompanyID,
			BankTransactionID: tx.ID,
			Action:            models.ActionUnmatched,
			MatchedToType:     targetType,
			MatchedToID:       targetID,
			Notes:             notes,
			Actor:             actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// CategorizeInput labels a transaction without a full match.
type CategorizeInput struct {
	CategoryType string
	CategoryID   *uuid.UUID
	InvoiceID    *uuid.UUID
	Actor        string
}

// Categorize assigns a category independently of the match/reconcile
// states.
func (s *Service) Categorize(txID uuid.UUID, in CategorizeInput) (*models.BankTransaction, error) {
	tx, err := s.transactions.GetByID(txID)
	if err != nil {
		return nil, err
	}

	switch in.CategoryType {
	case models.CategoryNone:
		in.CategoryID = nil
	case models.CategoryClient, models.CategorySupplier:
		// Client/supplier records live with the external collaborator;
		// the id is taken as given.
	case models.CategoryAccount:
		if in.CategoryID == nil {
			return nil, fmt.Errorf("account category needs an account id: %w", apperrors.ErrInvalidTarget)
		}
		account, err := s.ledger.GetAccount(*in.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("account %s does not exist: %w", *in.CategoryID, apperrors.ErrInvalidTarget)
		}
		if account.CompanyID != tx.CompanyID {
			return nil, fmt.Errorf("account %s belongs to another company: %w", *in.CategoryID, apperrors.ErrInvalidTarget)
		}
	default:
		return nil, fmt.Errorf("unknown category type %q: %w", in.CategoryType, apperrors.ErrInvalidTarget)
	}

	if in.InvoiceID != nil {
		if err := s.validateTarget(tx, models.TargetInvoice, *in.InvoiceID); err != nil {
			return nil, err
		}
		// Relinking: at most one match link may be set.
		tx.ClearMatch()
		tx.MatchedInvoiceID = in.InvoiceID
	}

	tx.CategoryType = in.CategoryType
	tx.CategoryID = in.CategoryID
	if err := s.db.Save(tx).Error; err != nil {
		return nil, err
	}
	return tx, nil
}

func matchedTarget(tx *models.BankTransaction) (string, *uuid.UUID) {
	switch {
	case tx.MatchedInvoiceID != nil:
		return models.TargetInvoice, tx.MatchedInvoiceID
	case tx.MatchedSupplierInvoiceID != nil:
		return models.TargetSupplierInvoice, tx.MatchedSupplierInvoiceID
	case tx.MatchedAccountID != nil:
		return models.TargetAccount, tx.MatchedAccountID
	default:
		return "", nil
	}
}
