package matching

import (
	"time"

	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/repository"
	"accounting-reconciliation-backend/internal/services/reconciliation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AutoMatchFilter narrows the transactions a batch run considers.
type AutoMatchFilter struct {
	Direction     string
	From          time.Time
	To            time.Time
	ImportBatchID uuid.UUID
}

// AutoMatchError records a single transaction's failure inside a batch.
type AutoMatchError struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
}

// AutoMatchResult reports what a batch run did.
type AutoMatchResult struct {
	Matched int              `json:"matched"`
	Errors  []AutoMatchError `json:"errors"`
}

// AutoMatcher applies high-confidence matches across a company's unmatched
// transactions.
type AutoMatcher struct {
	transactions *repository.BankTransactionRepository
	engine       *Engine
	recon        *reconciliation.Service
	logger       *zap.Logger
}

func NewAutoMatcher(
	transactions *repository.BankTransactionRepository,
	engine *Engine,
	recon *reconciliation.Service,
	logger *zap.Logger,
) *AutoMatcher {
	return &AutoMatcher{
		transactions: transactions,
		engine:       engine,
		recon:        recon,
		logger:       logger,
	}
}

// Run walks the unmatched transactions sequentially. A transaction is
// auto-matched only when the top suggestion clears the confidence threshold
// and no runner-up sits inside the ambiguity margin; matched transactions
// are reconciled immediately. One transaction's failure never aborts the
// batch: it is recorded and processing continues.
func (m *AutoMatcher) Run(companyID uuid.UUID, filter AutoMatchFilter) (AutoMatchResult, error) {
	txs, err := m.transactions.ListUnmatched(companyID, repository.UnmatchedFilter{
		Direction:     filter.Direction,
		From:          filter.From,
		To:            filter.To,
		ImportBatchID: filter.ImportBatchID,
	})
	if err != nil {
		return AutoMatchResult{}, err
	}

	result := AutoMatchResult{Errors: []AutoMatchError{}}
	policy := m.engine.policy

	for i := range txs {
		tx := &txs[i]

		suggestions, err := m.engine.Suggest(tx)
		if err != nil {
			result.Errors = append(result.Errors, AutoMatchError{TransactionID: tx.ID, Reason: err.Error()})
			continue
		}
		if len(suggestions) == 0 {
			continue
		}

		top := suggestions[0]
		if top.Score < policy.ConfidenceThreshold {
			continue
		}
		if len(suggestions) > 1 && top.Score-suggestions[1].Score < policy.AmbiguityMargin {
			// Ambiguous: leave it for an operator.
			continue
		}

		_, err = m.recon.Match(tx.ID, reconciliation.MatchInput{
			TargetType:    string(top.Type),
			TargetID:      top.ID,
			Method:        models.MethodAutoRule,
			Confidence:    top.Score,
			Actor:         "system",
			AutoReconcile: true,
		})
		if err != nil {
			result.Errors = append(result.Errors, AutoMatchError{TransactionID: tx.ID, Reason: err.Error()})
			continue
		}
		result.Matched++
	}

	m.logger.Info("auto-match run completed",
		zap.String("company_id", companyID.String()),
		zap.Int("candidates", len(txs)),
		zap.Int("matched", result.Matched),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}
