package matching

import (
	"math"
	"sort"
	"time"

	"accounting-reconciliation-backend/internal/config"
	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerGateway is the read-only view of the subledger the matching code
// needs. The repository layer provides the production implementation.
type LedgerGateway interface {
	ListOpenReceivables(companyID uuid.UUID) ([]models.Invoice, error)
	ListOpenPayables(companyID uuid.UUID) ([]models.SupplierInvoice, error)
}

// Suggestion is one ranked match candidate. Suggestions are computed on
// demand and never persisted.
type Suggestion struct {
	Type         CandidateKind `json:"type"`
	ID           uuid.UUID     `json:"id"`
	Score        int           `json:"score"`
	Amount       float64       `json:"amount"`
	Date         time.Time     `json:"date"`
	Counterparty string        `json:"counterparty"`
}

type Engine struct {
	gateway LedgerGateway
	policy  config.MatchPolicy
	logger  *zap.Logger
}

func NewEngine(gateway LedgerGateway, policy config.MatchPolicy, logger *zap.Logger) *Engine {
	return &Engine{gateway: gateway, policy: policy, logger: logger}
}

type scored struct {
	Suggestion
	dayDistance float64
	amountDiff  float64
}

// Suggest scores the company's open documents against the transaction and
// returns the top candidates at or above the display floor, best first.
// Ties break on closer date, then smaller amount difference.
func (e *Engine) Suggest(tx *models.BankTransaction) ([]Suggestion, error) {
	candidates, err := e.candidatesFor(tx)
	if err != nil {
		return nil, err
	}

	var ranked []scored
	for _, c := range candidates {
		score := Score(tx, c, e.policy)
		if score < e.policy.DisplayFloor {
			continue
		}
		ranked = append(ranked, scored{
			Suggestion: Suggestion{
				Type:         c.Kind,
				ID:           c.ID,
				Score:        score,
				Amount:       c.Outstanding,
				Date:         c.DueDate,
				Counterparty: c.Counterparty,
			},
			dayDistance: math.Min(daysBetween(tx.TransactionDate, c.IssueDate), daysBetween(tx.TransactionDate, c.DueDate)),
			amountDiff:  math.Abs(tx.Amount - c.Outstanding),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].dayDistance != ranked[j].dayDistance {
			return ranked[i].dayDistance < ranked[j].dayDistance
		}
		return ranked[i].amountDiff < ranked[j].amountDiff
	})

	if len(ranked) > e.policy.TopN {
		ranked = ranked[:e.policy.TopN]
	}

	suggestions := make([]Suggestion, len(ranked))
	for i, r := range ranked {
		suggestions[i] = r.Suggestion
	}
	return suggestions, nil
}

// candidatesFor maps open documents to scoring candidates: receivables for
// credits, payables for debits.
func (e *Engine) candidatesFor(tx *models.BankTransaction) ([]Candidate, error) {
	if tx.Direction == models.DirectionCredit {
		invoices, err := e.gateway.ListOpenReceivables(tx.CompanyID)
		if err != nil {
			return nil, err
		}
		candidates := make([]Candidate, 0, len(invoices))
		for _, inv := range invoices {
			candidates = append(candidates, Candidate{
				Kind:           KindInvoice,
				ID:             inv.ID,
				Outstanding:    inv.Outstanding(),
				IssueDate:      inv.IssueDate,
				DueDate:        inv.DueDate,
				Counterparty:   inv.CustomerName,
				DocumentNumber: inv.InvoiceNumber,
			})
		}
		return candidates, nil
	}

	purchases, err := e.gateway.ListOpenPayables(tx.CompanyID)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(purchases))
	for _, p := range purchases {
		candidates = append(candidates, Candidate{
			Kind:           KindSupplierInvoice,
			ID:             p.ID,
			Outstanding:    p.Outstanding(),
			IssueDate:      p.IssueDate,
			DueDate:        p.DueDate,
			Counterparty:   p.SupplierName,
			DocumentNumber: p.InvoiceNumber,
		})
	}
	return candidates, nil
}
