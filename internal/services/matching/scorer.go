// Package matching scores bank transactions against open documents and
// turns the scores into suggestions and automatic matches.
package matching

import (
	"math"
	"strings"
	"time"

	"accounting-reconciliation-backend/internal/config"
	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

// Weighted components of a match score. Direction acts as a gate: a
// direction-incompatible candidate scores 0 outright.
const (
	weightAmount    = 0.5
	weightDate      = 0.2
	weightText      = 0.2
	weightDirection = 0.1
)

// CandidateKind identifies what a candidate is.
type CandidateKind string

const (
	KindInvoice         CandidateKind = "invoice"
	KindSupplierInvoice CandidateKind = "supplier_invoice"
	KindAccount         CandidateKind = "account"
)

// Candidate is the scoring view over one open document or account.
type Candidate struct {
	Kind           CandidateKind
	ID             uuid.UUID
	Outstanding    float64
	IssueDate      time.Time
	DueDate        time.Time
	Counterparty   string
	DocumentNumber string
}

// Score computes the similarity between a transaction and a candidate on a
// 0..100 scale. It is a pure function: identical inputs always yield the
// identical score.
func Score(tx *models.BankTransaction, c Candidate, policy config.MatchPolicy) int {
	if !directionCompatible(tx.Direction, c.Kind) {
		return 0
	}

	text := textSimilarity(tx.Description+" "+tx.Reference, c.Counterparty+" "+c.DocumentNumber)

	// Accounts carry no amount or dates; only text and direction apply.
	if c.Kind == KindAccount {
		return int(math.Round((weightText*text + weightDirection) * 100))
	}

	amount := amountCloseness(tx.Amount, c.Outstanding, policy.AmountTolerancePct)
	date := dateProximity(tx.TransactionDate, c.IssueDate, c.DueDate, policy.DateWindowDays)

	total := weightAmount*amount + weightDate*date + weightText*text + weightDirection
	return int(math.Round(total * 100))
}

// Credit transactions are money owed to the business (receivables); debit
// transactions pay suppliers or expenses.
func directionCompatible(direction string, kind CandidateKind) bool {
	switch kind {
	case KindInvoice:
		return direction == models.DirectionCredit
	case KindSupplierInvoice, KindAccount:
		return direction == models.DirectionDebit
	default:
		return false
	}
}

// amountCloseness is 1 within a cent of the outstanding balance and decays
// linearly to 0 at tolerancePct of it.
func amountCloseness(txAmount, outstanding, tolerancePct float64) float64 {
	diff := math.Abs(txAmount - outstanding)
	if diff <= 0.01 {
		return 1
	}
	tolerance := tolerancePct * outstanding
	if tolerance <= 0 || diff >= tolerance {
		return 0
	}
	return 1 - diff/tolerance
}

// dateProximity is 1 when the transaction date equals the issue or due date
// and decays linearly to 0 over the window.
func dateProximity(txDate, issueDate, dueDate time.Time, windowDays int) float64 {
	days := math.Min(daysBetween(txDate, issueDate), daysBetween(txDate, dueDate))
	if windowDays <= 0 || days >= float64(windowDays) {
		return 0
	}
	return 1 - days/float64(windowDays)
}

func daysBetween(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24)
}

// textSimilarity is the share of candidate tokens present in the
// transaction text, case-insensitive with punctuation stripped.
func textSimilarity(txText, candidateText string) float64 {
	txTokens := tokenize(txText)
	candidateTokens := tokenize(candidateText)
	if len(candidateTokens) == 0 {
		return 0
	}

	present := make(map[string]bool, len(txTokens))
	for _, tok := range txTokens {
		present[tok] = true
	}

	matched := 0
	for _, tok := range candidateTokens {
		if present[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(candidateTokens))
}

func tokenize(s string) []string {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, s)
	return strings.Fields(normalized)
}
