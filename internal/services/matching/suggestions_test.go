package matching

import (
	"testing"
	"time"

	"accounting-reconciliation-backend/internal/config"
	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGateway serves canned open documents; the suggestion engine only
// reads through the interface.
type fakeGateway struct {
	receivables []models.Invoice
	payables    []models.SupplierInvoice
}

func (f *fakeGateway) ListOpenReceivables(uuid.UUID) ([]models.Invoice, error) {
	return f.receivables, nil
}

func (f *fakeGateway) ListOpenPayables(uuid.UUID) ([]models.SupplierInvoice, error) {
	return f.payables, nil
}

func openInvoice(number, customer string, total float64, due time.Time) models.Invoice {
	return models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerName:  customer,
		Total:         total,
		Status:        models.StatusSent,
		IssueDate:     due.AddDate(0, -1, 0),
		DueDate:       due,
	}
}

func TestSuggestRanksAndFloors(t *testing.T) {
	policy := config.DefaultMatchPolicy()
	exact := openInvoice("INV-0042", "Acme", 1000, date(2024, 3, 10))
	close := openInvoice("INV-0051", "Acme", 1020, date(2024, 3, 10))
	unrelated := openInvoice("INV-9000", "Globex", 75000, date(2023, 1, 1))

	engine := NewEngine(&fakeGateway{receivables: []models.Invoice{unrelated, close, exact}}, policy, zap.NewNop())
	tx := creditTx(1000, date(2024, 3, 15), "INV-0042 payment Acme")
	tx.Direction = models.DirectionCredit

	suggestions, err := engine.Suggest(tx)
	require.NoError(t, err)
	require.Len(t, suggestions, 2, "candidate below the display floor is dropped")

	assert.Equal(t, exact.ID, suggestions[0].ID)
	assert.Equal(t, close.ID, suggestions[1].ID)
	assert.Greater(t, suggestions[0].Score, suggestions[1].Score)
	assert.Equal(t, KindInvoice, suggestions[0].Type)
	assert.Equal(t, "Acme", suggestions[0].Counterparty)
}

func TestSuggestTieBreaksOnDateThenAmount(t *testing.T) {
	policy := config.DefaultMatchPolicy()
	// Identical text and amounts, both due dates beyond the scoring window
	// so the scores tie; the closer date must still rank first.
	far := openInvoice("INV-0001", "Acme", 1000, date(2023, 6, 1))
	near := openInvoice("INV-0001", "Acme", 1000, date(2024, 2, 1))

	engine := NewEngine(&fakeGateway{receivables: []models.Invoice{far, near}}, policy, zap.NewNop())
	tx := creditTx(1000, date(2024, 3, 15), "Acme INV-0001")

	suggestions, err := engine.Suggest(tx)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, near.ID, suggestions[0].ID)
	assert.Equal(t, far.ID, suggestions[1].ID)
}

func TestSuggestCapsAtTopN(t *testing.T) {
	policy := config.DefaultMatchPolicy()
	policy.TopN = 3
	policy.DisplayFloor = 0

	var invoices []models.Invoice
	for i := 0; i < 10; i++ {
		invoices = append(invoices, openInvoice("INV-0042", "Acme", 1000, date(2024, 3, 10)))
	}

	engine := NewEngine(&fakeGateway{receivables: invoices}, policy, zap.NewNop())
	suggestions, err := engine.Suggest(creditTx(1000, date(2024, 3, 15), "Acme INV-0042"))
	require.NoError(t, err)
	assert.Len(t, suggestions, 3)
}

func TestSuggestDebitUsesPayables(t *testing.T) {
	policy := config.DefaultMatchPolicy()
	purchase := models.SupplierInvoice{
		ID:            uuid.New(),
		InvoiceNumber: "PO-7788",
		SupplierName:  "Staples",
		Total:         250,
		Status:        models.StatusSent,
		IssueDate:     date(2024, 3, 1),
		DueDate:       date(2024, 3, 15),
	}

	engine := NewEngine(&fakeGateway{payables: []models.SupplierInvoice{purchase}}, policy, zap.NewNop())
	tx := &models.BankTransaction{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		Amount:          250,
		Direction:       models.DirectionDebit,
		TransactionDate: date(2024, 3, 15),
		Description:     "Staples PO-7788",
	}

	suggestions, err := engine.Suggest(tx)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, KindSupplierInvoice, suggestions[0].Type)
	assert.Equal(t, purchase.ID, suggestions[0].ID)
}
