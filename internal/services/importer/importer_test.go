package importer

import (
	"testing"

	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var mapping = ColumnMapping{Date: 0, Description: 1, Amount: 2, Reference: 3}

func TestImportParsesDirectionAndAmount(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())
	companyID := uuid.New()

	rows := [][]string{
		{"2024-03-01", "Office rent", "-250.00", ""},
		{"2024-03-02", "Customer payment", "€1,500.00", "INV-0042"},
	}

	result, batch, err := imp.Import(companyID, rows, mapping, "march.csv")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2, Duplicates: 0, Skipped: 0}, result)
	assert.Equal(t, "completed", batch.Status)

	var rent models.BankTransaction
	require.NoError(t, db.First(&rent, "description = ?", "Office rent").Error)
	assert.Equal(t, models.DirectionDebit, rent.Direction)
	assert.InDelta(t, 250.0, rent.Amount, 0.001)
	assert.False(t, rent.IsReconciled)
	assert.Equal(t, models.CategoryNone, rent.CategoryType)

	var payment models.BankTransaction
	require.NoError(t, db.First(&payment, "description = ?", "Customer payment").Error)
	assert.Equal(t, models.DirectionCredit, payment.Direction)
	assert.InDelta(t, 1500.0, payment.Amount, 0.001)
	assert.Equal(t, "INV-0042", payment.Reference)
}

func TestImportIsIdempotent(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())
	companyID := uuid.New()

	rows := [][]string{
		{"2024-03-01", "Office rent", "-250.00", ""},
		{"2024-03-02", "Customer payment", "1500.00", "INV-0042"},
	}

	first, _, err := imp.Import(companyID, rows, mapping, "march.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, _, err := imp.Import(companyID, rows, mapping, "march.csv")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 0, Duplicates: 2, Skipped: 0}, second)

	var count int64
	db.Model(&models.BankTransaction{}).Where("company_id = ?", companyID).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestImportSkipsUnparseableRows(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())

	rows := [][]string{
		{"", "Missing date", "100.00", ""},
		{"2024-03-01", "", "100.00", ""},
		{"2024-03-01", "Bad amount", "abc", ""},
		{"not-a-date", "Bad date", "100.00", ""},
		{"2024-03-01", "Good row", "100.00", ""},
	}

	result, _, err := imp.Import(uuid.New(), rows, mapping, "statement.csv")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 1, Duplicates: 0, Skipped: 4}, result)
}

func TestImportSkipsRowsOnNegativeColumnIndex(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())

	rows := [][]string{
		{"2024-03-01", "Office rent", "-250.00", ""},
	}

	result, _, err := imp.Import(uuid.New(), rows,
		ColumnMapping{Date: -1, Description: 1, Amount: 2, Reference: -1}, "statement.csv")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 0, Duplicates: 0, Skipped: 1}, result)
}

func TestImportDeduplicatesWithinOneFile(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())

	rows := [][]string{
		{"2024-03-01", "Coffee", "-4.50", ""},
		{"2024-03-01", "  coffee ", "-4.50", ""}, // same line, noisy spacing
	}

	result, _, err := imp.Import(uuid.New(), rows, mapping, "statement.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
}

func TestImportSameLineDifferentCompanies(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())

	rows := [][]string{{"2024-03-01", "Office rent", "-250.00", ""}}

	first, _, err := imp.Import(uuid.New(), rows, mapping, "a.csv")
	require.NoError(t, err)
	second, _, err := imp.Import(uuid.New(), rows, mapping, "b.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, first.Imported)
	assert.Equal(t, 1, second.Imported, "dedup key is company-scoped")
}

func TestImportAcceptsAlternateDateLayouts(t *testing.T) {
	db := testdb.Open(t)
	imp := NewImporter(db, zap.NewNop())

	rows := [][]string{
		{"15-03-2024", "Transfer A", "10.00", ""},
		{"16/03/2024", "Transfer B", "20.00", ""},
	}

	result, _, err := imp.Import(uuid.New(), rows, mapping, "statement.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"-250.00", -250},
		{"€1,500.00", 1500},
		{"$99", 99},
		{"250,00", 250},
		{"1,500", 1500},
		{"£ 12.34", 12.34},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}
}
