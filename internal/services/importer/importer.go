// Package importer turns delimiter-parsed statement rows into
// BankTransaction records, deduplicating against everything the company has
// already imported.
package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ColumnMapping names the column index for each field of interest.
// Reference is -1 when the file has no reference column.
type ColumnMapping struct {
	Date        int `json:"date"`
	Description int `json:"description"`
	Amount      int `json:"amount"`
	Reference   int `json:"reference"`
}

// Result reports what one import run did. Duplicates and skips are
// informational, not errors.
type Result struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

type Importer struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewImporter(db *gorm.DB, logger *zap.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// Import parses the rows, drops unparseable ones, and bulk-inserts the rest.
// The dedup key's unique index decides what counts as a duplicate, so two
// overlapping imports racing each other cannot both insert the same line.
// Re-importing an identical file is a no-op reporting everything duplicate.
func (i *Importer) Import(companyID uuid.UUID, rows [][]string, mapping ColumnMapping, source string) (Result, *models.StatementImportBatch, error) {
	batch := &models.StatementImportBatch{
		ID:        uuid.New(),
		CompanyID: companyID,
		Source:    source,
		TotalRows: len(rows),
		Status:    "processing",
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	if err := i.db.Create(batch).Error; err != nil {
		return Result{}, nil, err
	}

	var result Result
	var txs []models.BankTransaction
	for _, row := range rows {
		tx, ok := i.parseRow(companyID, batch.ID, row, mapping)
		if !ok {
			result.Skipped++
			continue
		}
		txs = append(txs, *tx)
	}

	if len(txs) > 0 {
		res := i.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).Create(&txs)
		if res.Error != nil {
			return Result{}, batch, res.Error
		}
		result.Imported = int(res.RowsAffected)
		result.Duplicates = len(txs) - result.Imported
	}

	now := time.Now()
	batch.Imported = result.Imported
	batch.Duplicates = result.Duplicates
	batch.Skipped = result.Skipped
	batch.Status = "completed"
	batch.CompletedAt = &now
	if err := i.db.Save(batch).Error; err != nil {
		return result, batch, err
	}

	i.logger.Info("statement import completed",
		zap.String("company_id", companyID.String()),
		zap.String("batch_id", batch.ID.String()),
		zap.Int("imported", result.Imported),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("skipped", result.Skipped),
	)
	return result, batch, nil
}

func (i *Importer) parseRow(companyID, batchID uuid.UUID, row []string, mapping ColumnMapping) (*models.BankTransaction, bool) {
	if mapping.Date < 0 || mapping.Date >= len(row) ||
		mapping.Description < 0 || mapping.Description >= len(row) ||
		mapping.Amount < 0 || mapping.Amount >= len(row) {
		return nil, false
	}

	date, err := parseDate(strings.TrimSpace(row[mapping.Date]))
	if err != nil {
		return nil, false
	}

	description := strings.TrimSpace(row[mapping.Description])
	if description == "" {
		return nil, false
	}

	signed, err := parseAmount(row[mapping.Amount])
	if err != nil {
		return nil, false
	}

	direction := models.DirectionCredit
	if signed < 0 {
		direction = models.DirectionDebit
	}
	amount := math.Abs(signed)

	reference := ""
	if mapping.Reference >= 0 && mapping.Reference < len(row) {
		reference = strings.TrimSpace(row[mapping.Reference])
	}

	return &models.BankTransaction{
		ID:              uuid.New(),
		CompanyID:       companyID,
		ImportBatchID:   batchID,
		TransactionDate: date,
		Description:     description,
		Amount:          amount,
		Direction:       direction,
		Reference:       reference,
		IsReconciled:    false,
		CategoryType:    models.CategoryNone,
		DedupKey:        DedupKey(companyID, date, description, amount, direction),
		CreatedAt:       time.Now(),
	}, true
}

// DedupKey builds the logical identity of a statement line.
func DedupKey(companyID uuid.UUID, date time.Time, description string, amount float64, direction string) string {
	return fmt.Sprintf("%s|%s|%s|%.2f|%s",
		companyID, date.Format("2006-01-02"), normalizeDescription(description), amount, direction)
}

func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount accepts signed numbers with currency symbols and either
// thousands separators or a decimal comma.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"€", "$", "£"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		// "1,500" is a thousands separator, "250,00" a decimal comma.
		if idx := strings.Index(s, ","); len(s)-idx-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	return strconv.ParseFloat(s, 64)
}
