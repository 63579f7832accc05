package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"

	"accounting-reconciliation-backend/internal/services/importer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ImportHandler struct {
	importer *importer.Importer
	logger   *zap.Logger
}

func NewImportHandler(imp *importer.Importer, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{importer: imp, logger: logger}
}

// Import ingests pre-parsed statement rows with a caller-supplied column
// mapping.
func (h *ImportHandler) Import(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	var payload struct {
		Rows    [][]string `json:"rows"`
		Mapping struct {
			Date        int  `json:"date"`
			Description int  `json:"description"`
			Amount      int  `json:"amount"`
			Reference   *int `json:"reference"`
		} `json:"mapping"`
		Source string `json:"source"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	mapping := importer.ColumnMapping{
		Date:        payload.Mapping.Date,
		Description: payload.Mapping.Description,
		Amount:      payload.Mapping.Amount,
		Reference:   -1,
	}
	if payload.Mapping.Reference != nil {
		mapping.Reference = *payload.Mapping.Reference
	}

	result, batch, err := h.importer.Import(companyID, payload.Rows, mapping, payload.Source)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":   batch.ID.String(),
		"imported":   result.Imported,
		"duplicates": result.Duplicates,
		"skipped":    result.Skipped,
	})
}

// Upload ingests a delimited statement file. Column indexes come from form
// fields; the delimiter is sniffed from the first kilobyte.
func (h *ImportHandler) Upload(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	sample := make([]byte, 1024)
	n, _ := file.Read(sample)
	file.Seek(0, 0)
	if strings.Contains(string(sample[:n]), "\t") {
		reader.Comma = '\t'
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed lines are counted as skipped downstream
		}
		rows = append(rows, record)
	}

	if formBool(c, "has_header", true) && len(rows) > 0 {
		rows = rows[1:]
	}

	mapping := importer.ColumnMapping{
		Date:        formInt(c, "date_col", 0),
		Description: formInt(c, "description_col", 1),
		Amount:      formInt(c, "amount_col", 2),
		Reference:   formInt(c, "reference_col", -1),
	}

	result, batch, err := h.importer.Import(companyID, rows, mapping, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":   batch.ID.String(),
		"file":       header.Filename,
		"imported":   result.Imported,
		"duplicates": result.Duplicates,
		"skipped":    result.Skipped,
	})
}

func formInt(c *gin.Context, key string, fallback int) int {
	if v := c.PostForm(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func formBool(c *gin.Context, key string, fallback bool) bool {
	if v := c.PostForm(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
