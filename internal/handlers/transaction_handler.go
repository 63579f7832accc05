package handler

import (
	"net/http"
	"time"

	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/repository"
	"accounting-reconciliation-backend/internal/services/matching"
	"accounting-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	transactions *repository.BankTransactionRepository
	history      *repository.HistoryRepository
	engine       *matching.Engine
	autoMatcher  *matching.AutoMatcher
	recon        *reconciliation.Service
	logger       *zap.Logger
}

func NewTransactionHandler(
	transactions *repository.BankTransactionRepository,
	history *repository.HistoryRepository,
	engine *matching.Engine,
	autoMatcher *matching.AutoMatcher,
	recon *reconciliation.Service,
	logger *zap.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		history:      history,
		engine:       engine,
		autoMatcher:  autoMatcher,
		recon:        recon,
		logger:       logger,
	}
}

// List returns a company's transactions with cursor pagination.
func (h *TransactionHandler) List(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	items, nextCursor, hasMore, err := h.transactions.List(
		companyID, c.Query("status"), c.Query("cursor"), 50, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

// Suggestions ranks open documents against one transaction.
func (h *TransactionHandler) Suggestions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	tx, err := h.transactions.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	suggestions, err := h.engine.Suggest(tx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// Match applies an operator-chosen match.
func (h *TransactionHandler) Match(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		TargetType    string `json:"target_type" binding:"required"`
		TargetID      string `json:"target_id" binding:"required"`
		Notes         string `json:"notes"`
		AutoReconcile bool   `json:"auto_reconcile"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	targetID, err := uuid.Parse(payload.TargetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target ID"})
		return
	}

	tx, err := h.recon.Match(id, reconciliation.MatchInput{
		TargetType:    payload.TargetType,
		TargetID:      targetID,
		Notes:         payload.Notes,
		Method:        models.MethodManual,
		Actor:         actorFrom(c),
		AutoReconcile: payload.AutoReconcile,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction matched", "transaction": tx})
}

// AutoMatch runs the batch matcher for a company.
func (h *TransactionHandler) AutoMatch(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	var payload struct {
		Direction     string `json:"direction"`
		From          string `json:"from"`
		To            string `json:"to"`
		ImportBatchID string `json:"import_batch_id"`
	}
	// The filter body is optional.
	_ = c.BindJSON(&payload)

	filter := matching.AutoMatchFilter{Direction: payload.Direction}
	if payload.From != "" {
		if t, err := time.Parse("2006-01-02", payload.From); err == nil {
			filter.From = t
		}
	}
	if payload.To != "" {
		if t, err := time.Parse("2006-01-02", payload.To); err == nil {
			filter.To = t
		}
	}
	if payload.ImportBatchID != "" {
		if batchID, err := uuid.Parse(payload.ImportBatchID); err == nil {
			filter.ImportBatchID = batchID
		}
	}

	result, err := h.autoMatcher.Run(companyID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reconcile toggles the reconciled flag.
func (h *TransactionHandler) Reconcile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		Reconciled *bool `json:"reconciled" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tx, err := h.recon.Reconcile(id, *payload.Reconciled, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// Unmatch returns a transaction to the unmatched state.
func (h *TransactionHandler) Unmatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	_ = c.BindJSON(&payload)

	tx, err := h.recon.Unmatch(id, actorFrom(c), payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction unmatched", "transaction": tx})
}

// Categorize labels a transaction without a full match.
func (h *TransactionHandler) Categorize(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		CategoryType string  `json:"category_type" binding:"required"`
		CategoryID   *string `json:"category_id"`
		InvoiceID    *string `json:"invoice_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	in := reconciliation.CategorizeInput{
		CategoryType: payload.CategoryType,
		Actor:        actorFrom(c),
	}
	if payload.CategoryID != nil {
		categoryID, err := uuid.Parse(*payload.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category ID"})
			return
		}
		in.CategoryID = &categoryID
	}
	if payload.InvoiceID != nil {
		invoiceID, err := uuid.Parse(*payload.InvoiceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
			return
		}
		in.InvoiceID = &invoiceID
	}

	tx, err := h.recon.Categorize(id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// History lists the company's reconciliation audit trail.
func (h *TransactionHandler) History(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	filter := repository.HistoryFilter{Action: c.Query("action")}
	if txID := c.Query("transaction_id"); txID != "" {
		id, err := uuid.Parse(txID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
			return
		}
		filter.BankTransactionID = id
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = t
		}
	}

	entries, err := h.history.List(companyID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
