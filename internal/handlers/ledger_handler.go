package handler

import (
	"net/http"

	"accounting-reconciliation-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LedgerHandler struct {
	ledger *repository.LedgerRepository
}

func NewLedgerHandler(ledger *repository.LedgerRepository) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Accounts lists the company's expense/category accounts, for the
// categorization flow.
func (h *LedgerHandler) Accounts(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	accounts, err := h.ledger.ListAccounts(companyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
