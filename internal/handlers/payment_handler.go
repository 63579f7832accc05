package handler

import (
	"net/http"
	"time"

	"accounting-reconciliation-backend/internal/services/allocation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	allocator *allocation.Engine
	logger    *zap.Logger
}

func NewPaymentHandler(allocator *allocation.Engine, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{allocator: allocator, logger: logger}
}

type paymentPayload struct {
	PartyType   string  `json:"party_type" binding:"required"`
	PartyID     string  `json:"party_id" binding:"required"`
	PaymentDate string  `json:"payment_date" binding:"required"`
	Amount      float64 `json:"amount" binding:"required"`
	Reference   string  `json:"reference"`
	Currency    string  `json:"currency"`
	Allocations []struct {
		InvoiceID         *string `json:"invoice_id"`
		SupplierInvoiceID *string `json:"supplier_invoice_id"`
		Amount            float64 `json:"amount"`
	} `json:"allocations"`
}

func (p *paymentPayload) toInput() (allocation.PaymentInput, error) {
	partyID, err := uuid.Parse(p.PartyID)
	if err != nil {
		return allocation.PaymentInput{}, err
	}
	date, err := time.Parse("2006-01-02", p.PaymentDate)
	if err != nil {
		return allocation.PaymentInput{}, err
	}

	in := allocation.PaymentInput{
		PartyType:   p.PartyType,
		PartyID:     partyID,
		PaymentDate: date,
		Amount:      p.Amount,
		Reference:   p.Reference,
		Currency:    p.Currency,
	}
	for _, a := range p.Allocations {
		alloc := allocation.AllocationInput{Amount: a.Amount}
		if a.InvoiceID != nil {
			id, err := uuid.Parse(*a.InvoiceID)
			if err != nil {
				return allocation.PaymentInput{}, err
			}
			alloc.InvoiceID = &id
		}
		if a.SupplierInvoiceID != nil {
			id, err := uuid.Parse(*a.SupplierInvoiceID)
			if err != nil {
				return allocation.PaymentInput{}, err
			}
			alloc.SupplierInvoiceID = &id
		}
		in.Allocations = append(in.Allocations, alloc)
	}
	return in, nil
}

// Create records a payment with an explicit allocation split.
func (h *PaymentHandler) Create(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	var payload paymentPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	in, err := payload.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	payment, err := h.allocator.CreatePayment(companyID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// AutoAllocate spreads a payment amount across the party's open documents
// oldest-due-first. Any remainder the documents cannot absorb is returned
// to the caller.
func (h *PaymentHandler) AutoAllocate(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company ID"})
		return
	}

	var payload paymentPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	in, err := payload.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	payment, remainder, err := h.allocator.AutoAllocatePayment(companyID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment, "remainder": remainder})
}
