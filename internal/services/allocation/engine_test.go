package allocation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"accounting-reconciliation-backend/internal/apperrors"
	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/repository"
	"accounting-reconciliation-backend/internal/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t)
	return NewEngine(db, repository.NewLedgerRepository(db), zap.NewNop()), db
}

func seedInvoice(t *testing.T, db *gorm.DB, companyID uuid.UUID, total, paid float64, due time.Time) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		ID:            uuid.New(),
		CompanyID:     companyID,
		CustomerID:    uuid.New(),
		InvoiceNumber: "INV-" + uuid.NewString()[:8],
		CustomerName:  "Acme",
		Total:         total,
		AmountPaid:    paid,
		Status:        models.ComputeStatus(models.StatusSent, total, paid, due, time.Now()),
		IssueDate:     due.AddDate(0, -1, 0),
		DueDate:       due,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Invoice {
	t.Helper()
	var inv models.Invoice
	require.NoError(t, db.First(&inv, "id = ?", id).Error)
	return &inv
}

func paymentFor(invoiceID uuid.UUID, amount float64) PaymentInput {
	return PaymentInput{
		PartyType:   models.PartyClient,
		PartyID:     uuid.New(),
		PaymentDate: time.Now(),
		Amount:      amount,
		Reference:   "PAY-1",
		Allocations: []AllocationInput{{InvoiceID: &invoiceID, Amount: amount}},
	}
}

func TestCreatePaymentPartialThenFull(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	future := time.Now().AddDate(0, 1, 0)
	inv := seedInvoice(t, db, companyID, 1000, 0, future)

	_, err := engine.CreatePayment(companyID, paymentFor(inv.ID, 400))
	require.NoError(t, err)

	got := reload(t, db, inv.ID)
	assert.InDelta(t, 400, got.AmountPaid, 0.001)
	assert.Equal(t, models.StatusPartPaid, got.Status)

	_, err = engine.CreatePayment(companyID, paymentFor(inv.ID, 600))
	require.NoError(t, err)

	got = reload(t, db, inv.ID)
	assert.InDelta(t, 1000, got.AmountPaid, 0.001)
	assert.Equal(t, models.StatusPaid, got.Status)
}

func TestCreatePaymentSplitsAcrossInvoices(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	future := time.Now().AddDate(0, 1, 0)
	a := seedInvoice(t, db, companyID, 1000, 0, future)
	b := seedInvoice(t, db, companyID, 800, 0, future)

	payment, err := engine.CreatePayment(companyID, PaymentInput{
		PartyType:   models.PartyClient,
		PartyID:     uuid.New(),
		PaymentDate: time.Now(),
		Amount:      1500,
		Allocations: []AllocationInput{
			{InvoiceID: &a.ID, Amount: 1000},
			{InvoiceID: &b.ID, Amount: 500},
		},
	})
	require.NoError(t, err)
	require.Len(t, payment.Allocations, 2)

	var sum float64
	for _, alloc := range payment.Allocations {
		sum += alloc.Amount
	}
	assert.InDelta(t, payment.Amount, sum, Epsilon)

	assert.Equal(t, models.StatusPaid, reload(t, db, a.ID).Status)
	assert.Equal(t, models.StatusPartPaid, reload(t, db, b.ID).Status)
}

func TestCreatePaymentRejectsSumMismatch(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	inv := seedInvoice(t, db, companyID, 1000, 0, time.Now().AddDate(0, 1, 0))

	in := paymentFor(inv.ID, 400)
	in.Allocations[0].Amount = 300
	_, err := engine.CreatePayment(companyID, in)
	require.ErrorIs(t, err, apperrors.ErrAllocationMismatch)

	// All-or-nothing: nothing was written.
	assert.InDelta(t, 0, reload(t, db, inv.ID).AmountPaid, 0.001)
	var payments int64
	db.Model(&models.Payment{}).Count(&payments)
	assert.Zero(t, payments)
}

func TestCreatePaymentRejectsOverAllocation(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	inv := seedInvoice(t, db, companyID, 1000, 700, time.Now().AddDate(0, 1, 0))

	_, err := engine.CreatePayment(companyID, paymentFor(inv.ID, 400))
	require.ErrorIs(t, err, apperrors.ErrAllocationMismatch)
	assert.InDelta(t, 700, reload(t, db, inv.ID).AmountPaid, 0.001)
}

func TestCreatePaymentRejectsForeignCompanyInvoice(t *testing.T) {
	engine, db := newEngine(t)
	inv := seedInvoice(t, db, uuid.New(), 1000, 0, time.Now().AddDate(0, 1, 0))

	_, err := engine.CreatePayment(uuid.New(), paymentFor(inv.ID, 400))
	require.ErrorIs(t, err, apperrors.ErrInvalidTarget)
}

func TestCreatePaymentRejectsNonPositiveAmount(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	inv := seedInvoice(t, db, companyID, 1000, 0, time.Now().AddDate(0, 1, 0))

	_, err := engine.CreatePayment(companyID, paymentFor(inv.ID, 0))
	require.ErrorIs(t, err, apperrors.ErrAllocationMismatch)
}

func TestPaidAmountNeverExceedsTotal(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	inv := seedInvoice(t, db, companyID, 1000, 0, time.Now().AddDate(0, 1, 0))

	amounts := []float64{400, 300, 300, 100}
	for _, amount := range amounts {
		engine.CreatePayment(companyID, paymentFor(inv.ID, amount))
	}

	got := reload(t, db, inv.ID)
	assert.GreaterOrEqual(t, got.AmountPaid, 0.0)
	assert.LessOrEqual(t, got.AmountPaid, got.Total+Epsilon)
}

func TestConcurrentAllocationsCannotOverpay(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	// 400 outstanding; two concurrent payments of 300 cannot both land.
	inv := seedInvoice(t, db, companyID, 1000, 600, time.Now().AddDate(0, 1, 0))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.CreatePayment(companyID, paymentFor(inv.ID, 300))
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			retryable := errors.Is(err, apperrors.ErrConcurrentModification) ||
				errors.Is(err, apperrors.ErrAllocationMismatch)
			assert.True(t, retryable, "unexpected error kind: %v", err)
		}
	}
	assert.Equal(t, 1, failures, "exactly one of the two racing payments must fail")

	got := reload(t, db, inv.ID)
	assert.InDelta(t, 900, got.AmountPaid, 0.001)
	assert.LessOrEqual(t, got.AmountPaid, got.Total)
}

func TestAutoAllocateOldestFirst(t *testing.T) {
	oldID, newID := uuid.New(), uuid.New()
	targets := []AutoAllocateTarget{
		{InvoiceID: &newID, Outstanding: 800, DueDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{InvoiceID: &oldID, Outstanding: 1000, DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	result := AutoAllocate(1500, targets)
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, &oldID, result.Allocations[0].InvoiceID)
	assert.InDelta(t, 1000, result.Allocations[0].Amount, 0.001)
	assert.Equal(t, &newID, result.Allocations[1].InvoiceID)
	assert.InDelta(t, 500, result.Allocations[1].Amount, 0.001)
	assert.Zero(t, result.Remainder)
}

func TestAutoAllocateSurfacesRemainder(t *testing.T) {
	id := uuid.New()
	targets := []AutoAllocateTarget{
		{InvoiceID: &id, Outstanding: 200, DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	result := AutoAllocate(500, targets)
	require.Len(t, result.Allocations, 1)
	assert.InDelta(t, 200, result.Allocations[0].Amount, 0.001)
	assert.InDelta(t, 300, result.Remainder, 0.001)
}

func TestAutoAllocatePaymentCreatesCappedPayment(t *testing.T) {
	engine, db := newEngine(t)
	companyID := uuid.New()
	customerID := uuid.New()

	old := seedInvoice(t, db, companyID, 1000, 0, time.Now().AddDate(0, 0, 10))
	old.CustomerID = customerID
	require.NoError(t, db.Save(old).Error)
	newer := seedInvoice(t, db, companyID, 800, 0, time.Now().AddDate(0, 0, 20))
	newer.CustomerID = customerID
	require.NoError(t, db.Save(newer).Error)

	payment, remainder, err := engine.AutoAllocatePayment(companyID, PaymentInput{
		PartyType:   models.PartyClient,
		PartyID:     customerID,
		PaymentDate: time.Now(),
		Amount:      2000,
	})
	require.NoError(t, err)
	require.NotNil(t, payment)

	assert.InDelta(t, 1800, payment.Amount, 0.001)
	assert.InDelta(t, 200, remainder, 0.001)
	assert.Equal(t, models.StatusPaid, reload(t, db, old.ID).Status)
	assert.Equal(t, models.StatusPaid, reload(t, db, newer.ID).Status)
}
