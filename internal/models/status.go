package models

import "time"

// PaidEpsilon is the cent-level tolerance used when comparing a document's
// paid amount against its total.
const PaidEpsilon = 0.01

// Lifecycle statuses shared by receivables and payables.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusPartPaid  = "part_paid"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

// OpenStatuses are the statuses in which a document can still receive
// payment.
var OpenStatuses = []string{StatusSent, StatusPartPaid, StatusOverdue}

// ComputeStatus derives a document's status from its totals and due date.
// Draft and cancelled documents are closed to payment and keep their status.
func ComputeStatus(current string, total, amountPaid float64, dueDate, today time.Time) string {
	if current == StatusDraft || current == StatusCancelled {
		return current
	}
	if amountPaid >= total-PaidEpsilon {
		return StatusPaid
	}
	if today.After(dueDate) {
		return StatusOverdue
	}
	if amountPaid > 0 {
		return StatusPartPaid
	}
	return StatusSent
}
