package models

import (
	"time"

	"github.com/google/uuid"
)

// StatementImportBatch is the audit record of one statement import run.
type StatementImportBatch struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"index"`
	Source      string
	TotalRows   int
	Imported    int
	Duplicates  int
	Skipped     int
	Status      string
	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}
