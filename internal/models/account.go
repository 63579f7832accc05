package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is an expense/category account transactions can be matched or
// categorized against.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"index"`
	Code      string    `gorm:"index"`
	Name      string
	CreatedAt time.Time
}
