// Package testdb opens throwaway sqlite databases with the full schema for
// package tests.
package testdb

import (
	"fmt"
	"testing"

	"accounting-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database. A single connection is used
// so concurrent callers serialize the way Postgres row locks would.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Invoice{},
		&models.SupplierInvoice{},
		&models.Account{},
		&models.BankTransaction{},
		&models.Payment{},
		&models.PaymentAllocation{},
		&models.ReconciliationHistoryEntry{},
		&models.StatementImportBatch{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
