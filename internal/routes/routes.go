package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"accounting-reconciliation-backend/internal/config"
	handler "accounting-reconciliation-backend/internal/handlers"
	"accounting-reconciliation-backend/internal/repository"
	"accounting-reconciliation-backend/internal/services/allocation"
	"accounting-reconciliation-backend/internal/services/importer"
	"accounting-reconciliation-backend/internal/services/matching"
	"accounting-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, policy config.MatchPolicy, logger *zap.Logger) {
	transactionRepo := repository.NewBankTransactionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	imp := importer.NewImporter(db, logger)
	allocator := allocation.NewEngine(db, ledgerRepo, logger)
	recon := reconciliation.NewService(db, transactionRepo, ledgerRepo, historyRepo, allocator, logger)
	engine := matching.NewEngine(ledgerRepo, policy, logger)
	autoMatcher := matching.NewAutoMatcher(transactionRepo, engine, recon, logger)

	importHandler := handler.NewImportHandler(imp, logger)
	txHandler := handler.NewTransactionHandler(transactionRepo, historyRepo, engine, autoMatcher, recon, logger)
	paymentHandler := handler.NewPaymentHandler(allocator, logger)
	ledgerHandler := handler.NewLedgerHandler(ledgerRepo)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	companies := api.Group("/companies/:companyId")
	companies.POST("/imports", importHandler.Import)
	companies.POST("/imports/upload", importHandler.Upload)
	companies.GET("/transactions", txHandler.List)
	companies.POST("/auto-match", txHandler.AutoMatch)
	companies.GET("/accounts", ledgerHandler.Accounts)
	companies.GET("/history", txHandler.History)
	companies.POST("/payments", paymentHandler.Create)
	companies.POST("/payments/auto-allocate", paymentHandler.AutoAllocate)

	tx := api.Group("/transactions")
	tx.GET("/:id/suggestions", txHandler.Suggestions)
	tx.POST("/:id/match", txHandler.Match)
	tx.POST("/:id/reconcile", txHandler.Reconcile)
	tx.POST("/:id/unmatch", txHandler.Unmatch)
	tx.POST("/:id/categorize", txHandler.Categorize)
}
