package main

import (
	"fmt"
	"time"

	"accounting-reconciliation-backend/internal/config"
	"accounting-reconciliation-backend/internal/models"
	"accounting-reconciliation-backend/internal/observability"
	"accounting-reconciliation-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env for local development.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	policy, err := config.LoadMatchPolicy(cfg.MatchPolicyFile)
	if err != nil {
		logger.Fatal("failed to load match policy", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("confidence_threshold", policy.ConfidenceThreshold),
		zap.Int("ambiguity_margin", policy.AmbiguityMargin),
	)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

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
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Actor"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, policy, logger)

	if err := r.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
