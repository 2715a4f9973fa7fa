package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ucmarket/backend/docs"
	"github.com/ucmarket/backend/internal/audit"
	"github.com/ucmarket/backend/internal/config"
	"github.com/ucmarket/backend/internal/database"
	"github.com/ucmarket/backend/internal/handlers"
	"github.com/ucmarket/backend/internal/notify"
	"github.com/ucmarket/backend/internal/paystack"
	"github.com/ucmarket/backend/internal/services"
	"github.com/ucmarket/backend/internal/store"
	"github.com/ucmarket/backend/internal/vault"
)

// @title UC Market Backend API
// @version 1.0
// @description Wallet, deposit and account marketplace API
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "UC Market Backend API"
	docs.SwaggerInfo.Description = "Wallet, deposit and account marketplace API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase(cfg.Database)
	defer db.Close()

	if cfg.Database.Driver == "sqlite" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate sqlite database: %v", err)
		}
		cancel()
	}

	redisClient := database.InitRedis(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	credentialVault, err := vault.New(vault.Config{
		MasterKey: cfg.Vault.MasterKey,
		Salt:      cfg.Vault.Salt,
	})
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}

	auditLogger := audit.NewLogger()
	notifier := notify.New(redisClient, cfg.Telegram)

	inventory := store.NewInventoryStore(db)
	ledger := store.NewLedgerStore(db)
	txlog := store.NewTransactionLog(db)
	messages := store.NewMessageStore(db)
	stats := store.NewStatsStore(db)

	purchaseService := services.NewPurchaseService(inventory, ledger, txlog, messages, credentialVault, notifier, auditLogger, cfg.Purchase, cfg.SupportContacts)
	paymentService := services.NewPaymentService(db, ledger, txlog, messages, paystack.NewClient(cfg.Paystack), notifier, auditLogger, cfg.Paystack.SecretKey)
	walletService := services.NewWalletService(ledger, txlog, messages)
	adminService := services.NewAdminService(inventory, txlog, credentialVault, stats, purchaseService, paymentService, auditLogger)

	r := newRouter(routes{
		jwtSecret:  cfg.JWT.SecretKey,
		redis:      redisClient,
		rateLimit:  cfg.RateLimit,
		swaggerURL: "http://localhost:" + cfg.Port + "/swagger/doc.json",
		purchases:  handlers.NewPurchaseHandler(purchaseService),
		payments:   handlers.NewPaymentHandler(paymentService),
		wallet:     handlers.NewWalletHandler(walletService),
		admin:      handlers.NewAdminHandler(adminService),
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
