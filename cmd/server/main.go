package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/contractdesk/backend/internal/config"
	"github.com/contractdesk/backend/internal/handler"
	appMiddleware "github.com/contractdesk/backend/internal/middleware"
	"github.com/contractdesk/backend/internal/repository"
	"github.com/contractdesk/backend/internal/service"
	"github.com/contractdesk/backend/internal/storage"
	"github.com/contractdesk/backend/pkg/billing"
	"github.com/contractdesk/backend/pkg/notify"
	"github.com/contractdesk/backend/pkg/signing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func main() {
	// Load .env file if present (for local development)
	loadDotEnv()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Database error: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatalf("❌ Migration error: %v", err)
	}
	log.Println("✅ Database connected & migrated")

	// Initialize object store
	files, err := storage.NewMinioStore(cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Object store error: %v", err)
	}
	if err := files.EnsureBucket(ctx); err != nil {
		log.Fatalf("❌ Bucket error: %v", err)
	}
	log.Println("✅ Object store connected")

	// Provider gateways
	billingGW := billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIKey)
	signingGW, err := signing.NewClient(signing.Config{
		BaseURL:            cfg.Signing.BaseURL,
		OAuthBaseURL:       cfg.Signing.OAuthBaseURL,
		IntegrationKey:     cfg.Signing.IntegrationKey,
		ImpersonatedUserID: cfg.Signing.ImpersonatedUserID,
		AccountID:          cfg.Signing.AccountID,
		PrivateKeyPEM:      cfg.Signing.PrivateKeyPEM,
		ReturnURL:          cfg.Signing.ReturnURL,
	})
	if err != nil {
		log.Fatalf("❌ Signing gateway error: %v", err)
	}

	// Notification dispatcher: webhook relay if configured, log otherwise
	var dispatcher notify.Dispatcher = notify.LogDispatcher{}
	if cfg.NotifyURL != "" {
		dispatcher = notify.NewWebhookDispatcher(cfg.NotifyURL)
	}

	// Repositories and services
	userRepo := repository.NewUserRepository(db)
	contractRepo := repository.NewContractRepository(db)

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, userRepo, dispatcher)
	contractSvc := service.NewContractService(contractRepo, userRepo, files, billingGW, signingGW, dispatcher, cfg.Signing.ReturnURL)
	billingSvc := service.NewBillingService(contractRepo, userRepo, billingGW)

	// Seed admin user on first startup
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("❌ Admin seed error: %v", err)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(authSvc)
	contractHandler := handler.NewContractHandler(contractSvc)
	paymentHandler := handler.NewPaymentHandler(billingSvc)
	callbackHandler := handler.NewCallbackHandler(contractSvc, cfg.CallbackSecret)
	healthHandler := handler.NewHealthHandler(db, files)
	statsHandler := handler.NewStatsHandler(db)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Health check and public routes (no auth)
	r.Get("/health", healthHandler.Check)
	r.Post("/api/callbacks/signing", callbackHandler.HandleSigning)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/send-reset-password-email", authHandler.SendResetEmail)
		r.Post("/api/auth/verify-token", authHandler.VerifyResetToken)
		r.Post("/api/auth/reset-password", authHandler.ResetPassword)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		// Auth
		r.Get("/api/auth/me", authHandler.Me)

		// Contracts. Specific routes BEFORE generic {id} route.
		r.Get("/api/contracts", contractHandler.List)
		r.Post("/api/contracts", contractHandler.Create)
		r.Get("/api/contracts/user/{pattern}", contractHandler.ListForUser)
		r.Post("/api/contracts/{id}/signing-url", contractHandler.CreateSigningURL)
		r.Get("/api/contracts/{id}", contractHandler.Get)

		// Payment / billing
		r.Post("/api/payments/complete", paymentHandler.CompletePayment)
		r.Get("/api/billing/customers/{id}", paymentHandler.GetCustomer)
		r.Get("/api/billing/subscriptions", paymentHandler.ListSubscriptions)
		r.Get("/api/billing/transactions", paymentHandler.ListTransactions)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/users", userHandler.List)
			r.Post("/api/users", userHandler.Create)
			r.Get("/api/users/{id}", userHandler.Get)
			r.Put("/api/users/{id}", userHandler.Update)
			r.Patch("/api/users/{id}/status", userHandler.UpdateStatus)
			r.Delete("/api/users/{id}", userHandler.Delete)
			r.Patch("/api/contracts/{id}/status", contractHandler.UpdateStatus)
			r.Get("/api/admin/stats", statsHandler.Overview)
		})
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("🛑 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("🚀 ContractDesk Backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// loadDotEnv reads a .env file if it exists (simple implementation).
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
