package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/ucmarket/backend/internal/config"
	"github.com/ucmarket/backend/internal/handlers"
	mW "github.com/ucmarket/backend/internal/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type routes struct {
	jwtSecret  string
	redis      *redis.Client
	rateLimit  config.RateLimitConfig
	swaggerURL string

	purchases *handlers.PurchaseHandler
	payments  *handlers.PaymentHandler
	wallet    *handlers.WalletHandler
	admin     *handlers.AdminHandler
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(rt.swaggerURL),
	))

	limit := mW.RateLimit(rt.redis, rt.rateLimit.Requests, rt.rateLimit.Window)

	r.Route("/api/v1", func(r chi.Router) {
		// Authenticated by signature, not by token
		r.Post("/payments/webhook", rt.payments.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(rt.jwtSecret))

			r.With(limit).Post("/purchases", rt.purchases.Purchase)
			r.With(limit).Post("/payments/initialize", rt.payments.Initialize)

			r.Get("/wallet", rt.wallet.GetWallet)
			r.Get("/transactions", rt.wallet.ListTransactions)
			r.Get("/messages", rt.wallet.ListMessages)
			r.Post("/messages/read-all", rt.wallet.MarkAllRead)
			r.Post("/messages/{id}/read", rt.wallet.MarkRead)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Post("/listings", rt.admin.CreateListing)
				r.Put("/listings/{id}/status", rt.admin.UpdateListingStatus)
				r.Put("/listings/{id}/credentials", rt.admin.ReplaceCredentials)
				r.Delete("/listings/{id}", rt.admin.DeleteListing)

				r.Get("/stats", rt.admin.Stats)
				r.Get("/transactions", rt.admin.ListTransactions)
				r.Put("/transactions/{id}/status", rt.admin.ResolveTransaction)

				r.Post("/deposits/{reference}/verify", rt.admin.VerifyDeposit)
				r.Post("/purchases/{id}/redeliver", rt.admin.RedeliverCredentials)
			})
		})
	})

	return r
}
