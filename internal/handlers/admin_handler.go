package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ucmarket/backend/internal/middleware"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/services"
)

type Admin interface {
	CreateListing(ctx context.Context, admin models.Identity, input services.ListingInput) (*models.Listing, error)
	UpdateListingStatus(ctx context.Context, admin models.Identity, id string, status models.ListingStatus) error
	ReplaceCredentials(ctx context.Context, admin models.Identity, id string, fields []models.CredentialField) error
	DeleteListing(ctx context.Context, admin models.Identity, id string) error
	ListTransactions(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error)
	ResolveTransaction(ctx context.Context, admin models.Identity, id string, status models.TransactionStatus, note string) error
	VerifyDeposit(ctx context.Context, admin models.Identity, reference string) (*services.DepositResult, error)
	RedeliverCredentials(ctx context.Context, admin models.Identity, transactionID string) (string, error)
	Stats(ctx context.Context) (*models.AdminStats, error)
}

// AdminHandler serves routes mounted behind middleware.RequireAdmin.
type AdminHandler struct {
	service   Admin
	validator *ValidationHelper
}

func NewAdminHandler(service Admin) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: NewValidationHelper(),
	}
}

type ListingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active pending sold"`
}

type CredentialsRequest struct {
	Credentials []models.CredentialField `json:"credentials" validate:"required,min=1,dive"`
}

type ResolveRequest struct {
	Status string `json:"status" validate:"required,oneof=completed failed"`
	Note   string `json:"note" validate:"max=500"`
}

// CreateListing publishes a new account listing
// @Summary Create listing
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ListingInput true "Listing"
// @Success 201 {object} models.Listing
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/listings [post]
func (h *AdminHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req services.ListingInput
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	listing, err := h.service.CreateListing(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, err, "Listing not found")
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// UpdateListingStatus sets a listing's status
// @Summary Update listing status
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param request body ListingStatusRequest true "New status"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} ErrorResponse
// @Router /admin/listings/{id}/status [put]
func (h *AdminHandler) UpdateListingStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req ListingStatusRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	err := h.service.UpdateListingStatus(r.Context(), identity, chi.URLParam(r, "id"), models.ListingStatus(req.Status))
	if err != nil {
		writeServiceError(w, err, "Listing not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReplaceCredentials replaces the login details delivered to the buyer
// @Summary Replace listing credentials
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param request body CredentialsRequest true "Credential fields"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} ErrorResponse
// @Router /admin/listings/{id}/credentials [put]
func (h *AdminHandler) ReplaceCredentials(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req CredentialsRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ReplaceCredentials(r.Context(), identity, chi.URLParam(r, "id"), req.Credentials); err != nil {
		writeServiceError(w, err, "Listing not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteListing removes a listing
// @Summary Delete listing
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} ErrorResponse
// @Router /admin/listings/{id} [delete]
func (h *AdminHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	if err := h.service.DeleteListing(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Listing not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats returns dashboard totals
// @Summary Marketplace statistics
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AdminStats
// @Failure 403 {object} ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListTransactions lists transactions by status
// @Summary List transactions
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, completed or failed"
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {array} models.Transaction
// @Router /admin/transactions [get]
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	status := models.TransactionStatus(r.URL.Query().Get("status"))

	transactions, err := h.service.ListTransactions(r.Context(), status, queryLimit(r, 100))
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// ResolveTransaction settles a pending or failed transaction by hand
// @Summary Resolve transaction
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body ResolveRequest true "Resolution"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/transactions/{id}/status [put]
func (h *AdminHandler) ResolveTransaction(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req ResolveRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	err := h.service.ResolveTransaction(r.Context(), identity, chi.URLParam(r, "id"), models.TransactionStatus(req.Status), req.Note)
	if err != nil {
		writeServiceError(w, err, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// VerifyDeposit checks a deposit with Paystack and applies it if paid
// @Summary Verify deposit
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param reference path string true "Paystack reference"
// @Success 200 {object} services.DepositResult
// @Failure 502 {object} ErrorResponse
// @Router /admin/deposits/{reference}/verify [post]
func (h *AdminHandler) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	result, err := h.service.VerifyDeposit(r.Context(), identity, chi.URLParam(r, "reference"))
	if err != nil {
		writeServiceError(w, err, "Deposit not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RedeliverCredentials sends a purchase's credentials to the buyer again
// @Summary Redeliver credentials
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase transaction ID"
// @Success 200 {object} object{success=bool,messageId=string}
// @Failure 404 {object} ErrorResponse
// @Router /admin/purchases/{id}/redeliver [post]
func (h *AdminHandler) RedeliverCredentials(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	messageID, err := h.service.RedeliverCredentials(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messageId": messageID})
}
