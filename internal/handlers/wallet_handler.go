package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ucmarket/backend/internal/middleware"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/services"
)

type Wallet interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	Inbox(ctx context.Context, userID string, limit int) (*services.Inbox, error)
	MarkRead(ctx context.Context, userID, messageID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type WalletHandler struct {
	service Wallet
}

func NewWalletHandler(service Wallet) *WalletHandler {
	return &WalletHandler{service: service}
}

// GetWallet returns the caller's UC balance
// @Summary Wallet balance
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user_id=string,balance=int64}
// @Failure 401 {object} ErrorResponse
// @Router /wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := h.service.Balance(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "Wallet not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": identity.UserID,
		"balance": balance,
	})
}

// ListTransactions returns the caller's transactions, newest first
// @Summary List own transactions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 50, max 100)"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := h.service.Transactions(r.Context(), identity.UserID, queryLimit(r, 50))
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// ListMessages returns the caller's inbox
// @Summary List own messages
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 50, max 100)"
// @Success 200 {object} services.Inbox
// @Router /messages [get]
func (h *WalletHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	inbox, err := h.service.Inbox(r.Context(), identity.UserID, queryLimit(r, 50))
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

// MarkRead marks one message as read
// @Summary Mark message read
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} ErrorResponse
// @Router /messages/{id}/read [post]
func (h *WalletHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if err := h.service.MarkRead(r.Context(), identity.UserID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Message not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MarkAllRead marks every message of the caller as read
// @Summary Mark all messages read
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,updated=int64}
// @Router /messages/read-all [post]
func (h *WalletHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}
