package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/ucmarket/backend/internal/middleware"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/paystack"
	"github.com/ucmarket/backend/internal/services"
)

type Payments interface {
	Initialize(ctx context.Context, user models.Identity, naira decimal.Decimal) (*services.DepositSession, error)
	HandleWebhook(ctx context.Context, body []byte, signature, remoteAddr string) (*services.DepositResult, error)
}

type PaymentHandler struct {
	service   Payments
	validator *ValidationHelper
}

func NewPaymentHandler(service Payments) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: NewValidationHelper(),
	}
}

// InitializeRequest carries the deposit in naira.
type InitializeRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"number"`
}

// Initialize starts a Paystack checkout for a deposit
// @Summary Initialize deposit
// @Description Create a Paystack checkout for a naira deposit. ₦100 buys 10 UC.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InitializeRequest true "Deposit amount in naira"
// @Success 200 {object} services.DepositSession
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /payments/initialize [post]
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req InitializeRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Initialize(r.Context(), identity, req.Amount)
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Webhook receives Paystack events
// @Summary Paystack webhook
// @Description Signed Paystack event delivery. Repeated deliveries are acknowledged without effect.
// @Tags Payments
// @Accept json
// @Produce json
// @Param x-paystack-signature header string true "HMAC-SHA512 of the body"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	_, err = h.service.HandleWebhook(r.Context(), body, r.Header.Get(paystack.SignatureHeader), r.RemoteAddr)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, services.ErrUnauthorized):
		SendErrorResponse(w, "Invalid signature", http.StatusUnauthorized, nil)
	case errors.Is(err, services.ErrInvalidInput):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		// non-2xx makes the provider retry
		writeServiceError(w, err, "Not found")
	}
}
