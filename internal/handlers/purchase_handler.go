package handlers

import (
	"context"
	"net/http"

	"github.com/ucmarket/backend/internal/middleware"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/services"
)

type Purchaser interface {
	Purchase(ctx context.Context, buyer models.Identity, listingID string) (*services.PurchaseResult, error)
}

type PurchaseHandler struct {
	service   Purchaser
	validator *ValidationHelper
}

func NewPurchaseHandler(service Purchaser) *PurchaseHandler {
	return &PurchaseHandler{
		service:   service,
		validator: NewValidationHelper(),
	}
}

type PurchaseRequest struct {
	AccountID string `json:"accountId" validate:"required,max=64"`
}

type PurchaseResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
	MessageID     string `json:"messageId,omitempty"`
}

// Purchase buys a listed account with the caller's UC balance
// @Summary Purchase account
// @Description Buy a listed account. Credentials are delivered to the buyer's messages.
// @Tags Purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PurchaseRequest true "Purchase request"
// @Success 200 {object} PurchaseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /purchases [post]
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req PurchaseRequest
	if !h.validator.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Purchase(r.Context(), identity, req.AccountID)
	if err != nil {
		writeServiceError(w, err, "Account is sold out or no longer listed")
		return
	}

	message := "Account purchased successfully! Check your messages for credentials."
	if result.DeliveryErr != nil {
		message = "Account purchased successfully. Credential delivery is delayed, support has been notified."
	}

	writeJSON(w, http.StatusOK, PurchaseResponse{
		Success:       true,
		Message:       message,
		TransactionID: result.TransactionID,
		MessageID:     result.MessageID,
	})
}
