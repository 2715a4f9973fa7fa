package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/ucmarket/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a single JSON object into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func (vh *ValidationHelper) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := vh.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// writeServiceError maps the service error taxonomy to HTTP. notFound is
// the message shown for a missing resource.
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	case errors.Is(err, services.ErrReconciliationRequired):
		SendErrorResponse(w, "Purchase could not be completed, support has been notified", http.StatusInternalServerError, nil)
	case errors.Is(err, services.ErrPaymentFailed):
		SendErrorResponse(w, "Payment failed, please try again", http.StatusServiceUnavailable, nil)
	case errors.Is(err, services.ErrInsufficientFunds):
		SendErrorResponse(w, "Insufficient balance", http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrConflict):
		SendErrorResponse(w, "Account is no longer available", http.StatusConflict, nil)
	case errors.Is(err, services.ErrNotFound):
		SendErrorResponse(w, notFound, http.StatusNotFound, nil)
	case errors.Is(err, services.ErrInvalidAmount):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrInvalidInput):
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrTransactionFinal):
		SendErrorResponse(w, "Transaction is already settled", http.StatusConflict, nil)
	case errors.Is(err, services.ErrPaymentInitFailed):
		SendErrorResponse(w, "Payment initialization failed, please try again", http.StatusBadGateway, nil)
	case errors.Is(err, services.ErrProviderUnavailable):
		SendErrorResponse(w, "Payment provider unavailable", http.StatusBadGateway, nil)
	case errors.Is(err, services.ErrDeliveryFailed):
		SendErrorResponse(w, "Message delivery failed", http.StatusInternalServerError, nil)
	default:
		log.Printf("[HTTP] Unhandled error: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func queryLimit(r *http.Request, def int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
