package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrConflict          = errors.New("listing no longer available")
	ErrPaymentFailed     = errors.New("payment failed")
	// ErrReconciliationRequired is a PaymentFailed whose compensation also
	// failed. The attempt is logged as a failed transaction for an admin.
	ErrReconciliationRequired = fmt.Errorf("%w: manual reconciliation required", ErrPaymentFailed)
	ErrUnauthorized           = errors.New("unauthorized")
	ErrDeliveryFailed         = errors.New("message delivery failed")
	ErrPaymentInitFailed      = errors.New("payment initialization failed")
	ErrProviderUnavailable    = errors.New("payment provider unavailable")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTransactionFinal       = errors.New("transaction already settled")
)
