// Package audit writes one-line JSON records for money and inventory events.
package audit

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

const (
	EventPurchase               = "PURCHASE"
	EventDeposit                = "DEPOSIT"
	EventCompensation           = "COMPENSATION"
	EventReconciliationRequired = "RECONCILIATION_REQUIRED"
	EventWebhookRejected        = "WEBHOOK_REJECTED"
	EventDeliveryFailed         = "DELIVERY_FAILED"
	EventAdmin                  = "ADMIN"
	EventError                  = "ERROR"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	ListingID     string    `json:"listing_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

type Logger struct {
	out *log.Logger
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stderr)
}

// NewLoggerTo writes audit records to w.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags)}
}

func (a *Logger) LogPurchase(txID, userID, listingID string, amount int64, status string) {
	a.log(Event{
		EventType:     EventPurchase,
		TransactionID: txID,
		UserID:        userID,
		ListingID:     listingID,
		Amount:        amount,
		Status:        status,
	})
}

func (a *Logger) LogDeposit(reference, userID string, amount int64, status string) {
	a.log(Event{
		EventType:     EventDeposit,
		TransactionID: reference,
		UserID:        userID,
		Amount:        amount,
		Status:        status,
	})
}

func (a *Logger) LogCompensation(userID, listingID string, compensated bool, cause error) {
	status := "SUCCESS"
	if !compensated {
		status = "FAILED"
	}
	a.log(Event{
		EventType: EventCompensation,
		UserID:    userID,
		ListingID: listingID,
		Status:    status,
		Details:   map[string]string{"cause": errString(cause)},
	})
}

// LogReconciliation records a state that needs a human to fix.
func (a *Logger) LogReconciliation(txID, userID, listingID string, amount int64, reason string) {
	a.log(Event{
		EventType:     EventReconciliationRequired,
		TransactionID: txID,
		UserID:        userID,
		ListingID:     listingID,
		Amount:        amount,
		Status:        "ESCALATED",
		Details:       map[string]string{"reason": reason},
	})
}

func (a *Logger) LogWebhookRejected(remoteAddr, reason string) {
	a.log(Event{
		EventType: EventWebhookRejected,
		Status:    "REJECTED",
		Details: map[string]string{
			"remote_addr": remoteAddr,
			"reason":      reason,
		},
	})
}

func (a *Logger) LogDeliveryFailed(txID, userID string, err error) {
	a.log(Event{
		EventType:     EventDeliveryFailed,
		TransactionID: txID,
		UserID:        userID,
		Status:        "FAILED",
		Details:       map[string]string{"error": errString(err)},
	})
}

func (a *Logger) LogAdmin(adminID, action, subject string) {
	a.log(Event{
		EventType: EventAdmin,
		UserID:    adminID,
		Status:    "SUCCESS",
		Details: map[string]string{
			"action":  action,
			"subject": subject,
		},
	})
}

func (a *Logger) LogError(txID, userID string, err error) {
	a.log(Event{
		EventType:     EventError,
		TransactionID: txID,
		UserID:        userID,
		Status:        "FAILED",
		Details:       map[string]string{"error": errString(err)},
	})
}

func (a *Logger) log(event Event) {
	event.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
