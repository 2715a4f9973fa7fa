package services

import (
	"context"
	"time"

	"github.com/ucmarket/backend/internal/models"
)

// Ledger is implemented by store.LedgerStore.
type Ledger interface {
	Credit(ctx context.Context, userID string, amount int64) (int64, error)
	Debit(ctx context.Context, userID string, amount int64) (bool, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

// Inventory is implemented by store.InventoryStore.
type Inventory interface {
	GetActive(ctx context.Context, id string) (*models.Listing, error)
	Get(ctx context.Context, id string) (*models.Listing, error)
	ReserveOrSell(ctx context.Context, id string, target models.ListingStatus) (bool, error)
	Release(ctx context.Context, id string, from models.ListingStatus) (bool, error)
	Create(ctx context.Context, listing *models.Listing) error
	UpdateStatus(ctx context.Context, id string, status models.ListingStatus) error
	SetCredentials(ctx context.Context, id, sealed string) error
	Delete(ctx context.Context, id string) error
}

// TransactionLog is implemented by store.TransactionLog.
type TransactionLog interface {
	Append(ctx context.Context, entry *models.Transaction) (string, error)
	Get(ctx context.Context, id string) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error)
	Resolve(ctx context.Context, id string, status models.TransactionStatus, note string) (bool, error)
}

// MessageStore is implemented by store.MessageStore.
type MessageStore interface {
	Deliver(ctx context.Context, userID, title, content string, msgType models.MessageType) (string, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Message, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// StatsReader is implemented by store.StatsStore.
type StatsReader interface {
	Snapshot(ctx context.Context, since time.Time) (*models.AdminStats, error)
}

// retry calls fn up to attempts times, sleeping backoff (doubling) between
// failures. It stops early when ctx is done.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
