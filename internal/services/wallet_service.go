package services

import (
	"context"

	"github.com/ucmarket/backend/internal/models"
)

type Inbox struct {
	Messages []models.Message `json:"messages"`
	Unread   int              `json:"unread"`
}

// WalletService is the read side a signed-in user sees.
type WalletService struct {
	ledger   Ledger
	txlog    TransactionLog
	messages MessageStore
}

func NewWalletService(ledger Ledger, txlog TransactionLog, messages MessageStore) *WalletService {
	return &WalletService{ledger: ledger, txlog: txlog, messages: messages}
}

func (s *WalletService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.ledger.Balance(ctx, userID)
}

func (s *WalletService) Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	return s.txlog.ListByUser(ctx, userID, limit)
}

func (s *WalletService) Inbox(ctx context.Context, userID string, limit int) (*Inbox, error) {
	messages, err := s.messages.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Messages: messages, Unread: unread}, nil
}

func (s *WalletService) MarkRead(ctx context.Context, userID, messageID string) error {
	if err := s.messages.MarkRead(ctx, userID, messageID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *WalletService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.messages.MarkAllRead(ctx, userID)
}
