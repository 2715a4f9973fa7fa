package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LedgerStore keeps one UC balance per user.
type LedgerStore struct {
	db DBTX
}

func NewLedgerStore(db DBTX) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithTx returns a LedgerStore whose statements run inside tx.
func (s *LedgerStore) WithTx(tx *sql.Tx) *LedgerStore {
	return &LedgerStore{db: tx}
}

// Credit adds amount to the user's balance, creating the wallet when absent,
// and returns the new balance.
func (s *LedgerStore) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user_wallets (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = user_wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		RETURNING balance`,
		userID, amount, now()).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("credit wallet %s: %w", userID, err)
	}
	return balance, nil
}

// Debit subtracts amount only when the balance covers it. It reports false
// when the balance is short or the wallet does not exist.
func (s *LedgerStore) Debit(ctx context.Context, userID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE user_wallets
		SET balance = balance - $1, updated_at = $2
		WHERE user_id = $3 AND balance >= $1`,
		amount, now(), userID)
	if err != nil {
		return false, fmt.Errorf("debit wallet %s: %w", userID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Balance returns 0 for users without a wallet.
func (s *LedgerStore) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM user_wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", userID, err)
	}
	return balance, nil
}

func (s *LedgerStore) EnsureWallet(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_wallets (user_id, balance, created_at, updated_at)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, now())
	if err != nil {
		return fmt.Errorf("ensure wallet %s: %w", userID, err)
	}
	return nil
}
