package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ucmarket/backend/internal/models"
)

// StatsStore answers the aggregate queries behind the admin dashboard.
type StatsStore struct {
	db DBTX
}

func NewStatsStore(db DBTX) *StatsStore {
	return &StatsStore{db: db}
}

// Snapshot counts listings by status, wallets and pending transactions,
// and sums completed purchase amounts overall and since the given time.
func (s *StatsStore) Snapshot(ctx context.Context, since time.Time) (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM marketplace_accounts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.ListingStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan listing count: %w", err)
		}
		stats.TotalAccounts += n
		switch status {
		case models.ListingActive:
			stats.ActiveAccounts = n
		case models.ListingSold:
			stats.SoldAccounts = n
		case models.ListingPending:
			stats.PendingAccounts = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_wallets`).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("count wallets: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE status = $1`,
		models.TransactionPending).Scan(&stats.PendingTransactions); err != nil {
		return nil, fmt.Errorf("count pending transactions: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = $1 AND status = $2`,
		models.TransactionPurchase, models.TransactionCompleted).Scan(&stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = $1 AND status = $2 AND created_at >= $3`,
		models.TransactionPurchase, models.TransactionCompleted, since.UTC()).Scan(&stats.TodayRevenue); err != nil {
		return nil, fmt.Errorf("sum revenue since %s: %w", since.Format(time.RFC3339), err)
	}

	return stats, nil
}
