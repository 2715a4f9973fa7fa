package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ucmarket/backend/internal/models"
)

const transactionColumns = `id, user_id, type, amount, status, description, reference, metadata, created_at, updated_at`

// TransactionLog is the append-only record of money and inventory events.
// Only the status of a pending entry may change.
type TransactionLog struct {
	db DBTX
}

func NewTransactionLog(db DBTX) *TransactionLog {
	return &TransactionLog{db: db}
}

func (s *TransactionLog) WithTx(tx *sql.Tx) *TransactionLog {
	return &TransactionLog{db: tx}
}

// Append writes a new entry and returns its id.
func (s *TransactionLog) Append(ctx context.Context, entry *models.Transaction) (string, error) {
	if !entry.Type.Valid() {
		return "", fmt.Errorf("transaction type %q: %w", entry.Type, ErrInvalidVariant)
	}
	if !entry.Status.Valid() {
		return "", fmt.Errorf("transaction status %q: %w", entry.Status, ErrInvalidVariant)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Metadata == nil {
		entry.Metadata = models.Metadata{}
	}
	entry.CreatedAt = now()
	entry.UpdatedAt = entry.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.UserID, entry.Type, entry.Amount, entry.Status, entry.Description,
		nullString(entry.Reference), entry.Metadata, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if entry.Reference != "" && isUniqueViolation(err) {
			return "", fmt.Errorf("reference %s: %w", entry.Reference, ErrDuplicateReference)
		}
		return "", fmt.Errorf("append transaction: %w", err)
	}
	return entry.ID, nil
}

// Finalize moves the pending entry with the given reference to status,
// merging metadata into what is stored. A zero amount keeps the recorded
// amount. It reports false when the entry is absent or already final, so
// repeated calls have no further effect.
func (s *TransactionLog) Finalize(ctx context.Context, reference string, status models.TransactionStatus, amount int64, metadata models.Metadata) (bool, error) {
	if !status.Final() {
		return false, fmt.Errorf("finalize to %q: %w", status, ErrInvalidVariant)
	}
	return s.settle(ctx, reference, models.TransactionPending, status, amount, metadata)
}

// CompleteFailed moves a failed entry to completed. A deposit marked failed
// before its payment was confirmed is settled this way. It reports false
// when the entry is absent or not failed.
func (s *TransactionLog) CompleteFailed(ctx context.Context, reference string, amount int64, metadata models.Metadata) (bool, error) {
	return s.settle(ctx, reference, models.TransactionFailed, models.TransactionCompleted, amount, metadata)
}

func (s *TransactionLog) settle(ctx context.Context, reference string, from, status models.TransactionStatus, amount int64, metadata models.Metadata) (bool, error) {
	current, err := s.GetByReference(ctx, reference)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current.Status != from {
		return false, nil
	}
	if amount == 0 {
		amount = current.Amount
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, amount = $2, metadata = $3, updated_at = $4
		WHERE reference = $5 AND status = $6`,
		status, amount, current.Metadata.Merge(metadata), now(), reference, from)
	if err != nil {
		return false, fmt.Errorf("finalize %s: %w", reference, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Resolve settles a pending or failed entry by hand and records the note.
// It reports false when the entry is already in a terminal state that
// cannot be changed.
func (s *TransactionLog) Resolve(ctx context.Context, id string, status models.TransactionStatus, note string) (bool, error) {
	if !status.Final() {
		return false, fmt.Errorf("resolve to %q: %w", status, ErrInvalidVariant)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Status == models.TransactionCompleted || current.Status == status {
		return false, nil
	}

	metadata := current.Metadata.Merge(models.Metadata{
		"resolution_note": note,
		"resolved_from":   string(current.Status),
	})
	if metadata.String("reconciliation") == "required" {
		metadata["reconciliation"] = "resolved"
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, metadata = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		status, metadata, now(), id, current.Status)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *TransactionLog) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	return scanTransaction(row)
}

func (s *TransactionLog) Get(ctx context.Context, id string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// ListByUser returns the user's entries, newest first.
func (s *TransactionLog) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	return s.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, clampLimit(limit))
}

// ListByStatus returns entries in status, or all entries when status is empty.
func (s *TransactionLog) ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	if status == "" {
		return s.list(ctx, `SELECT `+transactionColumns+` FROM transactions
			ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	}
	if !status.Valid() {
		return nil, fmt.Errorf("transaction status %q: %w", status, ErrInvalidVariant)
	}
	return s.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, clampLimit(limit))
}

func (s *TransactionLog) list(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var t models.Transaction
	var reference sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Description,
		&reference, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Reference = reference.String
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
