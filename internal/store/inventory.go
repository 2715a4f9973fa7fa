package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ucmarket/backend/internal/models"
)

const listingColumns = `id, platform, username, followers, engagement_rate, price,
	description, category, status, credentials, created_by, created_at, updated_at`

// InventoryStore holds marketplace listings.
type InventoryStore struct {
	db DBTX
}

func NewInventoryStore(db DBTX) *InventoryStore {
	return &InventoryStore{db: db}
}

func (s *InventoryStore) WithTx(tx *sql.Tx) *InventoryStore {
	return &InventoryStore{db: tx}
}

// GetActive returns the listing only while it is for sale.
func (s *InventoryStore) GetActive(ctx context.Context, id string) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM marketplace_accounts WHERE id = $1 AND status = $2`,
		id, models.ListingActive)
	return scanListing(row)
}

func (s *InventoryStore) Get(ctx context.Context, id string) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM marketplace_accounts WHERE id = $1`, id)
	return scanListing(row)
}

// ReserveOrSell moves an active listing to target (sold or pending). Only
// one caller can win; the others get false.
func (s *InventoryStore) ReserveOrSell(ctx context.Context, id string, target models.ListingStatus) (bool, error) {
	if target != models.ListingSold && target != models.ListingPending {
		return false, fmt.Errorf("reserve to %q: %w", target, ErrInvalidVariant)
	}
	return s.transition(ctx, id, models.ListingActive, target)
}

// Release returns a reserved listing to active. It reports false when the
// listing is no longer in the from state.
func (s *InventoryStore) Release(ctx context.Context, id string, from models.ListingStatus) (bool, error) {
	if !from.Valid() || from == models.ListingActive {
		return false, fmt.Errorf("release from %q: %w", from, ErrInvalidVariant)
	}
	return s.transition(ctx, id, from, models.ListingActive)
}

func (s *InventoryStore) transition(ctx context.Context, id string, from, to models.ListingStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE marketplace_accounts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		to, now(), id, from)
	if err != nil {
		return false, fmt.Errorf("listing %s %s->%s: %w", id, from, to, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Create inserts a listing, assigning its id and timestamps.
func (s *InventoryStore) Create(ctx context.Context, listing *models.Listing) error {
	if listing.Status == "" {
		listing.Status = models.ListingActive
	}
	if !listing.Status.Valid() {
		return fmt.Errorf("listing status %q: %w", listing.Status, ErrInvalidVariant)
	}
	if listing.Price <= 0 {
		return ErrInvalidAmount
	}
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	listing.CreatedAt = now()
	listing.UpdatedAt = listing.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marketplace_accounts (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		listing.ID, listing.Platform, listing.Username, listing.Followers, listing.EngagementRate,
		listing.Price, listing.Description, listing.Category, listing.Status, listing.Credentials,
		listing.CreatedBy, listing.CreatedAt, listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// UpdateStatus sets any valid status without a precondition (admin override).
func (s *InventoryStore) UpdateStatus(ctx context.Context, id string, status models.ListingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("listing status %q: %w", status, ErrInvalidVariant)
	}
	return s.exec(ctx, id, `UPDATE marketplace_accounts SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now(), id)
}

// SetCredentials replaces the sealed credential payload.
func (s *InventoryStore) SetCredentials(ctx context.Context, id, sealed string) error {
	return s.exec(ctx, id, `UPDATE marketplace_accounts SET credentials = $1, updated_at = $2 WHERE id = $3`,
		sealed, now(), id)
}

func (s *InventoryStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, `DELETE FROM marketplace_accounts WHERE id = $1`, id)
}

func (s *InventoryStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("listing %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanListing(row *sql.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ID, &l.Platform, &l.Username, &l.Followers, &l.EngagementRate, &l.Price,
		&l.Description, &l.Category, &l.Status, &l.Credentials, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	return &l, nil
}
