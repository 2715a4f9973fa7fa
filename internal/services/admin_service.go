package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ucmarket/backend/internal/audit"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/store"
	"github.com/ucmarket/backend/internal/vault"
)

// ListingInput is what an admin submits to publish a listing.
type ListingInput struct {
	Platform       string                   `json:"platform" validate:"required,max=50"`
	Username       string                   `json:"username" validate:"required,max=100"`
	Followers      int64                    `json:"followers" validate:"gte=0"`
	EngagementRate float64                  `json:"engagement_rate" validate:"gte=0,lte=100"`
	Price          int64                    `json:"price" validate:"required,gt=0"`
	Description    string                   `json:"description" validate:"max=2000"`
	Category       string                   `json:"category" validate:"max=50"`
	Credentials    []models.CredentialField `json:"credentials" validate:"dive"`
}

type AdminService struct {
	inventory Inventory
	txlog     TransactionLog
	sealer    vault.Sealer
	stats     StatsReader
	purchases *PurchaseService
	payments  *PaymentService
	audit     *audit.Logger
}

func NewAdminService(inventory Inventory, txlog TransactionLog, sealer vault.Sealer, stats StatsReader, purchases *PurchaseService, payments *PaymentService, auditLogger *audit.Logger) *AdminService {
	if auditLogger == nil {
		auditLogger = audit.NewLogger()
	}
	return &AdminService{
		inventory: inventory,
		txlog:     txlog,
		sealer:    sealer,
		stats:     stats,
		purchases: purchases,
		payments:  payments,
		audit:     auditLogger,
	}
}

func (s *AdminService) CreateListing(ctx context.Context, admin models.Identity, input ListingInput) (*models.Listing, error) {
	listing := &models.Listing{
		Platform:       input.Platform,
		Username:       input.Username,
		Followers:      input.Followers,
		EngagementRate: input.EngagementRate,
		Price:          input.Price,
		Description:    input.Description,
		Category:       input.Category,
		Status:         models.ListingActive,
		CreatedBy:      admin.UserID,
	}

	if len(input.Credentials) > 0 {
		sealed, err := s.sealer.Seal(input.Credentials)
		if err != nil {
			return nil, fmt.Errorf("seal credentials: %w", err)
		}
		listing.Credentials = sealed
	}

	if err := s.inventory.Create(ctx, listing); err != nil {
		return nil, mapStoreError(err)
	}

	s.audit.LogAdmin(admin.UserID, "create_listing", listing.ID)
	log.Printf("[ADMIN] %s created listing %s (%s @%s, %d UC)", admin.UserID, listing.ID, listing.Platform, listing.Username, listing.Price)
	return listing, nil
}

func (s *AdminService) UpdateListingStatus(ctx context.Context, admin models.Identity, id string, status models.ListingStatus) error {
	if err := s.inventory.UpdateStatus(ctx, id, status); err != nil {
		return mapStoreError(err)
	}
	s.audit.LogAdmin(admin.UserID, "update_listing_status:"+string(status), id)
	log.Printf("[ADMIN] %s set listing %s to %s", admin.UserID, id, status)
	return nil
}

// ReplaceCredentials reseals the full credential set of a listing.
func (s *AdminService) ReplaceCredentials(ctx context.Context, admin models.Identity, id string, fields []models.CredentialField) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one credential field required", ErrInvalidInput)
	}
	sealed, err := s.sealer.Seal(fields)
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}
	if err := s.inventory.SetCredentials(ctx, id, sealed); err != nil {
		return mapStoreError(err)
	}
	s.audit.LogAdmin(admin.UserID, "replace_credentials", id)
	return nil
}

func (s *AdminService) DeleteListing(ctx context.Context, admin models.Identity, id string) error {
	if err := s.inventory.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	s.audit.LogAdmin(admin.UserID, "delete_listing", id)
	log.Printf("[ADMIN] %s deleted listing %s", admin.UserID, id)
	return nil
}

func (s *AdminService) ListTransactions(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	transactions, err := s.txlog.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return transactions, nil
}

// ResolveTransaction is the manual reconciliation path for pending or
// failed purchases. Deposits go through VerifyDeposit instead.
func (s *AdminService) ResolveTransaction(ctx context.Context, admin models.Identity, id string, status models.TransactionStatus, note string) error {
	entry, err := s.txlog.Get(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	// a deposit status must move together with the ledger credit
	if entry.Type == models.TransactionDeposit {
		return fmt.Errorf("%w: deposits are settled through provider verification", ErrInvalidInput)
	}

	ok, err := s.txlog.Resolve(ctx, id, status, note)
	if err != nil {
		return mapStoreError(err)
	}
	if !ok {
		return ErrTransactionFinal
	}
	s.audit.LogAdmin(admin.UserID, "resolve_transaction:"+string(status), id)
	log.Printf("[ADMIN] %s resolved transaction %s to %s", admin.UserID, id, status)
	return nil
}

func (s *AdminService) VerifyDeposit(ctx context.Context, admin models.Identity, reference string) (*DepositResult, error) {
	result, err := s.payments.VerifyDeposit(ctx, reference)
	if err != nil {
		return nil, err
	}
	s.audit.LogAdmin(admin.UserID, "verify_deposit", reference)
	return result, nil
}

// RedeliverCredentials sends the credential message of a completed purchase
// again, for buyers whose original delivery failed.
func (s *AdminService) RedeliverCredentials(ctx context.Context, admin models.Identity, transactionID string) (string, error) {
	entry, err := s.txlog.Get(ctx, transactionID)
	if err != nil {
		return "", mapStoreError(err)
	}
	if entry.Type != models.TransactionPurchase || entry.Status != models.TransactionCompleted {
		return "", fmt.Errorf("%w: transaction %s is not a completed purchase", ErrInvalidInput, transactionID)
	}

	listing, err := s.inventory.Get(ctx, entry.Metadata.String("listing_id"))
	if err != nil {
		return "", mapStoreError(err)
	}

	messageID, err := s.purchases.DeliverCredentials(ctx, entry.UserID, listing)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.audit.LogAdmin(admin.UserID, "redeliver_credentials", transactionID)
	return messageID, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrInvalidVariant), errors.Is(err, store.ErrInvalidAmount):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return err
	}
}

// Stats returns the dashboard totals. Today starts at midnight UTC.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	since := time.Now().UTC().Truncate(24 * time.Hour)
	stats, err := s.stats.Snapshot(ctx, since)
	if err != nil {
		log.Printf("[ADMIN] Failed to load stats: %v", err)
		return nil, err
	}
	return stats, nil
}
