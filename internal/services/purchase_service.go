package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ucmarket/backend/internal/audit"
	"github.com/ucmarket/backend/internal/config"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/notify"
	"github.com/ucmarket/backend/internal/store"
	"github.com/ucmarket/backend/internal/vault"
)

// PurchaseResult describes a completed purchase. DeliveryErr is set when the
// credential message could not be written; money and inventory are final
// regardless.
type PurchaseResult struct {
	TransactionID string
	MessageID     string
	ListingID     string
	Amount        int64
	DeliveryErr   error
}

type PurchaseService struct {
	inventory Inventory
	ledger    Ledger
	txlog     TransactionLog
	messages  MessageStore
	sealer    vault.Sealer
	notifier  notify.Notifier
	audit     *audit.Logger

	cfg           config.PurchaseConfig
	support       []string
	notifyTimeout time.Duration
}

func NewPurchaseService(
	inventory Inventory,
	ledger Ledger,
	txlog TransactionLog,
	messages MessageStore,
	sealer vault.Sealer,
	notifier notify.Notifier,
	auditLogger *audit.Logger,
	cfg config.PurchaseConfig,
	support []string,
) *PurchaseService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger()
	}
	return &PurchaseService{
		inventory:     inventory,
		ledger:        ledger,
		txlog:         txlog,
		messages:      messages,
		sealer:        sealer,
		notifier:      notifier,
		audit:         auditLogger,
		cfg:           cfg,
		support:       support,
		notifyTimeout: 5 * time.Second,
	}
}

// Purchase buys a listing for the user. The listing is reserved before any
// money moves; a debit that fails after the reservation is compensated by
// releasing the listing again.
func (s *PurchaseService) Purchase(ctx context.Context, buyer models.Identity, listingID string) (*PurchaseResult, error) {
	if buyer.UserID == "" {
		return nil, ErrUnauthorized
	}

	listing, err := s.inventory.GetActive(ctx, listingID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[PURCHASE] Listing %s not available for user %s", listingID, buyer.UserID)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}

	balance, err := s.ledger.Balance(ctx, buyer.UserID)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	if balance < listing.Price {
		log.Printf("[PURCHASE] User %s balance %d below price %d for listing %s", buyer.UserID, balance, listing.Price, listing.ID)
		return nil, ErrInsufficientFunds
	}

	reserved, err := s.inventory.ReserveOrSell(ctx, listing.ID, models.ListingSold)
	if err != nil {
		return nil, fmt.Errorf("reserve listing: %w", err)
	}
	if !reserved {
		log.Printf("[PURCHASE] User %s lost listing %s to a concurrent buyer", buyer.UserID, listing.ID)
		return nil, ErrConflict
	}

	// Past this point the attempt runs to completion or compensation even if
	// the caller goes away.
	ctx = context.WithoutCancel(ctx)

	debited, err := s.ledger.Debit(ctx, buyer.UserID, listing.Price)
	if err != nil || !debited {
		cause := err
		if cause == nil {
			cause = ErrInsufficientFunds
		}
		return nil, s.compensate(ctx, buyer, listing, cause)
	}

	result := &PurchaseResult{ListingID: listing.ID, Amount: listing.Price}

	entry := &models.Transaction{
		UserID:      buyer.UserID,
		Type:        models.TransactionPurchase,
		Amount:      listing.Price,
		Status:      models.TransactionCompleted,
		Description: fmt.Sprintf("Purchased %s account - @%s", listing.Platform, listing.Username),
		Metadata: models.Metadata{
			"listing_id": listing.ID,
			"platform":   listing.Platform,
			"username":   listing.Username,
		},
	}
	err = retry(ctx, s.cfg.DeliveryAttempts, s.cfg.CompensationBackoff, func() error {
		id, err := s.txlog.Append(ctx, entry)
		if err != nil {
			return err
		}
		result.TransactionID = id
		return nil
	})
	if err != nil {
		log.Printf("[PURCHASE] Failed to record purchase of %s by %s: %v", listing.ID, buyer.UserID, err)
		s.audit.LogError("", buyer.UserID, fmt.Errorf("record purchase of %s: %w", listing.ID, err))
	}

	messageID, err := s.DeliverCredentials(ctx, buyer.UserID, listing)
	if err != nil {
		log.Printf("[PURCHASE] Credential delivery failed for %s: %v", buyer.UserID, err)
		s.audit.LogDeliveryFailed(result.TransactionID, buyer.UserID, err)
		result.DeliveryErr = fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	result.MessageID = messageID

	s.audit.LogPurchase(result.TransactionID, buyer.UserID, listing.ID, listing.Price, "COMPLETED")
	log.Printf("[PURCHASE] User %s bought listing %s for %d UC", buyer.UserID, listing.ID, listing.Price)

	notify.Dispatch(s.notifier, notify.Event{
		Type:    notify.EventPurchase,
		UserID:  buyer.UserID,
		Email:   buyer.Email,
		Amount:  listing.Price,
		Summary: fmt.Sprintf("Account: %s @%s", listing.Platform, listing.Username),
	}, s.notifyTimeout)

	return result, nil
}

// DeliverCredentials writes the credential message for listing to the
// user's inbox, retrying transient failures.
func (s *PurchaseService) DeliverCredentials(ctx context.Context, userID string, listing *models.Listing) (string, error) {
	fields, err := s.sealer.Open(listing.Credentials)
	if err != nil {
		log.Printf("[PURCHASE] Could not open credentials for listing %s: %v", listing.ID, err)
		fields = nil
	}

	title := credentialTitle(listing)
	content := credentialMessage(listing, fields, s.support)

	var messageID string
	err = retry(ctx, s.cfg.DeliveryAttempts, s.cfg.CompensationBackoff, func() error {
		id, err := s.messages.Deliver(ctx, userID, title, content, models.MessageCredential)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	})
	return messageID, err
}

func (s *PurchaseService) compensate(ctx context.Context, buyer models.Identity, listing *models.Listing, cause error) error {
	log.Printf("[PURCHASE] Debit of %d failed for user %s, releasing listing %s: %v", listing.Price, buyer.UserID, listing.ID, cause)

	released := false
	err := retry(ctx, s.cfg.CompensationAttempts, s.cfg.CompensationBackoff, func() error {
		ok, err := s.inventory.Release(ctx, listing.ID, models.ListingSold)
		if err != nil {
			return err
		}
		// A listing no longer in sold was changed by someone else; retrying
		// cannot release it.
		released = ok
		return nil
	})
	if err != nil {
		released = false
	}

	if released {
		s.audit.LogCompensation(buyer.UserID, listing.ID, true, cause)
		return fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
	}

	if err == nil {
		err = errors.New("listing left sold state before release")
	}
	s.audit.LogCompensation(buyer.UserID, listing.ID, false, err)

	failed := &models.Transaction{
		UserID:      buyer.UserID,
		Type:        models.TransactionPurchase,
		Amount:      listing.Price,
		Status:      models.TransactionFailed,
		Description: fmt.Sprintf("Failed purchase of %s account - @%s", listing.Platform, listing.Username),
		Metadata: models.Metadata{
			"listing_id":     listing.ID,
			"platform":       listing.Platform,
			"username":       listing.Username,
			"reconciliation": "required",
			"debit_error":    cause.Error(),
			"release_error":  err.Error(),
		},
	}
	txID, appendErr := s.txlog.Append(ctx, failed)
	if appendErr != nil {
		log.Printf("[PURCHASE] Failed to log failed purchase for reconciliation: %v", appendErr)
	}

	s.audit.LogReconciliation(txID, buyer.UserID, listing.ID, listing.Price, err.Error())
	log.Printf("[PURCHASE] Listing %s stuck in sold without payment from %s, reconciliation required", listing.ID, buyer.UserID)

	return fmt.Errorf("%w: %w", ErrReconciliationRequired, cause)
}
