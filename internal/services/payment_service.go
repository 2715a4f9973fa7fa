package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"github.com/ucmarket/backend/internal/audit"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/notify"
	"github.com/ucmarket/backend/internal/paystack"
	"github.com/ucmarket/backend/internal/store"
)

// PaymentProvider is implemented by paystack.Client.
type PaymentProvider interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Charge, error)
}

// DepositSession is returned to the user to complete a deposit.
type DepositSession struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
	QRCode           string `json:"qr_code,omitempty"` // base64 PNG of AuthorizationURL
	UCAmount         int64  `json:"uc_amount"`
}

// DepositResult reports what a charge did to the ledger. Duplicate is set
// when the reference had already been settled and nothing changed.
type DepositResult struct {
	Reference string `json:"reference"`
	UserID    string `json:"user_id,omitempty"`
	Credited  int64  `json:"credited"`
	Balance   int64  `json:"balance,omitempty"`
	Duplicate bool   `json:"duplicate"`
	Status    string `json:"status"`
}

var errAlreadySettled = errors.New("deposit already settled")

type PaymentService struct {
	db       *sql.DB
	ledger   *store.LedgerStore
	txlog    *store.TransactionLog
	messages MessageStore
	provider PaymentProvider
	notifier notify.Notifier
	audit    *audit.Logger

	webhookSecret string
	notifyTimeout time.Duration
}

func NewPaymentService(
	db *sql.DB,
	ledger *store.LedgerStore,
	txlog *store.TransactionLog,
	messages MessageStore,
	provider PaymentProvider,
	notifier notify.Notifier,
	auditLogger *audit.Logger,
	webhookSecret string,
) *PaymentService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger()
	}
	return &PaymentService{
		db:            db,
		ledger:        ledger,
		txlog:         txlog,
		messages:      messages,
		provider:      provider,
		notifier:      notifier,
		audit:         auditLogger,
		webhookSecret: webhookSecret,
		notifyTimeout: 5 * time.Second,
	}
}

// Initialize opens a provider checkout for a naira deposit and records it
// as pending. Nothing is written when the provider call fails.
func (s *PaymentService) Initialize(ctx context.Context, user models.Identity, naira decimal.Decimal) (*DepositSession, error) {
	if user.UserID == "" {
		return nil, ErrUnauthorized
	}
	if !naira.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if naira.GreaterThan(maxDepositNaira) {
		return nil, fmt.Errorf("%w: maximum deposit is ₦%s", ErrInvalidAmount, maxDepositNaira.String())
	}
	uc := NairaToUC(naira)
	if uc < 1 {
		return nil, fmt.Errorf("%w: minimum deposit is ₦%s", ErrInvalidAmount, nairaPerUC.String())
	}

	resp, err := s.provider.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    NairaToKobo(naira),
		Reference: "ucm_" + uuid.New().String(),
		Metadata: map[string]any{
			"user_id":    user.UserID,
			"user_email": user.Email,
			"uc_amount":  uc,
		},
	})
	if err != nil {
		log.Printf("[PAYMENT] Initialize failed for user %s: %v", user.UserID, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	_, err = s.txlog.Append(ctx, &models.Transaction{
		UserID:      user.UserID,
		Type:        models.TransactionDeposit,
		Amount:      uc,
		Status:      models.TransactionPending,
		Description: fmt.Sprintf("Deposit of ₦%s", naira.StringFixed(2)),
		Reference:   resp.Reference,
		Metadata: models.Metadata{
			"naira_amount":       naira.String(),
			"paystack_reference": resp.Reference,
		},
	})
	if err != nil {
		// the webhook inserts the deposit itself when no pending record exists
		log.Printf("[PAYMENT] Failed to record pending deposit %s: %v", resp.Reference, err)
	}
	if err := s.ledger.EnsureWallet(ctx, user.UserID); err != nil {
		log.Printf("[PAYMENT] Failed to open wallet for user %s: %v", user.UserID, err)
	}

	session := &DepositSession{
		AuthorizationURL: resp.AuthorizationURL,
		Reference:        resp.Reference,
		UCAmount:         uc,
	}
	if png, err := qrcode.Encode(resp.AuthorizationURL, qrcode.Medium, 256); err == nil {
		session.QRCode = base64.StdEncoding.EncodeToString(png)
	} else {
		log.Printf("[PAYMENT] QR generation failed for %s: %v", resp.Reference, err)
	}

	log.Printf("[PAYMENT] Deposit %s initialized for user %s: ₦%s -> %d UC", resp.Reference, user.UserID, naira.String(), uc)
	return session, nil
}

// HandleWebhook verifies and applies a provider event. Unknown events are
// acknowledged with a nil result.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature, remoteAddr string) (*DepositResult, error) {
	if !paystack.VerifySignature(s.webhookSecret, body, signature) {
		reason := "signature mismatch"
		if signature == "" {
			reason = "missing signature"
		}
		log.Printf("[WEBHOOK] Rejected delivery from %s: %s", remoteAddr, reason)
		s.audit.LogWebhookRejected(remoteAddr, reason)
		return nil, ErrUnauthorized
	}

	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event: %v", ErrInvalidInput, err)
	}

	if event.Event != paystack.EventChargeSuccess {
		log.Printf("[WEBHOOK] Ignoring event %q", event.Event)
		return nil, nil
	}

	return s.ApplyCharge(ctx, event.Data)
}

// VerifyDeposit asks the provider about a reference and applies it when
// the provider reports success.
func (s *PaymentService) VerifyDeposit(ctx context.Context, reference string) (*DepositResult, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference required", ErrInvalidInput)
	}

	charge, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if charge.Status != paystack.StatusSuccess {
		log.Printf("[PAYMENT] Deposit %s not successful at provider: %s", reference, charge.Status)
		return &DepositResult{Reference: reference, Status: charge.Status}, nil
	}
	if charge.Reference == "" {
		charge.Reference = reference
	}
	return s.ApplyCharge(ctx, *charge)
}

// ApplyCharge credits a successful charge exactly once per reference. The
// ledger credit and the transaction record commit together.
func (s *PaymentService) ApplyCharge(ctx context.Context, charge paystack.Charge) (*DepositResult, error) {
	if charge.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrInvalidInput)
	}
	uc := KoboToUC(charge.Amount)
	if uc < 1 {
		return nil, fmt.Errorf("%w: amount %d kobo credits no UC", ErrInvalidInput, charge.Amount)
	}

	result := &DepositResult{Reference: charge.Reference, Credited: uc, Status: paystack.StatusSuccess}
	naira := KoboToNaira(charge.Amount)

	err := store.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		txlog := s.txlog.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		existing, err := txlog.GetByReference(ctx, charge.Reference)
		switch {
		case errors.Is(err, store.ErrNotFound):
			result.UserID = charge.MetadataString("user_id")
			if result.UserID == "" {
				return fmt.Errorf("%w: missing user_id metadata", ErrInvalidInput)
			}
			_, err = txlog.Append(ctx, &models.Transaction{
				UserID:      result.UserID,
				Type:        models.TransactionDeposit,
				Amount:      uc,
				Status:      models.TransactionCompleted,
				Description: fmt.Sprintf("Deposit of ₦%s", naira.StringFixed(2)),
				Reference:   charge.Reference,
				Metadata:    chargeMetadata(charge, naira),
			})
			if errors.Is(err, store.ErrDuplicateReference) {
				return errAlreadySettled
			}
			if err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.Status == models.TransactionFailed && existing.Type == models.TransactionDeposit:
			// marked failed before the provider confirmed payment
			result.UserID = existing.UserID
			metadata := chargeMetadata(charge, naira)
			metadata["recovered_from"] = string(models.TransactionFailed)
			ok, err := txlog.CompleteFailed(ctx, charge.Reference, uc, metadata)
			if err != nil {
				return err
			}
			if !ok {
				return errAlreadySettled
			}
			log.Printf("[WEBHOOK] Recovering failed deposit %s for user %s", charge.Reference, existing.UserID)
		case existing.Status != models.TransactionPending:
			return errAlreadySettled
		default:
			result.UserID = existing.UserID
			if claimed := charge.MetadataString("user_id"); claimed != "" && claimed != existing.UserID {
				log.Printf("[WEBHOOK] Metadata user %s differs from pending owner %s for %s, crediting owner", claimed, existing.UserID, charge.Reference)
			}
			ok, err := txlog.Finalize(ctx, charge.Reference, models.TransactionCompleted, uc, chargeMetadata(charge, naira))
			if err != nil {
				return err
			}
			if !ok {
				return errAlreadySettled
			}
		}

		balance, err := ledger.Credit(ctx, result.UserID, uc)
		if err != nil {
			return err
		}
		result.Balance = balance
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		log.Printf("[WEBHOOK] Reference %s already settled, skipping", charge.Reference)
		return &DepositResult{Reference: charge.Reference, Duplicate: true, Status: paystack.StatusSuccess}, nil
	}
	if err != nil {
		log.Printf("[WEBHOOK] Failed to apply charge %s: %v", charge.Reference, err)
		return nil, err
	}

	s.audit.LogDeposit(charge.Reference, result.UserID, uc, "COMPLETED")
	log.Printf("[WEBHOOK] Credited %d UC to user %s for %s", uc, result.UserID, charge.Reference)

	content := fmt.Sprintf("Your deposit of ₦%s has been processed successfully. %d UC has been added to your wallet.", naira.StringFixed(2), uc)
	if _, err := s.messages.Deliver(ctx, result.UserID, "Deposit Successful", content, models.MessageNotification); err != nil {
		log.Printf("[WEBHOOK] Deposit notification failed for user %s: %v", result.UserID, err)
		s.audit.LogDeliveryFailed(charge.Reference, result.UserID, err)
	}

	notify.Dispatch(s.notifier, notify.Event{
		Type:      notify.EventDeposit,
		UserID:    result.UserID,
		Email:     charge.Customer.Email,
		Amount:    uc,
		Reference: charge.Reference,
	}, s.notifyTimeout)

	return result, nil
}

func chargeMetadata(charge paystack.Charge, naira decimal.Decimal) models.Metadata {
	m := models.Metadata{
		"paystack_status":    paystack.StatusSuccess,
		"paystack_reference": charge.Reference,
		"confirmed_kobo":     charge.Amount,
		"naira_amount":       naira.String(),
	}
	if charge.PaidAt != "" {
		m["paid_at"] = charge.PaidAt
	}
	return m
}
