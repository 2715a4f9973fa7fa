package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ucmarket/backend/internal/audit"
	"github.com/ucmarket/backend/internal/config"
	"github.com/ucmarket/backend/internal/database"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/notify"
	"github.com/ucmarket/backend/internal/store"
	"github.com/ucmarket/backend/internal/vault"
)

var testPurchaseConfig = config.PurchaseConfig{
	CompensationAttempts: 3,
	CompensationBackoff:  0,
	DeliveryAttempts:     3,
}

type purchaseMocks struct {
	inventory *MockInventory
	ledger    *MockLedger
	txlog     *MockTransactionLog
	messages  *MockMessageStore
	sealer    *MockSealer
	notifier  *recordingNotifier
}

func newMockedPurchaseService() (*PurchaseService, *purchaseMocks) {
	m := &purchaseMocks{
		inventory: new(MockInventory),
		ledger:    new(MockLedger),
		txlog:     new(MockTransactionLog),
		messages:  new(MockMessageStore),
		sealer:    new(MockSealer),
		notifier:  newRecordingNotifier(),
	}
	service := NewPurchaseService(m.inventory, m.ledger, m.txlog, m.messages, m.sealer, m.notifier,
		audit.NewLoggerTo(io.Discard), testPurchaseConfig, []string{"@Ultrabase1"})
	return service, m
}

func testListing() *models.Listing {
	return &models.Listing{
		ID:          "listing1",
		Platform:    "instagram",
		Username:    "travel.daily",
		Followers:   12500,
		Price:       600,
		Status:      models.ListingActive,
		Credentials: "sealed",
	}
}

var buyer = models.Identity{UserID: "user1", Email: "buyer@example.com"}

func TestPurchaseService_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("successful purchase", func(t *testing.T) {
		service, m := newMockedPurchaseService()
		listing := testListing()

		m.inventory.On("GetActive", ctx, "listing1").Return(listing, nil)
		m.ledger.On("Balance", ctx, "user1").Return(int64(1000), nil)
		m.inventory.On("ReserveOrSell", ctx, "listing1", models.ListingSold).Return(true, nil)
		m.ledger.On("Debit", mock.Anything, "user1", int64(600)).Return(true, nil)
		m.txlog.On("Append", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
			return tx.Type == models.TransactionPurchase &&
				tx.Status == models.TransactionCompleted &&
				tx.Amount == 600 &&
				tx.Metadata.String("listing_id") == "listing1" &&
				tx.Metadata.String("username") == "travel.daily"
		})).Return("tx1", nil)
		m.sealer.On("Open", "sealed").Return([]models.CredentialField{{Name: "Password", Value: "hunter2"}}, nil)
		m.messages.On("Deliver", mock.Anything, "user1", "instagram Account Purchased - @travel.daily",
			mock.MatchedBy(func(content string) bool {
				return assert.Contains(t, content, "Password: hunter2") &&
					assert.Contains(t, content, "Followers: 12,500") &&
					assert.Contains(t, content, "Support: @Ultrabase1")
			}), models.MessageCredential).Return("msg1", nil)

		result, err := service.Purchase(ctx, buyer, "listing1")

		require.NoError(t, err)
		assert.Equal(t, "tx1", result.TransactionID)
		assert.Equal(t, "msg1", result.MessageID)
		assert.NoError(t, result.DeliveryErr)

		select {
		case event := <-m.notifier.events:
			assert.Equal(t, notify.EventPurchase, event.Type)
			assert.Equal(t, int64(600), event.Amount)
		case <-time.After(time.Second):
			t.Fatal("purchase notification not sent")
		}

		m.inventory.AssertExpectations(t)
		m.ledger.AssertExpectations(t)
		m.txlog.AssertExpectations(t)
		m.messages.AssertExpectations(t)
	})

	t.Run("unauthenticated caller", func(t *testing.T) {
		service, m := newMockedPurchaseService()

		_, err := service.Purchase(ctx, models.Identity{}, "listing1")
		assert.ErrorIs(t, err, ErrUnauthorized)
		m.inventory.AssertNotCalled(t, "GetActive", mock.Anything, mock.Anything)
	})

	t.Run("listing sold out", func(t *testing.T) {
		service, m := newMockedPurchaseService()
		m.inventory.On("GetActive", ctx, "listing1").Return(nil, store.ErrNotFound)

		_, err := service.Purchase(ctx, buyer, "listing1")
		assert.ErrorIs(t, err, ErrNotFound)
		m.inventory.AssertNotCalled(t, "ReserveOrSell", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient balance moves nothing", func(t *testing.T) {
		service, m := newMockedPurchaseService()
		m.inventory.On("GetActive", ctx, "listing1").Return(testListing(), nil)
		m.ledger.On("Balance", ctx, "user1").Return(int64(599), nil)

		_, err := service.Purchase(ctx, buyer, "listing1")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		m.inventory.AssertNotCalled(t, "ReserveOrSell", mock.Anything, mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost race", func(t *testing.T) {
		service, m := newMockedPurchaseService()
		m.inventory.On("GetActive", ctx, "listing1").Return(testListing(), nil)
		m.ledger.On("Balance", ctx, "user1").Return(int64(1000), nil)
		m.inventory.On("ReserveOrSell", ctx, "listing1", models.ListingSold).Return(false, nil)

		_, err := service.Purchase(ctx, buyer, "listing1")
		assert.ErrorIs(t, err, ErrConflict)
		m.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
		m.txlog.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("delivery failure is not fatal", func(t *testing.T) {
		service, m := newMockedPurchaseService()
		m.inventory.On("GetActive", ctx, "listing1").Return(testListing(), nil)
		m.ledger.On("Balance", ctx, "user1").Return(int64(1000), nil)
		m.inventory.On("ReserveOrSell", ctx, "listing1", models.ListingSold).Return(true, nil)
		m.ledger.On("Debit", mock.Anything, "user1", int64(600)).Return(true, nil)
		m.txlog.On("Append", mock.Anything, mock.Anything).Return("tx1", nil)
		m.sealer.On("Open", "sealed").Return(nil, errors.New("bad key"))
		m.messages.On("Deliver", mock.Anything, "user1", mock.Anything,
			mock.MatchedBy(func(content string) bool {
				return assert.Contains(t, content, missingCredentialsText)
			}), models.MessageCredential).Return("", errors.New("db down"))

		result, err := service.Purchase(ctx, buyer, "listing1")

		require.NoError(t, err)
		assert.Equal(t, "tx1", result.TransactionID)
		assert.ErrorIs(t, result.DeliveryErr, ErrDeliveryFailed)
		m.messages.AssertNumberOfCalls(t, "Deliver", testPurchaseConfig.DeliveryAttempts)
		m.inventory.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPurchaseService_Compensation(t *testing.T) {
	ctx := context.Background()

	setup := func() (*PurchaseService, *purchaseMocks) {
		service, m := newMockedPurchaseService()
		m.inventory.On("GetActive", ctx, "listing1").Return(testListing(), nil)
		m.ledger.On("Balance", ctx, "user1").Return(int64(1000), nil)
		m.inventory.On("ReserveOrSell", ctx, "listing1", models.ListingSold).Return(true, nil)
		return service, m
	}

	t.Run("debit refused, listing released", func(t *testing.T) {
		service, m := setup()
		m.ledger.On("Debit", mock.Anything, "user1", int64(600)).Return(false, nil)
		m.inventory.On("Release", mock.Anything, "listing1", models.ListingSold).Return(true, nil)

		_, err := service.Purchase(ctx, buyer, "listing1")

		assert.ErrorIs(t, err, ErrPaymentFailed)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NotErrorIs(t, err, ErrReconciliationRequired)
		m.txlog.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		m.messages.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("release retried until it succeeds", func(t *testing.T) {
		service, m := setup()
		m.ledger.On("Debit", mock.Anything, "user1", int64(600)).Return(false, errors.New("connection reset"))
		m.inventory.On("Release", mock.Anything, "listing1", models.ListingSold).Return(false, errors.New("timeout")).Once()
		m.inventory.On("Release", mock.Anything, "listing1", models.ListingSold).Return(true, nil).Once()

		_, err := service.Purchase(ctx, buyer, "listing1")

		assert.ErrorIs(t, err, ErrPaymentFailed)
		assert.NotErrorIs(t, err, ErrReconciliationRequired)
		m.inventory.AssertNumberOfCalls(t, "Release", 2)
	})

	t.Run("release fails, escalated for reconciliation", func(t *testing.T) {
		service, m := setup()
		m.ledger.On("Debit", mock.Anything, "user1", int64(600)).Return(false, errors.New("connection reset"))
		m.inventory.On("Release", mock.Anything, "listing1", models.ListingSold).Return(false, errors.New("db down"))
		m.txlog.On("Append", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
			return tx.Status == models.TransactionFailed &&
				tx.Metadata.String("reconciliation") == "required" &&
				tx.Metadata.String("listing_id") == "listing1"
		})).Return("tx-failed", nil)

		_, err := service.Purchase(ctx, buyer, "listing1")

		assert.ErrorIs(t, err, ErrReconciliationRequired)
		assert.ErrorIs(t, err, ErrPaymentFailed)
		m.inventory.AssertNumberOfCalls(t, "Release", testPurchaseConfig.CompensationAttempts)
		m.txlog.AssertExpectations(t)
	})
}

type purchaseFixture struct {
	db        *sql.DB
	service   *PurchaseService
	ledger    *store.LedgerStore
	inventory *store.InventoryStore
	txlog     *store.TransactionLog
	messages  *store.MessageStore
	vault     *vault.Vault
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	v, err := vault.New(vault.Config{MasterKey: "test-master", Salt: "test-salt"})
	require.NoError(t, err)

	f := &purchaseFixture{
		db:        db,
		ledger:    store.NewLedgerStore(db),
		inventory: store.NewInventoryStore(db),
		txlog:     store.NewTransactionLog(db),
		messages:  store.NewMessageStore(db),
		vault:     v,
	}
	f.service = NewPurchaseService(f.inventory, f.ledger, f.txlog, f.messages, v, notify.Nop{},
		audit.NewLoggerTo(io.Discard), testPurchaseConfig, []string{"@Ultrabase1", "@Ultrabase2"})
	return f
}

func (f *purchaseFixture) listing(t *testing.T, price int64) *models.Listing {
	t.Helper()
	sealed, err := f.vault.Seal([]models.CredentialField{{Name: "Password", Value: "s3cret"}})
	require.NoError(t, err)

	listing := &models.Listing{Platform: "tiktok", Username: "dance.world", Followers: 5000, Price: price, Credentials: sealed, CreatedBy: "admin"}
	require.NoError(t, f.inventory.Create(context.Background(), listing))
	return listing
}

func TestPurchaseService_CompletesPurchase(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Credit(ctx, "user1", 1000)
	require.NoError(t, err)
	listing := f.listing(t, 600)

	result, err := f.service.Purchase(ctx, buyer, listing.ID)
	require.NoError(t, err)
	require.NoError(t, result.DeliveryErr)

	balance, err := f.ledger.Balance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)

	got, err := f.inventory.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, got.Status)

	transactions, err := f.txlog.ListByUser(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TransactionPurchase, transactions[0].Type)
	assert.Equal(t, int64(600), transactions[0].Amount)
	assert.Equal(t, models.TransactionCompleted, transactions[0].Status)

	messages, err := f.messages.ListByUser(ctx, "user1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, result.MessageID, messages[0].ID)
	assert.Contains(t, messages[0].Content, "Password: s3cret")

	_, err = f.service.Purchase(ctx, buyer, listing.ID)
	assert.ErrorIs(t, err, ErrNotFound, "a sold listing cannot be bought again")
}

func TestPurchaseService_RacingBuyers(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	buyers := []models.Identity{{UserID: "alice"}, {UserID: "bob"}}
	for _, b := range buyers {
		_, err := f.ledger.Credit(ctx, b.UserID, 800)
		require.NoError(t, err)
	}
	listing := f.listing(t, 500)

	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b models.Identity) {
			defer wg.Done()
			_, errs[i] = f.service.Purchase(ctx, b, listing.ID)
		}(i, b)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		balance, balErr := f.ledger.Balance(ctx, buyers[i].UserID)
		require.NoError(t, balErr)

		if err == nil {
			winners++
			assert.Equal(t, int64(300), balance)
			continue
		}
		// the loser either lost the reservation or saw the listing already sold
		assert.True(t, errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound), "unexpected error %v", err)
		assert.Equal(t, int64(800), balance)
	}
	assert.Equal(t, 1, winners)

	got, err := f.inventory.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, got.Status)

	completed, err := f.txlog.ListByStatus(ctx, models.TransactionCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

// gatedInventory holds every GetActive caller until all of them have loaded
// the listing, so each buyer reaches the reservation step.
type gatedInventory struct {
	*store.InventoryStore
	loaded *sync.WaitGroup
}

func (g *gatedInventory) GetActive(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := g.InventoryStore.GetActive(ctx, id)
	g.loaded.Done()
	g.loaded.Wait()
	return listing, err
}

func TestPurchaseService_RacingBuyersLoseReservation(t *testing.T) {
	f := newPurchaseFixture(t)
	ctx := context.Background()

	buyers := []models.Identity{{UserID: "alice"}, {UserID: "bob"}}
	for _, b := range buyers {
		_, err := f.ledger.Credit(ctx, b.UserID, 800)
		require.NoError(t, err)
	}
	listing := f.listing(t, 500)

	var loaded sync.WaitGroup
	loaded.Add(len(buyers))
	service := NewPurchaseService(&gatedInventory{InventoryStore: f.inventory, loaded: &loaded},
		f.ledger, f.txlog, f.messages, f.vault, notify.Nop{}, audit.NewLoggerTo(io.Discard),
		testPurchaseConfig, []string{"@Ultrabase1"})

	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b models.Identity) {
			defer wg.Done()
			_, errs[i] = service.Purchase(ctx, b, listing.ID)
		}(i, b)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for i, err := range errs {
		balance, balErr := f.ledger.Balance(ctx, buyers[i].UserID)
		require.NoError(t, balErr)

		switch {
		case err == nil:
			winners++
			assert.Equal(t, int64(300), balance)
		case errors.Is(err, ErrConflict):
			conflicts++
			assert.Equal(t, int64(800), balance)
		default:
			t.Errorf("buyer %s: unexpected error %v", buyers[i].UserID, err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, conflicts)

	got, err := f.inventory.Get(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, got.Status)

	all, err := f.txlog.ListByStatus(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retry(context.Background(), 0, 0, func() error {
		calls++
		return errors.New("permanent")
	})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 1, calls)
}
