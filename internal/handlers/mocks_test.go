package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/ucmarket/backend/internal/middleware"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/services"
)

var (
	buyer = models.Identity{UserID: "user1", Email: "buyer@example.com"}
	admin = models.Identity{UserID: "admin1", Email: "admin@example.com", Role: models.RoleAdmin}
)

func withIdentity(r *http.Request, identity models.Identity) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), identity))
}

type MockPurchaser struct {
	mock.Mock
}

func (m *MockPurchaser) Purchase(ctx context.Context, buyer models.Identity, listingID string) (*services.PurchaseResult, error) {
	args := m.Called(ctx, buyer, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PurchaseResult), args.Error(1)
}

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) Initialize(ctx context.Context, user models.Identity, naira decimal.Decimal) (*services.DepositSession, error) {
	args := m.Called(ctx, user, naira)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DepositSession), args.Error(1)
}

func (m *MockPayments) HandleWebhook(ctx context.Context, body []byte, signature, remoteAddr string) (*services.DepositResult, error) {
	args := m.Called(ctx, body, signature, remoteAddr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DepositResult), args.Error(1)
}

type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Balance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWallet) Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockWallet) Inbox(ctx context.Context, userID string, limit int) (*services.Inbox, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Inbox), args.Error(1)
}

func (m *MockWallet) MarkRead(ctx context.Context, userID, messageID string) error {
	return m.Called(ctx, userID, messageID).Error(0)
}

func (m *MockWallet) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) CreateListing(ctx context.Context, admin models.Identity, input services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, admin, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockAdmin) UpdateListingStatus(ctx context.Context, admin models.Identity, id string, status models.ListingStatus) error {
	return m.Called(ctx, admin, id, status).Error(0)
}

func (m *MockAdmin) ReplaceCredentials(ctx context.Context, admin models.Identity, id string, fields []models.CredentialField) error {
	return m.Called(ctx, admin, id, fields).Error(0)
}

func (m *MockAdmin) DeleteListing(ctx context.Context, admin models.Identity, id string) error {
	return m.Called(ctx, admin, id).Error(0)
}

func (m *MockAdmin) ListTransactions(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockAdmin) ResolveTransaction(ctx context.Context, admin models.Identity, id string, status models.TransactionStatus, note string) error {
	return m.Called(ctx, admin, id, status, note).Error(0)
}

func (m *MockAdmin) VerifyDeposit(ctx context.Context, admin models.Identity, reference string) (*services.DepositResult, error) {
	args := m.Called(ctx, admin, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DepositResult), args.Error(1)
}

func (m *MockAdmin) RedeliverCredentials(ctx context.Context, admin models.Identity, transactionID string) (string, error) {
	args := m.Called(ctx, admin, transactionID)
	return args.String(0), args.Error(1)
}

func (m *MockAdmin) Stats(ctx context.Context) (*models.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminStats), args.Error(1)
}
