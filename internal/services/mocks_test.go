package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/notify"
	"github.com/ucmarket/backend/internal/paystack"
)

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) GetActive(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockInventory) Get(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockInventory) ReserveOrSell(ctx context.Context, id string, target models.ListingStatus) (bool, error) {
	args := m.Called(ctx, id, target)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventory) Release(ctx context.Context, id string, from models.ListingStatus) (bool, error) {
	args := m.Called(ctx, id, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventory) Create(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockInventory) UpdateStatus(ctx context.Context, id string, status models.ListingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockInventory) SetCredentials(ctx context.Context, id, sealed string) error {
	args := m.Called(ctx, id, sealed)
	return args.Error(0)
}

func (m *MockInventory) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, userID string, amount int64) (bool, error) {
	args := m.Called(ctx, userID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) Balance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockTransactionLog struct {
	mock.Mock
}

func (m *MockTransactionLog) Append(ctx context.Context, entry *models.Transaction) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockTransactionLog) Get(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionLog) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionLog) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockTransactionLog) ListByStatus(ctx context.Context, status models.TransactionStatus, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockTransactionLog) Resolve(ctx context.Context, id string, status models.TransactionStatus, note string) (bool, error) {
	args := m.Called(ctx, id, status, note)
	return args.Bool(0), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Deliver(ctx context.Context, userID, title, content string, msgType models.MessageType) (string, error) {
	args := m.Called(ctx, userID, title, content, msgType)
	return args.String(0), args.Error(1)
}

func (m *MockMessageStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageStore) MarkRead(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockMessageStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSealer struct {
	mock.Mock
}

func (m *MockSealer) Seal(fields []models.CredentialField) (string, error) {
	args := m.Called(fields)
	return args.String(0), args.Error(1)
}

func (m *MockSealer) Open(sealed string) ([]models.CredentialField, error) {
	args := m.Called(sealed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CredentialField), args.Error(1)
}

type MockStats struct {
	mock.Mock
}

func (m *MockStats) Snapshot(ctx context.Context, since time.Time) (*models.AdminStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminStats), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.InitializeResponse), args.Error(1)
}

func (m *MockProvider) VerifyTransaction(ctx context.Context, reference string) (*paystack.Charge, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.Charge), args.Error(1)
}

// recordingNotifier captures events sent through notify.Dispatch.
type recordingNotifier struct {
	events chan notify.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(chan notify.Event, 16)}
}

func (r *recordingNotifier) Notify(ctx context.Context, event notify.Event) error {
	r.events <- event
	return nil
}
