package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ucmarket/backend/internal/middleware"
	"github.com/ucmarket/backend/internal/models"
	"github.com/ucmarket/backend/internal/services"
)

func adminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequireAdmin)
	r.Post("/admin/listings", h.CreateListing)
	r.Put("/admin/listings/{id}/status", h.UpdateListingStatus)
	r.Put("/admin/listings/{id}/credentials", h.ReplaceCredentials)
	r.Delete("/admin/listings/{id}", h.DeleteListing)
	r.Get("/admin/stats", h.Stats)
	r.Get("/admin/transactions", h.ListTransactions)
	r.Put("/admin/transactions/{id}/status", h.ResolveTransaction)
	r.Post("/admin/deposits/{reference}/verify", h.VerifyDeposit)
	r.Post("/admin/purchases/{id}/redeliver", h.RedeliverCredentials)
	return r
}

func serveAdmin(h *AdminHandler, identity models.Identity, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(w, withIdentity(req, identity))
	return w
}

func TestAdminHandler_RequiresAdmin(t *testing.T) {
	svc := new(MockAdmin)
	w := serveAdmin(NewAdminHandler(svc), buyer, http.MethodGet, "/admin/transactions", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminHandler_CreateListing(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockAdmin)
		input := services.ListingInput{
			Platform:    "Instagram",
			Username:    "fashion.daily",
			Followers:   25000,
			Price:       600,
			Credentials: []models.CredentialField{{Name: "Password", Value: "hunter2"}},
		}
		svc.On("CreateListing", mock.Anything, admin, input).Return(&models.Listing{ID: "acc-1", Platform: "Instagram", Price: 600, Status: models.ListingActive}, nil)

		w := serveAdmin(NewAdminHandler(svc), admin, http.MethodPost, "/admin/listings",
			`{"platform":"Instagram","username":"fashion.daily","followers":25000,"price":600,"credentials":[{"name":"Password","value":"hunter2"}]}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"id":"acc-1"`)
		assert.NotContains(t, w.Body.String(), "hunter2")
		svc.AssertExpectations(t)
	})

	t.Run("price required", func(t *testing.T) {
		svc := new(MockAdmin)
		w := serveAdmin(NewAdminHandler(svc), admin, http.MethodPost, "/admin/listings", `{"platform":"Instagram","username":"x"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Price")
	})
}

func TestAdminHandler_Listings(t *testing.T) {
	svc := new(MockAdmin)
	h := NewAdminHandler(svc)
	svc.On("UpdateListingStatus", mock.Anything, admin, "acc-1", models.ListingSold).Return(nil)
	svc.On("UpdateListingStatus", mock.Anything, admin, "missing", models.ListingActive).Return(services.ErrNotFound)
	svc.On("ReplaceCredentials", mock.Anything, admin, "acc-1", []models.CredentialField{{Name: "Email", Value: "a@b.c"}}).Return(nil)
	svc.On("DeleteListing", mock.Anything, admin, "acc-1").Return(nil)

	w := serveAdmin(h, admin, http.MethodPut, "/admin/listings/acc-1/status", `{"status":"sold"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serveAdmin(h, admin, http.MethodPut, "/admin/listings/missing/status", `{"status":"active"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Listing not found")

	w = serveAdmin(h, admin, http.MethodPut, "/admin/listings/acc-1/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveAdmin(h, admin, http.MethodPut, "/admin/listings/acc-1/credentials", `{"credentials":[{"name":"Email","value":"a@b.c"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serveAdmin(h, admin, http.MethodPut, "/admin/listings/acc-1/credentials", `{"credentials":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveAdmin(h, admin, http.MethodDelete, "/admin/listings/acc-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestAdminHandler_Transactions(t *testing.T) {
	svc := new(MockAdmin)
	h := NewAdminHandler(svc)
	svc.On("ListTransactions", mock.Anything, models.TransactionFailed, 100).Return([]models.Transaction{{ID: "tx-9", Status: models.TransactionFailed}}, nil)
	svc.On("ResolveTransaction", mock.Anything, admin, "tx-9", models.TransactionCompleted, "refunded by hand").Return(nil)
	svc.On("ResolveTransaction", mock.Anything, admin, "tx-done", models.TransactionFailed, "").Return(services.ErrTransactionFinal)

	w := serveAdmin(h, admin, http.MethodGet, "/admin/transactions?status=failed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tx-9")

	w = serveAdmin(h, admin, http.MethodPut, "/admin/transactions/tx-9/status", `{"status":"completed","note":"refunded by hand"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serveAdmin(h, admin, http.MethodPut, "/admin/transactions/tx-done/status", `{"status":"failed"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	svc.AssertExpectations(t)
}

func TestAdminHandler_DepositsAndRedelivery(t *testing.T) {
	svc := new(MockAdmin)
	h := NewAdminHandler(svc)
	svc.On("VerifyDeposit", mock.Anything, admin, "ucm_1").Return(&services.DepositResult{Reference: "ucm_1", Credited: 100, Status: "completed"}, nil)
	svc.On("VerifyDeposit", mock.Anything, admin, "ucm_down").Return(nil, services.ErrProviderUnavailable)
	svc.On("RedeliverCredentials", mock.Anything, admin, "tx-1").Return("msg-2", nil)
	svc.On("RedeliverCredentials", mock.Anything, admin, "tx-x").Return("", services.ErrNotFound)

	w := serveAdmin(h, admin, http.MethodPost, "/admin/deposits/ucm_1/verify", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"credited":100`)

	w = serveAdmin(h, admin, http.MethodPost, "/admin/deposits/ucm_down/verify", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = serveAdmin(h, admin, http.MethodPost, "/admin/purchases/tx-1/redeliver", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "msg-2")

	w = serveAdmin(h, admin, http.MethodPost, "/admin/purchases/tx-x/redeliver", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.AssertExpectations(t)
}

func TestAdminHandler_Stats(t *testing.T) {
	svc := new(MockAdmin)
	h := NewAdminHandler(svc)
	svc.On("Stats", mock.Anything).Return(&models.AdminStats{
		TotalAccounts:       5,
		ActiveAccounts:      3,
		SoldAccounts:        1,
		PendingAccounts:     1,
		TotalUsers:          12,
		PendingTransactions: 2,
		TodayRevenue:        450,
		TotalRevenue:        2100,
	}, nil).Once()

	w := serveAdmin(h, admin, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"total_accounts": 5,
		"active_accounts": 3,
		"sold_accounts": 1,
		"pending_accounts": 1,
		"total_users": 12,
		"pending_transactions": 2,
		"today_revenue": 450,
		"total_revenue": 2100
	}`, w.Body.String())

	w = serveAdmin(h, buyer, http.MethodGet, "/admin/stats", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	svc.On("Stats", mock.Anything).Return(nil, errors.New("database is locked")).Once()
	w = serveAdmin(h, admin, http.MethodGet, "/admin/stats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	svc.AssertExpectations(t)
}
