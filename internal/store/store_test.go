package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucmarket/backend/internal/database"
	"github.com/ucmarket/backend/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func seedListing(t *testing.T, db *sql.DB, price int64) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		Platform:  "instagram",
		Username:  "travel.daily",
		Followers: 12000,
		Price:     price,
		CreatedBy: "admin-1",
	}
	require.NoError(t, NewInventoryStore(db).Create(context.Background(), listing))
	return listing
}
