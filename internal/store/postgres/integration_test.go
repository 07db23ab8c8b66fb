//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LakeLink/WE/internal/domain/model"
	"github.com/LakeLink/WE/internal/store/postgres"
)

// testDB returns an archive DB backed by TEST_DB_URL when set, otherwise by
// an ephemeral testcontainers PostgreSQL.
func testDB(t *testing.T) *postgres.DB {
	t.Helper()
	if url := os.Getenv("TEST_DB_URL"); url != "" {
		db, err := postgres.New(postgres.Config{
			URL:             url,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	}
	return setupTestContainer(t)
}

func archiveRecord(serial, amount string) model.TransactionRecord {
	return model.TransactionRecord{
		SerialNo:        serial,
		Amount:          amount,
		MerchantAddress: "canteen",
		FeeName:         "lunch",
		DealTime:        "2025-05-08 12:01:02",
		BalanceAfter:    "82.50",
	}
}

func TestTransactionRepo_SaveAndQuery(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	err := repo.Save(ctx, []model.TransactionRecord{
		archiveRecord("101", "1.00"),
		archiveRecord("103", "3.00"),
	})
	require.NoError(t, err)

	max, err := repo.MaxSerial(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(103), max)

	n, err := repo.CountSince(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionRepo_SaveIdempotent(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()

	batch := []model.TransactionRecord{archiveRecord("201", "2.00")}
	require.NoError(t, repo.Save(ctx, batch))
	require.NoError(t, repo.Save(ctx, batch))

	n, err := repo.CountSince(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionRepo_SaveRejectsBadSerial(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)

	err := repo.Save(context.Background(), []model.TransactionRecord{
		archiveRecord("not-a-number", "1.00"),
	})
	require.Error(t, err)
}

func TestTransactionRepo_EmptyBatchIsNoop(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	require.NoError(t, repo.Save(context.Background(), nil))
}

func TestTransactionRepo_MaxSerialEmptyArchive(t *testing.T) {
	if os.Getenv("TEST_DB_URL") != "" {
		t.Skip("needs an empty archive, only meaningful against an ephemeral container")
	}
	db := setupTestContainer(t)
	repo := postgres.NewTransactionRepo(db)

	max, err := repo.MaxSerial(context.Background())
	require.NoError(t, err)
	assert.Zero(t, max)
}
