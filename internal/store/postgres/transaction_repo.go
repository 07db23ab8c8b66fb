package postgres

import (
	"context"
	"fmt"

	"github.com/LakeLink/WE/internal/domain/model"
)

type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Save archives records keyed by serial. Replays of already-archived
// serials are no-ops, so the watcher can hand over every record newer than
// the previous mark without tracking what was stored before.
func (r *TransactionRepo) Save(ctx context.Context, records []model.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		serial, err := rec.Serial()
		if err != nil {
			return fmt.Errorf("archive record: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (serial, type, posted_at, deal_time, merchant_address, fee_name, amount, balance_after, business_name, account_name, e_wallet_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (serial) DO NOTHING
		`, serial, rec.Type, rec.Time, rec.DealTime, rec.MerchantAddress, rec.FeeName,
			rec.Amount, rec.BalanceAfter, rec.BusinessName, rec.AccountName, rec.EWalletID)
		if err != nil {
			return fmt.Errorf("insert transaction %d: %w", serial, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// CountSince returns the number of archived transactions with serials
// strictly greater than the given one.
func (r *TransactionRepo) CountSince(ctx context.Context, serial int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM transactions WHERE serial > $1
	`, serial).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count archived transactions: %w", err)
	}
	return n, nil
}

// MaxSerial returns the highest archived serial, or 0 when the archive is
// empty.
func (r *TransactionRepo) MaxSerial(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT coalesce(max(serial), 0) FROM transactions
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max archived serial: %w", err)
	}
	return n, nil
}
