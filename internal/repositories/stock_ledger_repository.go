package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/fleet-service/internal/models"
)

// LedgerFilter narrows ledger listings; zero values mean "any".
type LedgerFilter struct {
	Kind     models.UnitKind
	Category string
	From     time.Time
	To       time.Time
}

type StockLedgerRepository interface {
	// Increment adds one to the bucket, creating it at 1 when absent, and
	// returns the new quantity.
	Increment(ctx context.Context, key models.StockLedgerKey) (int, error)
	// Decrement removes one from the bucket and returns the new quantity.
	// found is false when the bucket does not exist or is already empty.
	Decrement(ctx context.Context, key models.StockLedgerKey) (qty int, found bool, err error)
	// DeleteIfEmpty drops the bucket once its quantity is zero.
	DeleteIfEmpty(ctx context.Context, key models.StockLedgerKey) error

	Get(ctx context.Context, key models.StockLedgerKey) (*models.StockLedgerEntry, error)
	List(ctx context.Context, f LedgerFilter) ([]*models.StockLedgerEntry, error)
}

type stockLedgerRepo struct {
	db DB
}

func NewStockLedgerRepository(db DB) StockLedgerRepository {
	return &stockLedgerRepo{db: db}
}

func (r *stockLedgerRepo) Increment(ctx context.Context, key models.StockLedgerKey) (int, error) {
	var qty int
	err := r.db.QueryRow(ctx, `
		INSERT INTO stock_ledger_entries (unit_kind, bucket_date, category, quantity, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (unit_kind, bucket_date, category)
		DO UPDATE SET quantity = stock_ledger_entries.quantity + 1, updated_at = NOW()
		RETURNING quantity
	`, string(key.Kind), key.BucketDate, key.Category).Scan(&qty)
	return qty, err
}

func (r *stockLedgerRepo) Decrement(ctx context.Context, key models.StockLedgerKey) (int, bool, error) {
	var qty int
	err := r.db.QueryRow(ctx, `
		UPDATE stock_ledger_entries
		SET quantity = quantity - 1, updated_at = NOW()
		WHERE unit_kind=$1 AND bucket_date=$2 AND category=$3 AND quantity > 0
		RETURNING quantity
	`, string(key.Kind), key.BucketDate, key.Category).Scan(&qty)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}

func (r *stockLedgerRepo) DeleteIfEmpty(ctx context.Context, key models.StockLedgerKey) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM stock_ledger_entries
		WHERE unit_kind=$1 AND bucket_date=$2 AND category=$3 AND quantity <= 0
	`, string(key.Kind), key.BucketDate, key.Category)
	return err
}

func (r *stockLedgerRepo) Get(ctx context.Context, key models.StockLedgerKey) (*models.StockLedgerEntry, error) {
	row := r.db.QueryRow(ctx, baseSelectLedger()+" WHERE unit_kind=$1 AND bucket_date=$2 AND category=$3",
		string(key.Kind), key.BucketDate, key.Category)
	return scanLedgerEntry(row)
}

func (r *stockLedgerRepo) List(ctx context.Context, f LedgerFilter) ([]*models.StockLedgerEntry, error) {
	var w where
	if f.Kind != "" {
		w.add("unit_kind=?", string(f.Kind))
	}
	if f.Category != "" {
		w.add("category=?", f.Category)
	}
	if !f.From.IsZero() {
		w.add("bucket_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add("bucket_date <= ?", f.To)
	}

	rows, err := r.db.Query(ctx, baseSelectLedger()+w.sql()+" ORDER BY bucket_date DESC, unit_kind, category", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StockLedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func baseSelectLedger() string {
	return `
		SELECT id, unit_kind, bucket_date, category, quantity, updated_at
		FROM stock_ledger_entries`
}

func scanLedgerEntry(row pgx.Row) (*models.StockLedgerEntry, error) {
	var e models.StockLedgerEntry
	if err := row.Scan(&e.ID, &e.Kind, &e.BucketDate, &e.Category, &e.Quantity, &e.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
