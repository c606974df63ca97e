package models

import "time"

// StockLedgerKey identifies one ledger bucket: the arrival day of a unit
// plus its category (operator or device type).
type StockLedgerKey struct {
	Kind       UnitKind
	BucketDate time.Time
	Category   string
}

// StockLedgerEntry counts unit arrivals for one bucket, net of removals.
type StockLedgerEntry struct {
	ID         int64     `json:"id"`
	Kind       UnitKind  `json:"unit_kind"`
	BucketDate time.Time `json:"bucket_date"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (e *StockLedgerEntry) Key() StockLedgerKey {
	return StockLedgerKey{Kind: e.Kind, BucketDate: e.BucketDate, Category: e.Category}
}
