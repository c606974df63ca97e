package services

import (
	"context"
	"fmt"
	"time"

	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/sirupsen/logrus"
)

// ledgerKey buckets a unit by its arrival day in loc and its category.
func ledgerKey(unit models.InventoryUnit, loc *time.Location) models.StockLedgerKey {
	if loc == nil {
		loc = time.UTC
	}
	return models.StockLedgerKey{
		Kind:       unit.Kind(),
		BucketDate: utils.DateOf(unit.GetCreatedAt().In(loc)),
		Category:   unit.LedgerCategory(),
	}
}

// recordArrival adds the unit to its bucket. The upsert makes concurrent
// first arrivals on one key land in the same row.
func recordArrival(ctx context.Context, tx repositories.Store, key models.StockLedgerKey) error {
	qty, err := tx.StockLedger().Increment(ctx, key)
	if err != nil {
		return fmt.Errorf("increment stock ledger: %w", err)
	}
	utils.Logger.WithFields(ledgerFields(key)).Debugf("stock ledger bucket now %d", qty)
	return nil
}

// recordRemoval takes the unit out of its bucket and drops the bucket once
// it is empty. A missing bucket is logged, not fatal: the ledger counts
// arrivals and may predate the unit.
func recordRemoval(ctx context.Context, tx repositories.Store, key models.StockLedgerKey) error {
	qty, found, err := tx.StockLedger().Decrement(ctx, key)
	if err != nil {
		return fmt.Errorf("decrement stock ledger: %w", err)
	}
	if !found {
		utils.Logger.WithFields(ledgerFields(key)).Warn("stock ledger bucket missing or empty on removal")
		return nil
	}
	if qty <= 0 {
		if err := tx.StockLedger().DeleteIfEmpty(ctx, key); err != nil {
			return fmt.Errorf("delete empty stock ledger bucket: %w", err)
		}
	}
	return nil
}

func ledgerFields(key models.StockLedgerKey) logrus.Fields {
	return logrus.Fields{
		"unit_kind":   key.Kind,
		"bucket_date": key.BucketDate.Format(utils.DateLayout),
		"category":    key.Category,
	}
}
