package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
)

// Store groups the repositories that one unit of work needs.
type Store interface {
	Devices() DeviceRepository
	Sims() SimRepository
	StockLedger() StockLedgerRepository
	Boitiers() BoitierRepository
	Subscriptions() SubscriptionRepository
	Vehicles() VehicleRepository
	Clients() ClientRepository
}

// UnitOfWork is a Store that can scope a function to one transaction.
// Inside fn, the Store passed in must be used for every read and write.
type UnitOfWork interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db            DB
	devices       DeviceRepository
	sims          SimRepository
	ledger        StockLedgerRepository
	boitiers      BoitierRepository
	subscriptions SubscriptionRepository
	vehicles      VehicleRepository
	clients       ClientRepository
}

func newPGStore(db DB) *pgStore {
	return &pgStore{
		db:            db,
		devices:       NewDeviceRepository(db),
		sims:          NewSimRepository(db),
		ledger:        NewStockLedgerRepository(db),
		boitiers:      NewBoitierRepository(db),
		subscriptions: NewSubscriptionRepository(db),
		vehicles:      NewVehicleRepository(db),
		clients:       NewClientRepository(db),
	}
}

func (s *pgStore) Devices() DeviceRepository             { return s.devices }
func (s *pgStore) Sims() SimRepository                   { return s.sims }
func (s *pgStore) StockLedger() StockLedgerRepository    { return s.ledger }
func (s *pgStore) Boitiers() BoitierRepository           { return s.boitiers }
func (s *pgStore) Subscriptions() SubscriptionRepository { return s.subscriptions }
func (s *pgStore) Vehicles() VehicleRepository           { return s.vehicles }
func (s *pgStore) Clients() ClientRepository             { return s.clients }

type pgUnitOfWork struct {
	*pgStore
	pool TxBeginner
}

// NewUnitOfWork builds the Postgres-backed UnitOfWork.
func NewUnitOfWork(pool TxBeginner) UnitOfWork {
	return &pgUnitOfWork{pgStore: newPGStore(pool), pool: pool}
}

func (u *pgUnitOfWork) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()
	return fn(newPGStore(tx))
}
