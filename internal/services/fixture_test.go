package services

import (
	"context"
	"testing"
	"time"

	"github.com/poofware/fleet-service/internal/config"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/testhelpers"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/stretchr/testify/require"
)

var fixedToday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

const testAuth = "Bearer test-session"

type fixture struct {
	uow       *testhelpers.MemUnitOfWork
	gw        *testhelpers.FakeGateway
	cfg       *config.Config
	machine   *InventoryStateMachine
	inventory *InventoryService
	boitiers  *BoitierService
	vehicles  *VehicleService
	subs      *SubscriptionService
	ledger    *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{AppName: "fleet-service-test", Location: time.UTC}
	uow := testhelpers.NewMemUnitOfWork(fixedToday.Add(9 * time.Hour))
	gw := &testhelpers.FakeGateway{}
	machine := NewInventoryStateMachine(time.UTC)

	f := &fixture{
		uow:       uow,
		gw:        gw,
		cfg:       cfg,
		machine:   machine,
		inventory: NewInventoryService(cfg, uow, machine),
		boitiers:  NewBoitierService(cfg, uow, machine, gw),
		vehicles:  NewVehicleService(cfg, uow, machine, gw),
		subs:      NewSubscriptionService(cfg, uow, gw, nil),
		ledger:    NewLedgerService(uow.StockLedger()),
	}
	today := func() time.Time { return fixedToday }
	f.boitiers.today, f.vehicles.today, f.subs.today = today, today, today
	return f
}

func days(n int) time.Time { return fixedToday.AddDate(0, 0, n) }

func (f *fixture) client(t *testing.T) int64 {
	t.Helper()
	c := &models.Client{Name: "Acme Logistics"}
	require.NoError(t, f.uow.Clients().Create(context.Background(), c))
	return c.ID
}

func (f *fixture) stockDevice(t *testing.T, imei string) *models.Device {
	t.Helper()
	d, err := f.inventory.CreateDevice(context.Background(), &models.Device{IMEI: imei, DeviceType: "FMB920"})
	require.NoError(t, err)
	return d
}

func (f *fixture) stockSim(t *testing.T, iccid, phone string) *models.Sim {
	t.Helper()
	s, err := f.inventory.CreateSim(context.Background(), &models.Sim{ICCID: iccid, Phone: phone, Operator: "Orange"})
	require.NoError(t, err)
	return s
}

// boitier creates a boitier from fresh stock units, valid for 60 days.
func (f *fixture) boitier(t *testing.T, n int) int64 {
	t.Helper()
	d := f.stockDevice(t, "35693803564380"+string(rune('0'+n)))
	s := f.stockSim(t, "893301000000000000"+string(rune('0'+n)), "+3360000000"+string(rune('0'+n)))
	resp, err := f.boitiers.Create(context.Background(), BoitierInput{
		DeviceID: d.ID, SimID: s.ID, StartDate: fixedToday, EndDate: days(60),
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) device(t *testing.T, id int64) *models.Device {
	t.Helper()
	d, err := f.uow.Devices().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func (f *fixture) sim(t *testing.T, id int64) *models.Sim {
	t.Helper()
	s, err := f.uow.Sims().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (f *fixture) ledgerQty(t *testing.T, kind models.UnitKind, category string) int {
	t.Helper()
	e, err := f.uow.StockLedger().Get(context.Background(), models.StockLedgerKey{
		Kind: kind, BucketDate: utils.DateOf(fixedToday), Category: category,
	})
	require.NoError(t, err)
	if e == nil {
		return 0
	}
	return e.Quantity
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, utils.HasCode(err, code), "want %s, got %v", code, err)
}
