//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceKey(d *models.Device) models.StockLedgerKey {
	return models.StockLedgerKey{Kind: models.UnitKindDevice, BucketDate: utils.DateOf(d.CreatedAt.In(cfg.Location)), Category: d.DeviceType}
}

func ledgerQty(t *testing.T, key models.StockLedgerKey) int {
	t.Helper()
	e, err := uow.StockLedger().Get(context.Background(), key)
	require.NoError(t, err)
	if e == nil {
		return 0
	}
	return e.Quantity
}

func TestInventoryLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	client := &models.Client{Name: "Transports Martin", Email: "ops@martin.example", Phone: "+33100000000"}
	require.NoError(t, uow.Clients().Create(ctx, client))

	// create: both units land in stock and in the ledger
	d, err := s.inventory.CreateDevice(ctx, &models.Device{IMEI: "356938035640001", DeviceType: "FMB920"})
	require.NoError(t, err)
	sim, err := s.inventory.CreateSim(ctx, &models.Sim{ICCID: "8933010000000040001", Phone: "+33640000001", Operator: "Orange"})
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusNonInstalled, d.Status)
	assert.Equal(t, 1, ledgerQty(t, deviceKey(d)))

	// pair
	b, err := s.boitiers.Create(ctx, services.BoitierInput{
		DeviceID: d.ID, SimID: sim.ID,
		StartDate: today(), EndDate: today().AddDate(0, 2, 0),
	})
	require.NoError(t, err)
	got, err := uow.Devices().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusPending, got.Status)
	require.NotNil(t, got.BoitierID)
	assert.Equal(t, b.ID, *got.BoitierID)
	assert.Equal(t, 1, ledgerQty(t, deviceKey(d)), "pairing leaves the ledger alone")

	// assign
	v, err := s.vehicles.Assign(ctx, testAuth, services.VehicleInput{
		Matricule: "AB-123-CD", ClientID: client.ID, VehicleType: "truck", BoitierIDs: []int64{b.ID},
	})
	require.NoError(t, err)
	require.Len(t, v.Boitiers, 1)
	assert.NotNil(t, v.Boitiers[0].TraccarID)
	gotSim, err := uow.Sims().GetByID(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusInstalled, gotSim.Status)

	// delete: units go back to stock and the boitier row goes away
	require.NoError(t, s.vehicles.Delete(ctx, testAuth, v.ID, false))
	gone, err := uow.Boitiers().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	subs, err := uow.Subscriptions().ListByBoitierID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	got, err = uow.Devices().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusNonInstalled, got.Status)
	assert.Nil(t, got.BoitierID)

	// remove: the last unit of the bucket drops the ledger row
	require.NoError(t, s.inventory.RemoveDevice(ctx, d.ID))
	require.NoError(t, s.inventory.RemoveSim(ctx, sim.ID))
	assert.Equal(t, 0, ledgerQty(t, deviceKey(d)))
	left, err := uow.StockLedger().List(ctx, repositories.LedgerFilter{})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLedgerUpsertUnderConcurrentArrivals(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	day := today().Add(10 * time.Hour)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.inventory.CreateDevice(ctx, &models.Device{
				IMEI: fmt.Sprintf("35693803565%04d", i), DeviceType: "FMB140", CreatedAt: day,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	key := models.StockLedgerKey{Kind: models.UnitKindDevice, BucketDate: utils.DateOf(day), Category: "FMB140"}
	assert.Equal(t, n, ledgerQty(t, key))
	rows, err := uow.StockLedger().List(ctx, repositories.LedgerFilter{Kind: models.UnitKindDevice})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "one bucket row per key")
}

func TestLedgerListDateFilter(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	base := today()

	for i, offset := range []int{-10, -3, 0} {
		_, err := s.inventory.CreateDevice(ctx, &models.Device{
			IMEI: fmt.Sprintf("35693803566%04d", i), DeviceType: "FMB920", CreatedAt: base.AddDate(0, 0, offset).Add(8 * time.Hour),
		})
		require.NoError(t, err)
	}

	rows, err := uow.StockLedger().List(ctx, repositories.LedgerFilter{From: base.AddDate(0, 0, -5), To: base.AddDate(0, 0, -1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, base.AddDate(0, 0, -3).Equal(utils.DateOf(rows[0].BucketDate)))

	rows, err = uow.StockLedger().List(ctx, repositories.LedgerFilter{From: base.AddDate(0, 0, -5)})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGuardedStatusUpdate(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	d, err := s.inventory.CreateDevice(ctx, &models.Device{IMEI: "356938035670001", DeviceType: "FMB920"})
	require.NoError(t, err)

	tag, err := uow.Devices().UpdateStatus(ctx, d.ID, []models.UnitStatus{models.UnitStatusPending}, models.UnitStatusInstalled, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tag.RowsAffected(), "status outside the guard matches nothing")

	tag, err = uow.Devices().UpdateStatus(ctx, d.ID, []models.UnitStatus{models.UnitStatusNonInstalled}, models.UnitStatusLost, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())
}

func TestCurrentEndIsLatestSubscription(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	d, err := s.inventory.CreateDevice(ctx, &models.Device{IMEI: "356938035680001", DeviceType: "FMB920"})
	require.NoError(t, err)
	sim, err := s.inventory.CreateSim(ctx, &models.Sim{ICCID: "8933010000000080001", Phone: "+33680000001", Operator: "SFR"})
	require.NoError(t, err)

	b, err := s.boitiers.Create(ctx, services.BoitierInput{
		DeviceID: d.ID, SimID: sim.ID, StartDate: today(), EndDate: today().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	_, err = s.subs.Renew(ctx, testAuth, b.ID, today().AddDate(0, 1, 0), today().AddDate(1, 0, 0))
	require.NoError(t, err)

	ends, err := uow.Subscriptions().ListCurrentEnds(ctx)
	require.NoError(t, err)
	require.Len(t, ends, 1)
	assert.Equal(t, b.ID, ends[0].BoitierID)
	assert.True(t, today().AddDate(1, 0, 0).Equal(utils.DateOf(ends[0].EndDate)))
}

func TestUniqueViolationsAreConflicts(t *testing.T) {
	newStack(t)
	ctx := context.Background()

	client := &models.Client{Name: "Dupont SA", Email: "ops@dupont.example", Phone: "+33100000001"}
	require.NoError(t, uow.Clients().Create(ctx, client))
	require.NoError(t, uow.Vehicles().Create(ctx, &models.Vehicle{Matricule: "ZZ-999-ZZ", ClientID: client.ID, VehicleType: "van"}))

	err := uow.Vehicles().Create(ctx, &models.Vehicle{Matricule: "ZZ-999-ZZ", ClientID: client.ID, VehicleType: "van"})
	require.Error(t, err)
	assert.True(t, repositories.IsUniqueViolation(err))

	err = uow.Devices().Create(ctx, &models.Device{IMEI: "356938035690001", DeviceType: "FMB920", Status: models.UnitStatusNonInstalled, BoitierID: utils.Ptr[int64](0)})
	require.Error(t, err, "a dangling boitier link is rejected")
	assert.False(t, repositories.IsUniqueViolation(err))
}
