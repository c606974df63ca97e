package services

import (
	"context"
	"testing"

	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_EntersStockAndLedger(t *testing.T) {
	f := newFixture(t)

	d := f.stockDevice(t, "356938035643801")
	assert.Equal(t, models.UnitStatusNonInstalled, d.Status)
	assert.Nil(t, d.BoitierID)
	assert.Equal(t, 1, f.ledgerQty(t, models.UnitKindDevice, "FMB920"))

	f.stockDevice(t, "356938035643802")
	assert.Equal(t, 2, f.ledgerQty(t, models.UnitKindDevice, "FMB920"))

	f.stockSim(t, "8933010000000000001", "+33600000001")
	assert.Equal(t, 1, f.ledgerQty(t, models.UnitKindSim, "Orange"))
}

func TestCreate_DuplicateIdentityConflicts(t *testing.T) {
	f := newFixture(t)
	f.stockDevice(t, "356938035643801")
	f.stockSim(t, "8933010000000000001", "+33600000001")

	_, err := f.inventory.CreateDevice(context.Background(), &models.Device{IMEI: "356938035643801", DeviceType: "FMB920"})
	requireCode(t, err, utils.ErrCodeConflict)

	_, err = f.inventory.CreateSim(context.Background(), &models.Sim{ICCID: "8933010000000000009", Phone: "+33600000001", Operator: "Orange"})
	requireCode(t, err, utils.ErrCodeConflict)

	assert.Equal(t, 1, f.ledgerQty(t, models.UnitKindDevice, "FMB920"))
	assert.Equal(t, 1, f.ledgerQty(t, models.UnitKindSim, "Orange"))
}

func TestRemove_DecrementsAndDropsEmptyBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.stockDevice(t, "356938035643801")
	b := f.stockDevice(t, "356938035643802")

	require.NoError(t, f.inventory.RemoveDevice(ctx, a.ID))
	assert.Equal(t, 1, f.ledgerQty(t, models.UnitKindDevice, "FMB920"))

	require.NoError(t, f.inventory.RemoveDevice(ctx, b.ID))
	entry, err := f.uow.StockLedger().Get(ctx, models.StockLedgerKey{
		Kind: models.UnitKindDevice, BucketDate: utils.DateOf(fixedToday), Category: "FMB920",
	})
	require.NoError(t, err)
	assert.Nil(t, entry, "empty bucket must be deleted")

	err = f.inventory.RemoveDevice(ctx, a.ID)
	requireCode(t, err, utils.ErrCodeNotFound)
}

func TestRemove_PairedUnitConflicts(t *testing.T) {
	f := newFixture(t)
	id := f.boitier(t, 1)
	b, err := f.uow.Boitiers().GetByID(context.Background(), id)
	require.NoError(t, err)

	err = f.inventory.RemoveSim(context.Background(), b.SimID)
	requireCode(t, err, utils.ErrCodeConflict)
	assert.Equal(t, models.UnitStatusPending, f.sim(t, b.SimID).Status)
}

func TestPair_AlreadyPairedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.stockDevice(t, "356938035643801")

	err := f.uow.WithinTx(ctx, func(tx repositories.Store) error {
		return f.machine.Pair(ctx, tx, d, 77)
	})
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusPending, d.Status)

	err = f.uow.WithinTx(ctx, func(tx repositories.Store) error {
		return f.machine.Pair(ctx, tx, d, 78)
	})
	requireCode(t, err, utils.ErrCodeConflict)
	assert.Equal(t, int64(77), *f.device(t, d.ID).BoitierID)
}

func TestTransition_StaleStatusConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.stockDevice(t, "356938035643801")

	// Install requires PENDING; the stored unit is still in stock.
	err := f.uow.WithinTx(ctx, func(tx repositories.Store) error {
		return f.machine.Install(ctx, tx, d)
	})
	requireCode(t, err, utils.ErrCodeConflict)
	assert.Equal(t, models.UnitStatusNonInstalled, f.device(t, d.ID).Status)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := f.stockDevice(t, "356938035643801")
	paired := f.boitier(t, 2)
	b, _ := f.uow.Boitiers().GetByID(ctx, paired)

	tests := []struct {
		name   string
		kind   models.UnitKind
		id     int64
		status string
		want   bool
		final  models.UnitStatus
	}{
		{"unknown status name", models.UnitKindDevice, free.ID, "BROKEN", false, models.UnitStatusNonInstalled},
		{"unknown id", models.UnitKindDevice, 9999, "LOST", false, ""},
		{"stock to lost", models.UnitKindDevice, free.ID, "lost", true, models.UnitStatusLost},
		{"same status is a no-op", models.UnitKindDevice, free.ID, "LOST", true, models.UnitStatusLost},
		{"lost back to stock", models.UnitKindDevice, free.ID, "NON_INSTALLED", true, models.UnitStatusNonInstalled},
		{"stock cannot jump to installed", models.UnitKindDevice, free.ID, "INSTALLED", false, models.UnitStatusNonInstalled},
		{"paired unit is refused", models.UnitKindDevice, b.DeviceID, "LOST", false, models.UnitStatusPending},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.inventory.ChangeStatus(ctx, tc.kind, tc.id, tc.status))
			if tc.final != "" {
				assert.Equal(t, tc.final, f.device(t, tc.id).Status)
			}
		})
	}
}

func TestStatusesStayInDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	b1 := f.boitier(t, 1)
	f.boitier(t, 2)
	_, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: []int64{b1}})
	require.NoError(t, err)
	f.stockDevice(t, "356938035643809")

	valid := map[models.UnitStatus]bool{
		models.UnitStatusNonInstalled: true, models.UnitStatusPending: true,
		models.UnitStatusInstalled: true, models.UnitStatusLost: true,
	}
	for _, d := range f.uow.State.Devices {
		assert.True(t, valid[d.Status], d.Status)
	}
	for _, s := range f.uow.State.Sims {
		assert.True(t, valid[s.Status], s.Status)
	}
}
