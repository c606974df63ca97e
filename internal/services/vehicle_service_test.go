package services

import (
	"context"
	"testing"

	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/poofware/fleet-service/internal/utils/traccar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	b1, b2 := f.boitier(t, 1), f.boitier(t, 2)

	resp, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{
		Matricule: "AB-123-CD", ClientID: clientID, VehicleType: "truck", BoitierIDs: []int64{b1, b2},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.gw.Count(traccar.OpRegister))
	first := f.gw.Calls[0]
	assert.Equal(t, "AB-123-CD", first.Device.Name)
	assert.Equal(t, "356938035643801", first.Device.UniqueID)
	assert.Equal(t, "+33600000001", first.Device.Phone)
	assert.Equal(t, days(60), first.Device.ExpirationTime)
	assert.Equal(t, testAuth, first.Auth)

	v, err := f.uow.Vehicles().GetByMatricule(ctx, "AB-123-CD")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, v.ID, resp.ID)

	require.Len(t, resp.Boitiers, 2)
	for _, id := range []int64{b1, b2} {
		b, _ := f.uow.Boitiers().GetByID(ctx, id)
		require.NotNil(t, b.VehicleID)
		assert.Equal(t, v.ID, *b.VehicleID)
		require.NotNil(t, b.TraccarID)
		assert.Equal(t, models.UnitStatusInstalled, f.device(t, b.DeviceID).Status)
		assert.Equal(t, models.UnitStatusInstalled, f.sim(t, b.SimID).Status)
	}
}

func TestAssign_AlreadyAssignedMakesNoRemoteCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	b1, b2 := f.boitier(t, 1), f.boitier(t, 2)
	_, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: []int64{b1}})
	require.NoError(t, err)
	f.gw.Calls = nil

	_, err = f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "EF-456-GH", ClientID: clientID, BoitierIDs: []int64{b2, b1}})
	requireCode(t, err, utils.ErrCodeConflict)

	assert.Empty(t, f.gw.Calls)
	v, _ := f.uow.Vehicles().GetByMatricule(ctx, "EF-456-GH")
	assert.Nil(t, v)
	b, _ := f.uow.Boitiers().GetByID(ctx, b2)
	assert.Equal(t, models.UnitStatusPending, f.device(t, b.DeviceID).Status)
}

func TestAssign_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	b1 := f.boitier(t, 1)
	_, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   VehicleInput
		code string
	}{
		{"duplicate matricule", VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: []int64{b1}}, utils.ErrCodeConflict},
		{"unknown client", VehicleInput{Matricule: "ZZ-1", ClientID: 999, BoitierIDs: []int64{b1}}, utils.ErrCodeNotFound},
		{"unknown boitier", VehicleInput{Matricule: "ZZ-2", ClientID: clientID, BoitierIDs: []int64{999}}, utils.ErrCodeNotFound},
		{"boitier listed twice", VehicleInput{Matricule: "ZZ-3", ClientID: clientID, BoitierIDs: []int64{b1, b1}}, utils.ErrCodeConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f.gw.Calls = nil
			_, err := f.vehicles.Assign(ctx, testAuth, tc.in)
			requireCode(t, err, tc.code)
			assert.Empty(t, f.gw.Calls)
		})
	}
}

func TestAssign_RegistrationFailureAbortsWithoutCompensation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	ids := []int64{f.boitier(t, 1), f.boitier(t, 2), f.boitier(t, 3)}
	f.gw.FailRegisterAt = 2

	_, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: ids})
	requireCode(t, err, utils.ErrCodeRemoteSync)

	assert.Equal(t, 2, f.gw.Count(traccar.OpRegister), "stops at the first failure")
	assert.Zero(t, f.gw.Count(traccar.OpDelete), "earlier registrations are left in place")
	v, _ := f.uow.Vehicles().GetByMatricule(ctx, "AB-123-CD")
	assert.Nil(t, v)
	for _, id := range ids {
		b, _ := f.uow.Boitiers().GetByID(ctx, id)
		assert.Nil(t, b.VehicleID)
		assert.Nil(t, b.TraccarID)
		assert.Equal(t, models.UnitStatusPending, f.device(t, b.DeviceID).Status)
	}
}

func TestAssign_RegistrationFailureCompensatesWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.LDFlag_CompensateFailedRegistrations = true
	ctx := context.Background()
	clientID := f.client(t)
	ids := []int64{f.boitier(t, 1), f.boitier(t, 2), f.boitier(t, 3)}
	f.gw.FailRegisterAt = 3

	_, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: ids})
	requireCode(t, err, utils.ErrCodeRemoteSync)

	assert.Equal(t, 2, f.gw.Count(traccar.OpDelete))
	var deleted []int64
	for _, c := range f.gw.Calls {
		if c.Op == traccar.OpDelete {
			deleted = append(deleted, c.RemoteID)
		}
	}
	assert.ElementsMatch(t, []int64{100, 200}, deleted)
}

func TestVehicleUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	b1 := f.boitier(t, 1)
	created, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: []int64{b1}})
	require.NoError(t, err)
	_, err = f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "TAKEN-1", ClientID: clientID})
	require.NoError(t, err)
	f.gw.Calls = nil

	t.Run("matricule taken by another vehicle", func(t *testing.T) {
		_, err := f.vehicles.Update(ctx, testAuth, created.ID, VehicleInput{Matricule: "TAKEN-1", ClientID: clientID})
		requireCode(t, err, utils.ErrCodeConflict)
		assert.Empty(t, f.gw.Calls)
	})

	t.Run("remote failure keeps old fields", func(t *testing.T) {
		f.gw.FailUpdate = true
		defer func() { f.gw.FailUpdate = false }()
		_, err := f.vehicles.Update(ctx, testAuth, created.ID, VehicleInput{Matricule: "NEW-1", ClientID: clientID})
		requireCode(t, err, utils.ErrCodeRemoteSync)
		v, _ := f.uow.Vehicles().GetByID(ctx, created.ID)
		assert.Equal(t, "AB-123-CD", v.Matricule)
	})

	t.Run("keeping own matricule and renaming", func(t *testing.T) {
		f.gw.Calls = nil
		resp, err := f.vehicles.Update(ctx, testAuth, created.ID, VehicleInput{Matricule: "NEW-1", ClientID: clientID, VehicleType: "van"})
		require.NoError(t, err)
		assert.Equal(t, "NEW-1", resp.Matricule)
		require.Equal(t, 1, f.gw.Count(traccar.OpUpdate))
		assert.Equal(t, "NEW-1", f.gw.Calls[0].Device.Name)
		assert.Len(t, resp.Boitiers, 1, "boitier list is unchanged")
	})
}

func TestVehicleDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := f.client(t)
	b1, b2 := f.boitier(t, 1), f.boitier(t, 2)
	created, err := f.vehicles.Assign(ctx, testAuth, VehicleInput{Matricule: "AB-123-CD", ClientID: clientID, BoitierIDs: []int64{b1, b2}})
	require.NoError(t, err)
	first, _ := f.uow.Boitiers().GetByID(ctx, b1)

	f.gw.FailDelete = true
	err = f.vehicles.Delete(ctx, testAuth, created.ID, true)
	requireCode(t, err, utils.ErrCodeRemoteSync)
	v, _ := f.uow.Vehicles().GetByID(ctx, created.ID)
	require.NotNil(t, v)
	assert.Len(t, f.uow.State.Boitiers, 2)

	f.gw.FailDelete = false
	f.gw.Calls = nil
	require.NoError(t, f.vehicles.Delete(ctx, testAuth, created.ID, true))

	assert.Equal(t, 2, f.gw.Count(traccar.OpDelete))
	v, _ = f.uow.Vehicles().GetByID(ctx, created.ID)
	assert.Nil(t, v)
	assert.Empty(t, f.uow.State.Boitiers)
	assert.Empty(t, f.uow.State.Subs)
	assert.Equal(t, models.UnitStatusLost, f.device(t, first.DeviceID).Status)
	assert.Equal(t, models.UnitStatusLost, f.sim(t, first.SimID).Status)

	err = f.vehicles.Delete(ctx, testAuth, created.ID, false)
	requireCode(t, err, utils.ErrCodeNotFound)
}
