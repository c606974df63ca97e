package services

import (
	"context"
	"fmt"
	"time"

	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/poofware/fleet-service/internal/utils/traccar"
	"github.com/sirupsen/logrus"
)

// remoteDevice builds the platform record of a boitier mounted on the
// vehicle named matricule. The expiry is the end of the current
// subscription.
func remoteDevice(matricule string, d *models.BoitierDetails) traccar.Device {
	rd := traccar.Device{
		Name:     matricule,
		UniqueID: d.Device.IMEI,
		Phone:    d.Sim.Phone,
	}
	if cur := d.Current(); cur != nil {
		rd.ExpirationTime = time.Date(cur.EndDate.Year(), cur.EndDate.Month(), cur.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	}
	return rd
}

// pushRemoteDevice updates the boitier's platform record, or registers one
// when the boitier has none yet, and returns the remote id.
func pushRemoteDevice(ctx context.Context, gw traccar.Gateway, authHeader, matricule string, d *models.BoitierDetails) (int64, error) {
	rd := remoteDevice(matricule, d)
	if d.TraccarID == nil {
		id, err := gw.RegisterDevice(ctx, authHeader, rd)
		if err != nil {
			logRemoteFailure(err, traccar.OpRegister, &d.Boitier)
			return 0, utils.NewRemoteSyncError("boitier_id",
				fmt.Sprintf("tracking platform refused to register boitier %d", d.ID), err)
		}
		return id, nil
	}
	id, err := gw.UpdateDevice(ctx, authHeader, *d.TraccarID, rd)
	if err != nil {
		logRemoteFailure(err, traccar.OpUpdate, &d.Boitier)
		return 0, utils.NewRemoteSyncError("boitier_id",
			fmt.Sprintf("tracking platform refused to update boitier %d", d.ID), err)
	}
	return id, nil
}

func logRemoteFailure(err error, op string, b *models.Boitier) {
	fields := logrus.Fields{"operation": op, "boitier_id": b.ID}
	if b.TraccarID != nil {
		fields["traccar_id"] = *b.TraccarID
	}
	utils.Logger.WithError(err).WithFields(fields).Error("remote sync failed")
}
