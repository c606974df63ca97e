package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/poofware/fleet-service/internal/metrics"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/sirupsen/logrus"
)

// InventoryStateMachine owns every status change of devices and SIM cards.
// Each operation is a single guarded write against the Store of the caller's
// transaction; a write that matches no row means the unit moved under us and
// is reported as a conflict.
//
//	NON_INSTALLED --pair--> PENDING --install--> INSTALLED
//	PENDING|INSTALLED --release--> NON_INSTALLED | LOST
//	NON_INSTALLED <--correct--> LOST   (unpaired units only)
type InventoryStateMachine struct {
	loc *time.Location
}

func NewInventoryStateMachine(loc *time.Location) *InventoryStateMachine {
	if loc == nil {
		loc = time.UTC
	}
	return &InventoryStateMachine{loc: loc}
}

// Create inserts a new unit in stock and counts it in the ledger.
func (m *InventoryStateMachine) Create(ctx context.Context, tx repositories.Store, unit models.InventoryUnit) error {
	switch u := unit.(type) {
	case *models.Device:
		existing, err := tx.Devices().GetByIMEI(ctx, u.IMEI)
		if err != nil {
			return utils.NewInternalError("failed to look up device", err)
		}
		if existing != nil {
			return utils.NewConflictError("imei", fmt.Sprintf("a device with IMEI %s already exists", u.IMEI))
		}
		u.Status, u.BoitierID = models.UnitStatusNonInstalled, nil
		if err := tx.Devices().Create(ctx, u); err != nil {
			return insertError("imei", "device", err)
		}
	case *models.Sim:
		existing, err := tx.Sims().GetByICCID(ctx, u.ICCID)
		if err != nil {
			return utils.NewInternalError("failed to look up sim", err)
		}
		if existing != nil {
			return utils.NewConflictError("iccid", fmt.Sprintf("a SIM with ICCID %s already exists", u.ICCID))
		}
		existing, err = tx.Sims().GetByPhone(ctx, u.Phone)
		if err != nil {
			return utils.NewInternalError("failed to look up sim", err)
		}
		if existing != nil {
			return utils.NewConflictError("phone", fmt.Sprintf("a SIM with phone %s already exists", u.Phone))
		}
		u.Status, u.BoitierID = models.UnitStatusNonInstalled, nil
		if err := tx.Sims().Create(ctx, u); err != nil {
			return insertError("sim", "sim", err)
		}
	default:
		return utils.NewInternalError(fmt.Sprintf("unsupported inventory unit %T", unit), nil)
	}

	if err := recordArrival(ctx, tx, ledgerKey(unit, m.loc)); err != nil {
		return utils.NewInternalError("failed to update stock ledger", err)
	}
	m.count(unit, models.UnitStatusNonInstalled)
	return nil
}

// Pair reserves an in-stock unit for a boitier.
func (m *InventoryStateMachine) Pair(ctx context.Context, tx repositories.Store, unit models.InventoryUnit, boitierID int64) error {
	if unit.GetBoitierID() != nil {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d is already paired to boitier %d",
			unitLabel(unit), unit.GetID(), *unit.GetBoitierID()))
	}
	if unit.GetStatus() != models.UnitStatusNonInstalled {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d is %s, not in stock",
			unitLabel(unit), unit.GetID(), unit.GetStatus()))
	}
	return m.transition(ctx, tx, unit,
		[]models.UnitStatus{models.UnitStatusNonInstalled}, models.UnitStatusPending, &boitierID)
}

// Install marks a paired unit as mounted on a vehicle. Only the vehicle
// workflow calls it, after the tracking platform accepted the boitier.
func (m *InventoryStateMachine) Install(ctx context.Context, tx repositories.Store, unit models.InventoryUnit) error {
	return m.transition(ctx, tx, unit,
		[]models.UnitStatus{models.UnitStatusPending}, models.UnitStatusInstalled, unit.GetBoitierID())
}

// Release unpairs a unit, sending it back to stock or to LOST.
func (m *InventoryStateMachine) Release(ctx context.Context, tx repositories.Store, unit models.InventoryUnit, lost bool) error {
	to := models.UnitStatusNonInstalled
	if lost {
		to = models.UnitStatusLost
	}
	return m.transition(ctx, tx, unit,
		[]models.UnitStatus{models.UnitStatusPending, models.UnitStatusInstalled}, to, nil)
}

// Correct flips an unpaired unit between stock and LOST. Paired units only
// move through the boitier and vehicle workflows.
func (m *InventoryStateMachine) Correct(ctx context.Context, tx repositories.Store, unit models.InventoryUnit, to models.UnitStatus) error {
	if unit.GetBoitierID() != nil {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d is paired; release it through its boitier",
			unitLabel(unit), unit.GetID()))
	}
	var from models.UnitStatus
	switch to {
	case models.UnitStatusLost:
		from = models.UnitStatusNonInstalled
	case models.UnitStatusNonInstalled:
		from = models.UnitStatusLost
	default:
		return utils.NewConflictError("status", fmt.Sprintf("cannot set an unpaired unit to %s", to))
	}
	return m.transition(ctx, tx, unit, []models.UnitStatus{from}, to, nil)
}

// Remove deletes an unpaired unit and takes it out of the ledger.
func (m *InventoryStateMachine) Remove(ctx context.Context, tx repositories.Store, unit models.InventoryUnit) error {
	if unit.GetBoitierID() != nil {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d is paired to boitier %d",
			unitLabel(unit), unit.GetID(), *unit.GetBoitierID()))
	}

	var err error
	switch unit.Kind() {
	case models.UnitKindDevice:
		err = tx.Devices().Delete(ctx, unit.GetID())
	case models.UnitKindSim:
		err = tx.Sims().Delete(ctx, unit.GetID())
	}
	if err != nil {
		if isNoRows(err) {
			return utils.NewNotFoundError(unitField(unit), fmt.Sprintf("%s %d not found", unitLabel(unit), unit.GetID()))
		}
		return utils.NewInternalError("failed to delete "+unitLabel(unit), err)
	}

	if err := recordRemoval(ctx, tx, ledgerKey(unit, m.loc)); err != nil {
		return utils.NewInternalError("failed to update stock ledger", err)
	}
	utils.Logger.WithFields(unitFields(unit)).Debug("inventory unit removed")
	return nil
}

func (m *InventoryStateMachine) transition(
	ctx context.Context,
	tx repositories.Store,
	unit models.InventoryUnit,
	from []models.UnitStatus,
	to models.UnitStatus,
	boitierID *int64,
) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	switch unit.Kind() {
	case models.UnitKindDevice:
		tag, err = tx.Devices().UpdateStatus(ctx, unit.GetID(), from, to, boitierID)
	case models.UnitKindSim:
		tag, err = tx.Sims().UpdateStatus(ctx, unit.GetID(), from, to, boitierID)
	}
	if err != nil {
		return utils.NewInternalError("failed to update "+unitLabel(unit)+" status", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d cannot move from %s to %s",
			unitLabel(unit), unit.GetID(), unit.GetStatus(), to))
	}

	utils.Logger.WithFields(unitFields(unit)).WithField("to", to).Debug("inventory unit transitioned")
	setUnitState(unit, to, boitierID)
	m.count(unit, to)
	return nil
}

func (m *InventoryStateMachine) count(unit models.InventoryUnit, to models.UnitStatus) {
	metrics.UnitTransitions.WithLabelValues(string(unit.Kind()), string(to)).Inc()
}

// setUnitState mirrors a persisted transition onto the caller's copy.
func setUnitState(unit models.InventoryUnit, status models.UnitStatus, boitierID *int64) {
	switch u := unit.(type) {
	case *models.Device:
		u.Status, u.BoitierID = status, boitierID
	case *models.Sim:
		u.Status, u.BoitierID = status, boitierID
	}
}

func unitLabel(unit models.InventoryUnit) string {
	if unit.Kind() == models.UnitKindSim {
		return "sim"
	}
	return "device"
}

func unitField(unit models.InventoryUnit) string {
	return unitLabel(unit) + "_id"
}

func unitFields(unit models.InventoryUnit) logrus.Fields {
	return logrus.Fields{
		"unit_kind": unit.Kind(),
		"unit_id":   unit.GetID(),
		"from":      unit.GetStatus(),
	}
}
