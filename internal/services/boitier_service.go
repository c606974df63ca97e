package services

import (
	"context"
	"fmt"
	"time"

	"github.com/poofware/fleet-service/internal/config"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/poofware/fleet-service/internal/utils/traccar"
	"github.com/sirupsen/logrus"
)

// BoitierInput names the units of a boitier. For each unit, either an id of
// an in-stock unit or a new inline unit is given. On update, a zero id and
// no inline unit keep the current one.
type BoitierInput struct {
	DeviceID  int64
	NewDevice *models.Device
	SimID     int64
	NewSim    *models.Sim
	StartDate time.Time
	EndDate   time.Time
}

type BoitierService struct {
	uow     repositories.UnitOfWork
	machine *InventoryStateMachine
	gateway traccar.Gateway
	cfg     *config.Config
	today   func() time.Time
}

func NewBoitierService(cfg *config.Config, uow repositories.UnitOfWork, machine *InventoryStateMachine, gateway traccar.Gateway) *BoitierService {
	return &BoitierService{
		uow:     uow,
		machine: machine,
		gateway: gateway,
		cfg:     cfg,
		today:   todayIn(cfg),
	}
}

// Create pairs a device and a SIM into a new boitier with its first
// subscription. Both units end up PENDING.
func (s *BoitierService) Create(ctx context.Context, in BoitierInput) (*dtos.BoitierResponse, error) {
	if err := validateSubscriptionDates(in.StartDate, in.EndDate, s.today(), true); err != nil {
		return nil, err
	}

	var details *models.BoitierDetails
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		device, err := s.resolveDevice(ctx, tx, in.DeviceID, in.NewDevice)
		if err != nil {
			return err
		}
		sim, err := s.resolveSim(ctx, tx, in.SimID, in.NewSim)
		if err != nil {
			return err
		}
		if err := s.createInline(ctx, tx, in.NewDevice, in.NewSim); err != nil {
			return err
		}

		b := &models.Boitier{DeviceID: device.ID, SimID: sim.ID}
		if err := tx.Boitiers().Create(ctx, b); err != nil {
			return insertError("boitier", "boitier", err)
		}
		if err := s.machine.Pair(ctx, tx, device, b.ID); err != nil {
			return err
		}
		if err := s.machine.Pair(ctx, tx, sim, b.ID); err != nil {
			return err
		}

		sub := &models.Subscription{
			BoitierID: b.ID,
			StartDate: utils.DateOf(in.StartDate),
			EndDate:   utils.DateOf(in.EndDate),
		}
		if err := tx.Subscriptions().Create(ctx, sub); err != nil {
			return utils.NewInternalError("failed to create subscription", err)
		}

		details = &models.BoitierDetails{Boitier: *b, Device: device, Sim: sim, Subscriptions: []*models.Subscription{sub}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"boitier_id": details.ID,
		"device_id":  details.DeviceID,
		"sim_id":     details.SimID,
	}).Info("boitier created")
	return toBoitierResponse(details, s.today()), nil
}

// Update swaps units and rewrites the current subscription's dates in
// place. On an assigned boitier the tracking platform is updated before the
// local commit and newly paired units are installed.
func (s *BoitierService) Update(ctx context.Context, authHeader string, id int64, in BoitierInput) (*dtos.BoitierResponse, error) {
	var details *models.BoitierDetails
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		b, err := lockBoitier(ctx, tx, id)
		if err != nil {
			return err
		}
		current, err := loadBoitierDetails(ctx, tx, b)
		if err != nil {
			return err
		}
		sub := current.Current()
		if sub == nil {
			return utils.NewInternalError(fmt.Sprintf("boitier %d has no subscription", id), nil)
		}

		startChanged := !utils.DateOf(in.StartDate).Equal(sub.StartDate)
		if err := validateSubscriptionDates(in.StartDate, in.EndDate, s.today(), startChanged); err != nil {
			return err
		}

		device, sim := current.Device, current.Sim
		var swapped []models.InventoryUnit

		if in.NewDevice != nil || (in.DeviceID != 0 && in.DeviceID != b.DeviceID) {
			if device, err = s.resolveDevice(ctx, tx, in.DeviceID, in.NewDevice); err != nil {
				return err
			}
		}
		if in.NewSim != nil || (in.SimID != 0 && in.SimID != b.SimID) {
			if sim, err = s.resolveSim(ctx, tx, in.SimID, in.NewSim); err != nil {
				return err
			}
		}
		if err := s.createInline(ctx, tx, in.NewDevice, in.NewSim); err != nil {
			return err
		}

		if device.ID != b.DeviceID {
			if err := s.machine.Release(ctx, tx, current.Device, false); err != nil {
				return err
			}
			if err := s.machine.Pair(ctx, tx, device, b.ID); err != nil {
				return err
			}
			b.DeviceID = device.ID
			swapped = append(swapped, device)
		}
		if sim.ID != b.SimID {
			if err := s.machine.Release(ctx, tx, current.Sim, false); err != nil {
				return err
			}
			if err := s.machine.Pair(ctx, tx, sim, b.ID); err != nil {
				return err
			}
			b.SimID = sim.ID
			swapped = append(swapped, sim)
		}

		sub.StartDate, sub.EndDate = utils.DateOf(in.StartDate), utils.DateOf(in.EndDate)
		if err := tx.Subscriptions().UpdateDates(ctx, sub); err != nil {
			return utils.NewInternalError("failed to update subscription", err)
		}

		details = &models.BoitierDetails{Boitier: *b, Device: device, Sim: sim, Subscriptions: current.Subscriptions}

		if b.IsAssigned() {
			if err := s.syncAssigned(ctx, tx, authHeader, details); err != nil {
				return err
			}
			for _, unit := range swapped {
				if err := s.machine.Install(ctx, tx, unit); err != nil {
					return err
				}
			}
		}

		if err := tx.Boitiers().Update(ctx, &details.Boitier); err != nil {
			return utils.NewInternalError("failed to update boitier", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithField("boitier_id", id).Info("boitier updated")
	return toBoitierResponse(details, s.today()), nil
}

// Delete removes a boitier with its subscriptions and releases both units.
// An assigned boitier is first removed from the tracking platform; if that
// fails nothing changes locally.
func (s *BoitierService) Delete(ctx context.Context, authHeader string, id int64, lost bool) error {
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		b, err := lockBoitier(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.IsAssigned() && b.TraccarID != nil {
			if err := s.gateway.DeleteDevice(ctx, authHeader, *b.TraccarID); err != nil {
				logRemoteFailure(err, traccar.OpDelete, b)
				return utils.NewRemoteSyncError("boitier_id",
					fmt.Sprintf("tracking platform refused to delete boitier %d", b.ID), err)
			}
		}
		return teardownBoitier(ctx, tx, s.machine, b, lost)
	})
	if err != nil {
		return err
	}
	utils.Logger.WithFields(logrus.Fields{"boitier_id": id, "lost": lost}).Info("boitier deleted")
	return nil
}

func (s *BoitierService) Get(ctx context.Context, id int64) (*dtos.BoitierResponse, error) {
	b, err := s.uow.Boitiers().GetByID(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load boitier", err)
	}
	if b == nil {
		return nil, utils.NewNotFoundError("boitier_id", fmt.Sprintf("boitier %d not found", id))
	}
	details, err := loadBoitierDetails(ctx, s.uow, b)
	if err != nil {
		return nil, err
	}
	return toBoitierResponse(details, s.today()), nil
}

// List returns one page of boitiers, each with the time left on its
// current subscription.
func (s *BoitierService) List(ctx context.Context, f repositories.BoitierFilter, p repositories.Page) (*dtos.Paged[dtos.BoitierResponse], error) {
	items, total, err := s.uow.Boitiers().List(ctx, f, p)
	if err != nil {
		return nil, utils.NewInternalError("failed to list boitiers", err)
	}
	today := s.today()
	out := make([]dtos.BoitierResponse, 0, len(items))
	for _, b := range items {
		details, err := loadBoitierDetails(ctx, s.uow, b)
		if err != nil {
			return nil, err
		}
		out = append(out, *toBoitierResponse(details, today))
	}
	return &dtos.Paged[dtos.BoitierResponse]{Data: out, Total: total, Page: p.Number, PageSize: p.Size}, nil
}

// syncAssigned pushes the boitier's current identity and expiry to the
// tracking platform, registering it if it has no remote record yet.
func (s *BoitierService) syncAssigned(ctx context.Context, tx repositories.Store, authHeader string, d *models.BoitierDetails) error {
	vehicle, err := tx.Vehicles().GetByID(ctx, *d.VehicleID)
	if err != nil {
		return utils.NewInternalError("failed to load vehicle", err)
	}
	if vehicle == nil {
		return utils.NewNotFoundError("vehicle_id", fmt.Sprintf("vehicle %d not found", *d.VehicleID))
	}
	remoteID, err := pushRemoteDevice(ctx, s.gateway, authHeader, vehicle.Matricule, d)
	if err != nil {
		return err
	}
	d.TraccarID = &remoteID
	return nil
}

// resolveDevice returns the inline device (not yet persisted) or loads the
// referenced stock device and checks that it is free.
func (s *BoitierService) resolveDevice(ctx context.Context, tx repositories.Store, id int64, inline *models.Device) (*models.Device, error) {
	if inline != nil {
		return inline, nil
	}
	if id == 0 {
		return nil, utils.NewNotFoundError("device_id", "a device id or a new device is required")
	}
	d, err := tx.Devices().GetByID(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load device", err)
	}
	if d == nil {
		return nil, utils.NewNotFoundError("device_id", fmt.Sprintf("device %d not found", id))
	}
	if err := ensureInStock(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *BoitierService) resolveSim(ctx context.Context, tx repositories.Store, id int64, inline *models.Sim) (*models.Sim, error) {
	if inline != nil {
		return inline, nil
	}
	if id == 0 {
		return nil, utils.NewNotFoundError("sim_id", "a sim id or a new sim is required")
	}
	sim, err := tx.Sims().GetByID(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load sim", err)
	}
	if sim == nil {
		return nil, utils.NewNotFoundError("sim_id", fmt.Sprintf("sim %d not found", id))
	}
	if err := ensureInStock(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// createInline puts inline units in stock once every referenced unit has
// been checked.
func (s *BoitierService) createInline(ctx context.Context, tx repositories.Store, device *models.Device, sim *models.Sim) error {
	if device != nil {
		if err := s.machine.Create(ctx, tx, device); err != nil {
			return err
		}
	}
	if sim != nil {
		if err := s.machine.Create(ctx, tx, sim); err != nil {
			return err
		}
	}
	return nil
}

func ensureInStock(unit models.InventoryUnit) error {
	if unit.GetBoitierID() != nil {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d is already paired to boitier %d",
			unitLabel(unit), unit.GetID(), *unit.GetBoitierID()))
	}
	if unit.GetStatus() != models.UnitStatusNonInstalled {
		return utils.NewConflictError(unitField(unit), fmt.Sprintf("%s %d is %s, not in stock",
			unitLabel(unit), unit.GetID(), unit.GetStatus()))
	}
	return nil
}

func lockBoitier(ctx context.Context, tx repositories.Store, id int64) (*models.Boitier, error) {
	b, err := tx.Boitiers().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load boitier", err)
	}
	if b == nil {
		return nil, utils.NewNotFoundError("boitier_id", fmt.Sprintf("boitier %d not found", id))
	}
	return b, nil
}

func loadBoitierDetails(ctx context.Context, store repositories.Store, b *models.Boitier) (*models.BoitierDetails, error) {
	device, err := store.Devices().GetByID(ctx, b.DeviceID)
	if err != nil {
		return nil, utils.NewInternalError("failed to load device", err)
	}
	sim, err := store.Sims().GetByID(ctx, b.SimID)
	if err != nil {
		return nil, utils.NewInternalError("failed to load sim", err)
	}
	if device == nil || sim == nil {
		return nil, utils.NewInternalError(fmt.Sprintf("boitier %d references a missing unit", b.ID), nil)
	}
	subs, err := store.Subscriptions().ListByBoitierID(ctx, b.ID)
	if err != nil {
		return nil, utils.NewInternalError("failed to load subscriptions", err)
	}
	return &models.BoitierDetails{Boitier: *b, Device: device, Sim: sim, Subscriptions: subs}, nil
}

// teardownBoitier deletes the boitier with its subscriptions and releases
// both units. Remote cleanup is the caller's job.
func teardownBoitier(ctx context.Context, tx repositories.Store, machine *InventoryStateMachine, b *models.Boitier, lost bool) error {
	details, err := loadBoitierDetails(ctx, tx, b)
	if err != nil {
		return err
	}
	if err := tx.Subscriptions().DeleteByBoitierID(ctx, b.ID); err != nil {
		return utils.NewInternalError("failed to delete subscriptions", err)
	}
	if err := machine.Release(ctx, tx, details.Device, lost); err != nil {
		return err
	}
	if err := machine.Release(ctx, tx, details.Sim, lost); err != nil {
		return err
	}
	if err := tx.Boitiers().Delete(ctx, b.ID); err != nil {
		if isNoRows(err) {
			return utils.NewNotFoundError("boitier_id", fmt.Sprintf("boitier %d not found", b.ID))
		}
		return utils.NewInternalError("failed to delete boitier", err)
	}
	return nil
}

func toBoitierResponse(d *models.BoitierDetails, today time.Time) *dtos.BoitierResponse {
	resp := &dtos.BoitierResponse{
		ID:             d.ID,
		VehicleID:      d.VehicleID,
		TraccarID:      d.TraccarID,
		Device:         d.Device,
		Sim:            d.Sim,
		Subscriptions:  make([]dtos.SubscriptionDTO, 0, len(d.Subscriptions)),
		TimeLeft:       utils.Period{}.String(),
		TimeLeftStatus: string(utils.TimeLeftLeft),
	}
	for _, sub := range d.Subscriptions {
		resp.Subscriptions = append(resp.Subscriptions, dtos.NewSubscriptionDTO(sub))
	}
	if cur := d.Current(); cur != nil {
		dto := dtos.NewSubscriptionDTO(cur)
		resp.Current = &dto
		timeLeft, status := utils.ClassifyTimeLeft(cur.EndDate, today)
		resp.TimeLeft, resp.TimeLeftStatus = timeLeft, string(status)
	}
	return resp
}

func todayIn(cfg *config.Config) func() time.Time {
	var loc *time.Location
	if cfg != nil {
		loc = cfg.Location
	}
	return func() time.Time { return utils.Today(loc) }
}
