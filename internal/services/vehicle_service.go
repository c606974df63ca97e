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

type VehicleInput struct {
	Matricule   string
	ClientID    int64
	VehicleType string
	BoitierIDs  []int64
}

type VehicleService struct {
	uow     repositories.UnitOfWork
	machine *InventoryStateMachine
	gateway traccar.Gateway
	cfg     *config.Config
	today   func() time.Time
}

func NewVehicleService(cfg *config.Config, uow repositories.UnitOfWork, machine *InventoryStateMachine, gateway traccar.Gateway) *VehicleService {
	return &VehicleService{
		uow:     uow,
		machine: machine,
		gateway: gateway,
		cfg:     cfg,
		today:   todayIn(cfg),
	}
}

// Assign creates a vehicle carrying the given boitiers. Every boitier is
// registered on the tracking platform before anything is written locally;
// the first refusal aborts the whole operation.
func (s *VehicleService) Assign(ctx context.Context, authHeader string, in VehicleInput) (*dtos.VehicleResponse, error) {
	var (
		vehicle *models.Vehicle
		mounted []*models.BoitierDetails
	)
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		if err := s.checkMatricule(ctx, tx, in.Matricule, 0); err != nil {
			return err
		}
		if err := s.checkClient(ctx, tx, in.ClientID); err != nil {
			return err
		}

		seen := make(map[int64]bool, len(in.BoitierIDs))
		for _, id := range in.BoitierIDs {
			if seen[id] {
				return utils.NewConflictError("boitier_ids", fmt.Sprintf("boitier %d is listed twice", id))
			}
			seen[id] = true

			b, err := lockBoitier(ctx, tx, id)
			if err != nil {
				return err
			}
			if b.IsAssigned() {
				return utils.NewConflictError("boitier_ids", fmt.Sprintf("boitier %d is already assigned to vehicle %d", id, *b.VehicleID))
			}
			details, err := loadBoitierDetails(ctx, tx, b)
			if err != nil {
				return err
			}
			mounted = append(mounted, details)
		}

		if err := s.registerAll(ctx, authHeader, in.Matricule, mounted); err != nil {
			return err
		}

		vehicle = &models.Vehicle{Matricule: in.Matricule, ClientID: in.ClientID, VehicleType: in.VehicleType}
		if err := tx.Vehicles().Create(ctx, vehicle); err != nil {
			return insertError("matricule", "vehicle", err)
		}
		for _, d := range mounted {
			d.VehicleID = &vehicle.ID
			if err := tx.Boitiers().Update(ctx, &d.Boitier); err != nil {
				return utils.NewInternalError("failed to attach boitier", err)
			}
			if err := s.machine.Install(ctx, tx, d.Device); err != nil {
				return err
			}
			if err := s.machine.Install(ctx, tx, d.Sim); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"vehicle_id": vehicle.ID,
		"matricule":  vehicle.Matricule,
		"boitiers":   len(mounted),
	}).Info("vehicle assigned")
	return s.toResponse(vehicle, mounted), nil
}

// registerAll registers every boitier in order and stops at the first
// failure. Registrations that already succeeded stay on the platform unless
// compensation is switched on, in which case they are deleted best-effort.
func (s *VehicleService) registerAll(ctx context.Context, authHeader, matricule string, mounted []*models.BoitierDetails) error {
	var registered []*models.BoitierDetails
	for _, d := range mounted {
		remoteID, err := s.gateway.RegisterDevice(ctx, authHeader, remoteDevice(matricule, d))
		if err != nil {
			logRemoteFailure(err, traccar.OpRegister, &d.Boitier)
			s.compensate(ctx, authHeader, registered)
			return utils.NewRemoteSyncError("boitier_ids",
				fmt.Sprintf("tracking platform refused to register boitier %d", d.ID), err)
		}
		d.TraccarID = &remoteID
		registered = append(registered, d)
	}
	return nil
}

func (s *VehicleService) compensate(ctx context.Context, authHeader string, registered []*models.BoitierDetails) {
	if len(registered) == 0 {
		return
	}
	if s.cfg == nil || !s.cfg.LDFlag_CompensateFailedRegistrations {
		for _, d := range registered {
			utils.Logger.WithFields(logrus.Fields{
				"boitier_id": d.ID,
				"traccar_id": *d.TraccarID,
			}).Warn("remote registration left behind by failed assignment")
		}
		return
	}
	for _, d := range registered {
		if err := s.gateway.DeleteDevice(ctx, authHeader, *d.TraccarID); err != nil {
			logRemoteFailure(err, traccar.OpDelete, &d.Boitier)
			continue
		}
		utils.Logger.WithField("traccar_id", *d.TraccarID).Info("rolled back remote registration")
	}
}

// Update changes the vehicle's fields. Every attached boitier's platform
// record is updated first; a refusal aborts before any local write.
func (s *VehicleService) Update(ctx context.Context, authHeader string, id int64, in VehicleInput) (*dtos.VehicleResponse, error) {
	var (
		vehicle  *models.Vehicle
		attached []*models.BoitierDetails
	)
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		var err error
		if vehicle, err = s.loadVehicle(ctx, tx, id); err != nil {
			return err
		}
		if err := s.checkMatricule(ctx, tx, in.Matricule, id); err != nil {
			return err
		}
		if err := s.checkClient(ctx, tx, in.ClientID); err != nil {
			return err
		}
		if attached, err = s.loadAttached(ctx, tx, id); err != nil {
			return err
		}

		var newlyRegistered []*models.BoitierDetails
		for _, d := range attached {
			remoteID, err := pushRemoteDevice(ctx, s.gateway, authHeader, in.Matricule, d)
			if err != nil {
				return err
			}
			if d.TraccarID == nil || *d.TraccarID != remoteID {
				d.TraccarID = &remoteID
				newlyRegistered = append(newlyRegistered, d)
			}
		}

		vehicle.Matricule, vehicle.ClientID, vehicle.VehicleType = in.Matricule, in.ClientID, in.VehicleType
		if err := tx.Vehicles().Update(ctx, vehicle); err != nil {
			return utils.NewInternalError("failed to update vehicle", err)
		}
		for _, d := range newlyRegistered {
			if err := tx.Boitiers().Update(ctx, &d.Boitier); err != nil {
				return utils.NewInternalError("failed to update boitier", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.WithField("vehicle_id", id).Info("vehicle updated")
	return s.toResponse(vehicle, attached), nil
}

// Delete removes the vehicle with all its boitiers. Every platform record
// is deleted first; any refusal aborts before local changes.
func (s *VehicleService) Delete(ctx context.Context, authHeader string, id int64, lost bool) error {
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		if _, err := s.loadVehicle(ctx, tx, id); err != nil {
			return err
		}
		boitiers, err := tx.Boitiers().ListByVehicleID(ctx, id)
		if err != nil {
			return utils.NewInternalError("failed to load boitiers", err)
		}

		for _, b := range boitiers {
			if b.TraccarID == nil {
				continue
			}
			if err := s.gateway.DeleteDevice(ctx, authHeader, *b.TraccarID); err != nil {
				logRemoteFailure(err, traccar.OpDelete, b)
				return utils.NewRemoteSyncError("vehicle_id",
					fmt.Sprintf("tracking platform refused to delete boitier %d", b.ID), err)
			}
		}

		for _, b := range boitiers {
			if err := teardownBoitier(ctx, tx, s.machine, b, lost); err != nil {
				return err
			}
		}
		if err := tx.Vehicles().Delete(ctx, id); err != nil {
			if isNoRows(err) {
				return utils.NewNotFoundError("vehicle_id", fmt.Sprintf("vehicle %d not found", id))
			}
			return utils.NewInternalError("failed to delete vehicle", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	utils.Logger.WithFields(logrus.Fields{"vehicle_id": id, "lost": lost}).Info("vehicle deleted")
	return nil
}

func (s *VehicleService) Get(ctx context.Context, id int64) (*dtos.VehicleResponse, error) {
	vehicle, err := s.loadVehicle(ctx, s.uow, id)
	if err != nil {
		return nil, err
	}
	attached, err := s.loadAttached(ctx, s.uow, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(vehicle, attached), nil
}

func (s *VehicleService) List(ctx context.Context, f repositories.VehicleFilter, p repositories.Page) (*dtos.Paged[dtos.VehicleResponse], error) {
	items, total, err := s.uow.Vehicles().List(ctx, f, p)
	if err != nil {
		return nil, utils.NewInternalError("failed to list vehicles", err)
	}
	out := make([]dtos.VehicleResponse, 0, len(items))
	for _, v := range items {
		attached, err := s.loadAttached(ctx, s.uow, v.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *s.toResponse(v, attached))
	}
	return &dtos.Paged[dtos.VehicleResponse]{Data: out, Total: total, Page: p.Number, PageSize: p.Size}, nil
}

func (s *VehicleService) checkMatricule(ctx context.Context, store repositories.Store, matricule string, selfID int64) error {
	existing, err := store.Vehicles().GetByMatricule(ctx, matricule)
	if err != nil {
		return utils.NewInternalError("failed to look up matricule", err)
	}
	if existing != nil && existing.ID != selfID {
		return utils.NewConflictError("matricule", fmt.Sprintf("matricule %s is already registered", matricule))
	}
	return nil
}

func (s *VehicleService) checkClient(ctx context.Context, store repositories.Store, clientID int64) error {
	client, err := store.Clients().GetByID(ctx, clientID)
	if err != nil {
		return utils.NewInternalError("failed to load client", err)
	}
	if client == nil {
		return utils.NewNotFoundError("client_id", fmt.Sprintf("client %d not found", clientID))
	}
	return nil
}

func (s *VehicleService) loadVehicle(ctx context.Context, store repositories.Store, id int64) (*models.Vehicle, error) {
	v, err := store.Vehicles().GetByID(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load vehicle", err)
	}
	if v == nil {
		return nil, utils.NewNotFoundError("vehicle_id", fmt.Sprintf("vehicle %d not found", id))
	}
	return v, nil
}

func (s *VehicleService) loadAttached(ctx context.Context, store repositories.Store, vehicleID int64) ([]*models.BoitierDetails, error) {
	boitiers, err := store.Boitiers().ListByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, utils.NewInternalError("failed to load boitiers", err)
	}
	out := make([]*models.BoitierDetails, 0, len(boitiers))
	for _, b := range boitiers {
		d, err := loadBoitierDetails(ctx, store, b)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *VehicleService) toResponse(v *models.Vehicle, boitiers []*models.BoitierDetails) *dtos.VehicleResponse {
	today := s.today()
	resp := &dtos.VehicleResponse{Vehicle: *v, Boitiers: make([]dtos.BoitierResponse, 0, len(boitiers))}
	for _, d := range boitiers {
		resp.Boitiers = append(resp.Boitiers, *toBoitierResponse(d, today))
	}
	return resp
}
