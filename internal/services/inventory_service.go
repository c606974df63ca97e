package services

import (
	"context"
	"fmt"

	"github.com/poofware/fleet-service/internal/config"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
)

// InventoryService manages in-stock devices and SIM cards.
type InventoryService struct {
	uow     repositories.UnitOfWork
	machine *InventoryStateMachine
	cfg     *config.Config
}

func NewInventoryService(cfg *config.Config, uow repositories.UnitOfWork, machine *InventoryStateMachine) *InventoryService {
	return &InventoryService{uow: uow, machine: machine, cfg: cfg}
}

func (s *InventoryService) CreateDevice(ctx context.Context, d *models.Device) (*models.Device, error) {
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		return s.machine.Create(ctx, tx, d)
	})
	if err != nil {
		return nil, err
	}
	utils.Logger.WithField("device_id", d.ID).Info("device added to stock")
	return d, nil
}

func (s *InventoryService) CreateSim(ctx context.Context, sim *models.Sim) (*models.Sim, error) {
	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		return s.machine.Create(ctx, tx, sim)
	})
	if err != nil {
		return nil, err
	}
	utils.Logger.WithField("sim_id", sim.ID).Info("sim added to stock")
	return sim, nil
}

func (s *InventoryService) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	d, err := s.uow.Devices().GetByID(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load device", err)
	}
	if d == nil {
		return nil, utils.NewNotFoundError("device_id", fmt.Sprintf("device %d not found", id))
	}
	return d, nil
}

func (s *InventoryService) GetSim(ctx context.Context, id int64) (*models.Sim, error) {
	sim, err := s.uow.Sims().GetByID(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("failed to load sim", err)
	}
	if sim == nil {
		return nil, utils.NewNotFoundError("sim_id", fmt.Sprintf("sim %d not found", id))
	}
	return sim, nil
}

func (s *InventoryService) ListDevices(ctx context.Context, f repositories.UnitFilter, p repositories.Page) (*dtos.Paged[*models.Device], error) {
	items, total, err := s.uow.Devices().List(ctx, f, p)
	if err != nil {
		return nil, utils.NewInternalError("failed to list devices", err)
	}
	return &dtos.Paged[*models.Device]{Data: nonNil(items), Total: total, Page: p.Number, PageSize: p.Size}, nil
}

func (s *InventoryService) ListSims(ctx context.Context, f repositories.UnitFilter, p repositories.Page) (*dtos.Paged[*models.Sim], error) {
	items, total, err := s.uow.Sims().List(ctx, f, p)
	if err != nil {
		return nil, utils.NewInternalError("failed to list sims", err)
	}
	return &dtos.Paged[*models.Sim]{Data: nonNil(items), Total: total, Page: p.Number, PageSize: p.Size}, nil
}

// RemoveDevice deletes an unpaired device and takes it out of the ledger.
func (s *InventoryService) RemoveDevice(ctx context.Context, id int64) error {
	return s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		d, err := tx.Devices().GetByID(ctx, id)
		if err != nil {
			return utils.NewInternalError("failed to load device", err)
		}
		if d == nil {
			return utils.NewNotFoundError("device_id", fmt.Sprintf("device %d not found", id))
		}
		return s.machine.Remove(ctx, tx, d)
	})
}

// RemoveSim deletes an unpaired SIM and takes it out of the ledger.
func (s *InventoryService) RemoveSim(ctx context.Context, id int64) error {
	return s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		sim, err := tx.Sims().GetByID(ctx, id)
		if err != nil {
			return utils.NewInternalError("failed to load sim", err)
		}
		if sim == nil {
			return utils.NewNotFoundError("sim_id", fmt.Sprintf("sim %d not found", id))
		}
		return s.machine.Remove(ctx, tx, sim)
	})
}

// ChangeStatus applies a manual status correction and reports whether the
// unit now has the requested status. It never fails: unknown ids, unknown
// status names and disallowed moves all yield false.
func (s *InventoryService) ChangeStatus(ctx context.Context, kind models.UnitKind, id int64, statusName string) bool {
	to, ok := models.ParseUnitStatus(statusName)
	if !ok {
		return false
	}

	err := s.uow.WithinTx(ctx, func(tx repositories.Store) error {
		unit, err := loadUnit(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if unit.GetStatus() == to {
			return nil
		}
		return s.machine.Correct(ctx, tx, unit, to)
	})
	if err != nil {
		utils.Logger.WithError(err).WithField("unit_id", id).Debugf("change status of %s to %s rejected", kind, to)
		return false
	}
	return true
}

func loadUnit(ctx context.Context, tx repositories.Store, kind models.UnitKind, id int64) (models.InventoryUnit, error) {
	switch kind {
	case models.UnitKindDevice:
		d, err := tx.Devices().GetByID(ctx, id)
		if err != nil {
			return nil, utils.NewInternalError("failed to load device", err)
		}
		if d == nil {
			return nil, utils.NewNotFoundError("device_id", fmt.Sprintf("device %d not found", id))
		}
		return d, nil
	case models.UnitKindSim:
		sim, err := tx.Sims().GetByID(ctx, id)
		if err != nil {
			return nil, utils.NewInternalError("failed to load sim", err)
		}
		if sim == nil {
			return nil, utils.NewNotFoundError("sim_id", fmt.Sprintf("sim %d not found", id))
		}
		return sim, nil
	}
	return nil, utils.NewNotFoundError("kind", fmt.Sprintf("unknown unit kind %q", kind))
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
