package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
)

type InventoryController struct {
	inventory *services.InventoryService
	validate  *validator.Validate
}

func NewInventoryController(s *services.InventoryService) *InventoryController {
	return &InventoryController{
		inventory: s,
		validate:  validator.New(),
	}
}

func unitFilterFromQuery(r *http.Request) (repositories.UnitFilter, error) {
	q := r.URL.Query()
	f := repositories.UnitFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseUnitStatus(raw)
		if !ok {
			return f, fmt.Errorf("unknown status %q", raw)
		}
		f.Status = status
	}
	return f, nil
}

// POST /api/v1/fleet/devices
func (c *InventoryController) CreateDeviceHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateDeviceRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	d, err := c.inventory.CreateDevice(r.Context(), req.ToModel())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, d)
}

// GET /api/v1/fleet/devices/{id}
func (c *InventoryController) GetDeviceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := c.inventory.GetDevice(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, d)
}

// GET /api/v1/fleet/devices
func (c *InventoryController) ListDevicesHandler(w http.ResponseWriter, r *http.Request) {
	f, err := unitFilterFromQuery(r)
	if err != nil {
		badQuery(w, "status", err)
		return
	}
	page, err := c.inventory.ListDevices(r.Context(), f, pageFromQuery(r))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// DELETE /api/v1/fleet/devices/{id}
func (c *InventoryController) DeleteDeviceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.inventory.RemoveDevice(r.Context(), id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmationResponse{Message: "Device removed", ID: id})
}

// PATCH /api/v1/fleet/devices/{id}/status
func (c *InventoryController) ChangeDeviceStatusHandler(w http.ResponseWriter, r *http.Request) {
	c.changeStatus(w, r, models.UnitKindDevice)
}

// POST /api/v1/fleet/sims
func (c *InventoryController) CreateSimHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateSimRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	s, err := c.inventory.CreateSim(r.Context(), req.ToModel())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, s)
}

// GET /api/v1/fleet/sims/{id}
func (c *InventoryController) GetSimHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := c.inventory.GetSim(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, s)
}

// GET /api/v1/fleet/sims
func (c *InventoryController) ListSimsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := unitFilterFromQuery(r)
	if err != nil {
		badQuery(w, "status", err)
		return
	}
	page, err := c.inventory.ListSims(r.Context(), f, pageFromQuery(r))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// DELETE /api/v1/fleet/sims/{id}
func (c *InventoryController) DeleteSimHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.inventory.RemoveSim(r.Context(), id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmationResponse{Message: "SIM removed", ID: id})
}

// PATCH /api/v1/fleet/sims/{id}/status
func (c *InventoryController) ChangeSimStatusHandler(w http.ResponseWriter, r *http.Request) {
	c.changeStatus(w, r, models.UnitKindSim)
}

// changeStatus always answers 200; the body says whether the unit now has
// the requested status.
func (c *InventoryController) changeStatus(w http.ResponseWriter, r *http.Request, kind models.UnitKind) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.ChangeStatusRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	changed := c.inventory.ChangeStatus(r.Context(), kind, id, req.Status)
	utils.RespondWithJSON(w, http.StatusOK, dtos.ChangeStatusResponse{Changed: changed})
}
