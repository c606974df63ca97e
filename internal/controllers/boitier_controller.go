package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/middleware"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
)

type BoitierController struct {
	boitiers *services.BoitierService
	validate *validator.Validate
}

func NewBoitierController(s *services.BoitierService) *BoitierController {
	return &BoitierController{
		boitiers: s,
		validate: validator.New(),
	}
}

func boitierInput(deviceID int64, newDevice *dtos.CreateDeviceRequest, simID int64, newSim *dtos.CreateSimRequest, start, end utils.Date) services.BoitierInput {
	in := services.BoitierInput{
		DeviceID:  deviceID,
		SimID:     simID,
		StartDate: start.Time,
		EndDate:   end.Time,
	}
	if newDevice != nil {
		in.NewDevice = newDevice.ToModel()
	}
	if newSim != nil {
		in.NewSim = newSim.ToModel()
	}
	return in
}

// POST /api/v1/fleet/boitiers
func (c *BoitierController) CreateBoitierHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "CreateBoitierHandler")

	var req dtos.CreateBoitierRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	in := boitierInput(req.DeviceID, req.NewDevice, req.SimID, req.NewSim, req.StartDate, req.EndDate)

	resp, err := c.boitiers.Create(r.Context(), in)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	logger.WithField("boitier_id", resp.ID).Info("Boitier created")
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/fleet/boitiers/{id}
func (c *BoitierController) GetBoitierHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resp, err := c.boitiers.Get(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/fleet/boitiers?assigned=&vehicle_id=&search=
func (c *BoitierController) ListBoitiersHandler(w http.ResponseWriter, r *http.Request) {
	f := repositories.BoitierFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("assigned"); raw != "" {
		assigned, err := strconv.ParseBool(raw)
		if err != nil {
			badQuery(w, "assigned", err)
			return
		}
		f.Assigned = &assigned
	}
	vehicleID, err := int64Query(r, "vehicle_id")
	if err != nil {
		badQuery(w, "vehicle_id", err)
		return
	}
	f.VehicleID = vehicleID

	page, err := c.boitiers.List(r.Context(), f, pageFromQuery(r))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// PUT /api/v1/fleet/boitiers/{id}
func (c *BoitierController) UpdateBoitierHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "UpdateBoitierHandler")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.UpdateBoitierRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	in := boitierInput(req.DeviceID, req.NewDevice, req.SimID, req.NewSim, req.StartDate, req.EndDate)

	resp, err := c.boitiers.Update(r.Context(), middleware.AuthHeaderFromContext(r.Context()), id, in)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	logger.WithField("boitier_id", id).Info("Boitier updated")
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/fleet/boitiers/{id}?lost=
func (c *BoitierController) DeleteBoitierHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lost := lostFlag(r)
	if err := c.boitiers.Delete(r.Context(), middleware.AuthHeaderFromContext(r.Context()), id, lost); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.Logger.WithField("boitier_id", id).WithField("lost", lost).Info("Boitier deleted")
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmationResponse{Message: "Boitier deleted", ID: id})
}
