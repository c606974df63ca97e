package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/middleware"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
)

type VehicleController struct {
	vehicles *services.VehicleService
	validate *validator.Validate
}

func NewVehicleController(s *services.VehicleService) *VehicleController {
	return &VehicleController{
		vehicles: s,
		validate: validator.New(),
	}
}

// POST /api/v1/fleet/vehicles
func (c *VehicleController) AssignVehicleHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "AssignVehicleHandler")

	var req dtos.AssignVehicleRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	logger = logger.WithField("matricule", req.Matricule)

	resp, err := c.vehicles.Assign(r.Context(), middleware.AuthHeaderFromContext(r.Context()), services.VehicleInput{
		Matricule:   req.Matricule,
		ClientID:    req.ClientID,
		VehicleType: req.VehicleType,
		BoitierIDs:  req.BoitierIDs,
	})
	if err != nil {
		logger.WithError(err).Warn("Vehicle assignment failed")
		utils.HandleAppError(w, err)
		return
	}
	logger.WithField("vehicle_id", resp.ID).Info("Vehicle assigned")
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/fleet/vehicles/{id}
func (c *VehicleController) GetVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resp, err := c.vehicles.Get(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/fleet/vehicles?client_id=&vehicle_type=&search=
func (c *VehicleController) ListVehiclesHandler(w http.ResponseWriter, r *http.Request) {
	clientID, err := int64Query(r, "client_id")
	if err != nil {
		badQuery(w, "client_id", err)
		return
	}
	f := repositories.VehicleFilter{
		ClientID:    clientID,
		VehicleType: r.URL.Query().Get("vehicle_type"),
		Search:      r.URL.Query().Get("search"),
	}
	page, err := c.vehicles.List(r.Context(), f, pageFromQuery(r))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// PUT /api/v1/fleet/vehicles/{id}
func (c *VehicleController) UpdateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dtos.UpdateVehicleRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	resp, err := c.vehicles.Update(r.Context(), middleware.AuthHeaderFromContext(r.Context()), id, services.VehicleInput{
		Matricule:   req.Matricule,
		ClientID:    req.ClientID,
		VehicleType: req.VehicleType,
	})
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// DELETE /api/v1/fleet/vehicles/{id}?lost=
func (c *VehicleController) DeleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.vehicles.Delete(r.Context(), middleware.AuthHeaderFromContext(r.Context()), id, lostFlag(r)); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmationResponse{Message: "Vehicle deleted", ID: id})
}
