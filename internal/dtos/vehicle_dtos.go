package dtos

import "github.com/poofware/fleet-service/internal/models"

// AssignVehicleRequest creates a vehicle and binds the listed boitiers to it.
type AssignVehicleRequest struct {
	Matricule   string  `json:"matricule" validate:"required,min=2,max=32"`
	ClientID    int64   `json:"client_id" validate:"required,gt=0"`
	VehicleType string  `json:"vehicle_type" validate:"max=64"`
	BoitierIDs  []int64 `json:"boitier_ids" validate:"unique,dive,gt=0"`
}

type UpdateVehicleRequest struct {
	Matricule   string `json:"matricule" validate:"required,min=2,max=32"`
	ClientID    int64  `json:"client_id" validate:"required,gt=0"`
	VehicleType string `json:"vehicle_type" validate:"max=64"`
}

type VehicleResponse struct {
	models.Vehicle
	Boitiers []BoitierResponse `json:"boitiers"`
}
