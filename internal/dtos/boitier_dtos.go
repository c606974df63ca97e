package dtos

import (
	"github.com/poofware/fleet-service/internal/models"
	"github.com/poofware/fleet-service/internal/utils"
)

// CreateBoitierRequest names each unit either by stock id or inline as a
// new unit; exactly one of the two must be set per unit.
type CreateBoitierRequest struct {
	DeviceID  int64                `json:"device_id,omitempty" validate:"required_without=NewDevice,excluded_with=NewDevice"`
	NewDevice *CreateDeviceRequest `json:"new_device,omitempty" validate:"omitempty"`
	SimID     int64                `json:"sim_id,omitempty" validate:"required_without=NewSim,excluded_with=NewSim"`
	NewSim    *CreateSimRequest    `json:"new_sim,omitempty" validate:"omitempty"`
	StartDate utils.Date           `json:"start_date"`
	EndDate   utils.Date           `json:"end_date"`
}

// UpdateBoitierRequest swaps units when a different id (or an inline unit)
// is given; zero ids keep the current unit.
type UpdateBoitierRequest struct {
	DeviceID  int64                `json:"device_id,omitempty" validate:"excluded_with=NewDevice"`
	NewDevice *CreateDeviceRequest `json:"new_device,omitempty" validate:"omitempty"`
	SimID     int64                `json:"sim_id,omitempty" validate:"excluded_with=NewSim"`
	NewSim    *CreateSimRequest    `json:"new_sim,omitempty" validate:"omitempty"`
	StartDate utils.Date           `json:"start_date"`
	EndDate   utils.Date           `json:"end_date"`
}

type SubscriptionDTO struct {
	ID        int64      `json:"id"`
	StartDate utils.Date `json:"start_date"`
	EndDate   utils.Date `json:"end_date"`
}

// BoitierResponse is a boitier with its units, subscription history and the
// time left on its current subscription.
type BoitierResponse struct {
	ID             int64             `json:"id"`
	VehicleID      *int64            `json:"vehicle_id,omitempty"`
	TraccarID      *int64            `json:"traccar_id,omitempty"`
	Device         *models.Device    `json:"device"`
	Sim            *models.Sim       `json:"sim"`
	Subscriptions  []SubscriptionDTO `json:"subscriptions"`
	Current        *SubscriptionDTO  `json:"current_subscription,omitempty"`
	TimeLeft       string            `json:"time_left"`
	TimeLeftStatus string            `json:"status"`
}

func NewSubscriptionDTO(s *models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{ID: s.ID, StartDate: utils.NewDate(s.StartDate), EndDate: utils.NewDate(s.EndDate)}
}
