package dtos

import "github.com/poofware/fleet-service/internal/models"

type CreateDeviceRequest struct {
	IMEI       string `json:"imei" validate:"required,numeric,min=14,max=17"`
	DeviceType string `json:"device_type" validate:"required,max=64"`
}

type CreateSimRequest struct {
	ICCID    string `json:"iccid" validate:"required,numeric,min=18,max=22"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Operator string `json:"operator" validate:"required,max=64"`
}

func (r CreateDeviceRequest) ToModel() *models.Device {
	return &models.Device{IMEI: r.IMEI, DeviceType: r.DeviceType}
}

func (r CreateSimRequest) ToModel() *models.Sim {
	return &models.Sim{ICCID: r.ICCID, Phone: r.Phone, Operator: r.Operator}
}
