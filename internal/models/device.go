package models

import "time"

// Device is a GPS tracking unit identified by its IMEI.
type Device struct {
	ID         int64      `json:"id"`
	IMEI       string     `json:"imei"`
	DeviceType string     `json:"device_type"`
	Status     UnitStatus `json:"status"`
	BoitierID  *int64     `json:"boitier_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (d *Device) Kind() UnitKind          { return UnitKindDevice }
func (d *Device) GetID() int64            { return d.ID }
func (d *Device) GetStatus() UnitStatus   { return d.Status }
func (d *Device) GetBoitierID() *int64    { return d.BoitierID }
func (d *Device) LedgerCategory() string  { return d.DeviceType }
func (d *Device) GetCreatedAt() time.Time { return d.CreatedAt }
