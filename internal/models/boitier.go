package models

import "time"

// Boitier pairs one device with one SIM card. It is the unit that gets
// mounted on a vehicle and mirrored on the tracking platform.
type Boitier struct {
	ID        int64     `json:"id"`
	DeviceID  int64     `json:"device_id"`
	SimID     int64     `json:"sim_id"`
	VehicleID *int64    `json:"vehicle_id,omitempty"`
	TraccarID *int64    `json:"traccar_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *Boitier) IsAssigned() bool { return b.VehicleID != nil }

// BoitierDetails is a boitier loaded with its units and subscription history.
type BoitierDetails struct {
	Boitier
	Device        *Device         `json:"device"`
	Sim           *Sim            `json:"sim"`
	Subscriptions []*Subscription `json:"subscriptions"`
}

func (d *BoitierDetails) Current() *Subscription {
	return CurrentSubscription(d.Subscriptions)
}
