package models

import "time"

// Vehicle carries zero or more boitiers. Matricule is unique fleet-wide.
type Vehicle struct {
	ID          int64     `json:"id"`
	Matricule   string    `json:"matricule"`
	ClientID    int64     `json:"client_id"`
	VehicleType string    `json:"vehicle_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Client owns vehicles. Client records are managed elsewhere; this service
// only resolves them.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
