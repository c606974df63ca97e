package models

import "time"

// Sim is a cellular card, grouped in stock by its carrier.
type Sim struct {
	ID        int64      `json:"id"`
	ICCID     string     `json:"iccid"`
	Phone     string     `json:"phone"`
	Operator  string     `json:"operator"`
	Status    UnitStatus `json:"status"`
	BoitierID *int64     `json:"boitier_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *Sim) Kind() UnitKind          { return UnitKindSim }
func (s *Sim) GetID() int64            { return s.ID }
func (s *Sim) GetStatus() UnitStatus   { return s.Status }
func (s *Sim) GetBoitierID() *int64    { return s.BoitierID }
func (s *Sim) LedgerCategory() string  { return s.Operator }
func (s *Sim) GetCreatedAt() time.Time { return s.CreatedAt }
