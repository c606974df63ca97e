package models

import (
	"strings"
	"time"
)

// UnitStatus is the lifecycle state shared by devices and SIM cards.
type UnitStatus string

const (
	UnitStatusNonInstalled UnitStatus = "NON_INSTALLED"
	UnitStatusPending      UnitStatus = "PENDING"
	UnitStatusInstalled    UnitStatus = "INSTALLED"
	UnitStatusLost         UnitStatus = "LOST"
)

// ParseUnitStatus accepts a status name in any case.
func ParseUnitStatus(s string) (UnitStatus, bool) {
	switch UnitStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case UnitStatusNonInstalled:
		return UnitStatusNonInstalled, true
	case UnitStatusPending:
		return UnitStatusPending, true
	case UnitStatusInstalled:
		return UnitStatusInstalled, true
	case UnitStatusLost:
		return UnitStatusLost, true
	}
	return "", false
}

// UnitKind tells the two inventory variants apart.
type UnitKind string

const (
	UnitKindDevice UnitKind = "DEVICE"
	UnitKindSim    UnitKind = "SIM"
)

func ParseUnitKind(s string) (UnitKind, bool) {
	switch UnitKind(strings.ToUpper(strings.TrimSpace(s))) {
	case UnitKindDevice:
		return UnitKindDevice, true
	case UnitKindSim:
		return UnitKindSim, true
	}
	return "", false
}

// InventoryUnit is the lifecycle view of a Device or a Sim.
type InventoryUnit interface {
	Kind() UnitKind
	GetID() int64
	GetStatus() UnitStatus
	GetBoitierID() *int64
	// LedgerCategory is the stock-ledger dimension: operator for a SIM,
	// device type for a device.
	LedgerCategory() string
	GetCreatedAt() time.Time
}
