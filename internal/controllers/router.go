package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/poofware/fleet-service/internal/middleware"
	"github.com/poofware/fleet-service/internal/routes"
)

// Controllers groups every HTTP controller of the service.
type Controllers struct {
	Health        *HealthController
	Inventory     *InventoryController
	Boitiers      *BoitierController
	Vehicles      *VehicleController
	Subscriptions *SubscriptionController
	Ledger        *LedgerController
}

// NewRouter mounts the health probe and the fleet API. Extra handlers
// (such as /metrics) can be added by the caller on the returned router.
func NewRouter(cs *Controllers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.AccessLog)

	// Public
	router.HandleFunc(routes.Health, cs.Health.HealthCheckHandler).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(middleware.ForwardAuth)

	api.HandleFunc(routes.Devices, cs.Inventory.CreateDeviceHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.Devices, cs.Inventory.ListDevicesHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Device, cs.Inventory.GetDeviceHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Device, cs.Inventory.DeleteDeviceHandler).Methods(http.MethodDelete)
	api.HandleFunc(routes.DeviceStatus, cs.Inventory.ChangeDeviceStatusHandler).Methods(http.MethodPatch)

	api.HandleFunc(routes.Sims, cs.Inventory.CreateSimHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.Sims, cs.Inventory.ListSimsHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Sim, cs.Inventory.GetSimHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Sim, cs.Inventory.DeleteSimHandler).Methods(http.MethodDelete)
	api.HandleFunc(routes.SimStatus, cs.Inventory.ChangeSimStatusHandler).Methods(http.MethodPatch)

	api.HandleFunc(routes.Boitiers, cs.Boitiers.CreateBoitierHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.Boitiers, cs.Boitiers.ListBoitiersHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Boitier, cs.Boitiers.GetBoitierHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Boitier, cs.Boitiers.UpdateBoitierHandler).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc(routes.Boitier, cs.Boitiers.DeleteBoitierHandler).Methods(http.MethodDelete)
	api.HandleFunc(routes.BoitierSubscriptions, cs.Subscriptions.RenewHandler).Methods(http.MethodPost)

	api.HandleFunc(routes.Vehicles, cs.Vehicles.AssignVehicleHandler).Methods(http.MethodPost)
	api.HandleFunc(routes.Vehicles, cs.Vehicles.ListVehiclesHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Vehicle, cs.Vehicles.GetVehicleHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.Vehicle, cs.Vehicles.UpdateVehicleHandler).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc(routes.Vehicle, cs.Vehicles.DeleteVehicleHandler).Methods(http.MethodDelete)

	api.HandleFunc(routes.SubscriptionsSummary, cs.Subscriptions.SummaryHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.SubscriptionsExpiring, cs.Subscriptions.ExpiringHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.SubscriptionsClassify, cs.Subscriptions.ClassifyHandler).Methods(http.MethodGet)

	api.HandleFunc(routes.StockLedger, cs.Ledger.ListHandler).Methods(http.MethodGet)
	api.HandleFunc(routes.StockLedgerExport, cs.Ledger.ExportHandler).Methods(http.MethodGet)

	return router
}
