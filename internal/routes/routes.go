package routes

const (
	// Health
	Health  = "/health"
	Metrics = "/metrics"

	// Inventory
	Devices      = "/api/v1/fleet/devices"
	Device       = "/api/v1/fleet/devices/{id:[0-9]+}"
	DeviceStatus = "/api/v1/fleet/devices/{id:[0-9]+}/status"
	Sims         = "/api/v1/fleet/sims"
	Sim          = "/api/v1/fleet/sims/{id:[0-9]+}"
	SimStatus    = "/api/v1/fleet/sims/{id:[0-9]+}/status"

	// Boitiers and their subscriptions
	Boitiers             = "/api/v1/fleet/boitiers"
	Boitier              = "/api/v1/fleet/boitiers/{id:[0-9]+}"
	BoitierSubscriptions = "/api/v1/fleet/boitiers/{id:[0-9]+}/subscriptions"

	// Vehicles
	Vehicles = "/api/v1/fleet/vehicles"
	Vehicle  = "/api/v1/fleet/vehicles/{id:[0-9]+}"

	// Subscriptions
	SubscriptionsSummary  = "/api/v1/fleet/subscriptions/summary"
	SubscriptionsClassify = "/api/v1/fleet/subscriptions/classify"
	SubscriptionsExpiring = "/api/v1/fleet/subscriptions/expiring"

	// Stock ledger
	StockLedger       = "/api/v1/fleet/stock-ledger"
	StockLedgerExport = "/api/v1/fleet/stock-ledger/export"
)
