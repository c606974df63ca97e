package constants

import "time"

const DefaultAppName = "fleet-service"

// External tracking platform
const (
	DefaultTraccarTimeout = 10 * time.Second
)

// Expiry alert scheduling
const (
	ExpiryAlertCronSpec   = "0 6 * * *" // 06:00 in APP_TIMEZONE, daily
	ExpiryAlertJobTimeout = 2 * time.Minute
)

// Email subjects and content
const (
	EmailSubjectExpiryAlert = "Fleet subscriptions: %d expiring soon, %d expired"
	DefaultAlertFromEmail   = "no-reply@fleet.local"
	AlertFromName           = "Fleet Service"
)

// Ledger export
const (
	LedgerExportSheet    = "Stock"
	LedgerExportFilename = "stock_ledger.xlsx"
	XLSXContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Request handling
const (
	RequestIDHeader = "X-Request-ID"
	QueryParamLost  = "lost"
)

// CORS
const CORSLowSecurityAllowedOriginLocalhost = "http://localhost:3000"
