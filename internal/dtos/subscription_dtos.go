package dtos

import "github.com/poofware/fleet-service/internal/utils"

type RenewSubscriptionRequest struct {
	StartDate utils.Date `json:"start_date"`
	EndDate   utils.Date `json:"end_date"`
}

// SubscriptionSummaryResponse counts current subscriptions per time-left
// status, one per boitier.
type SubscriptionSummaryResponse struct {
	Current int `json:"current"`
	Close   int `json:"close"`
	Left    int `json:"left"`
	Total   int `json:"total"`
}

// ExpiringBoitier is one line of an expiry alert.
type ExpiringBoitier struct {
	BoitierID int64      `json:"boitier_id"`
	EndDate   utils.Date `json:"end_date"`
	TimeLeft  string     `json:"time_left"`
}

type ClassifyResponse struct {
	EndDate  utils.Date `json:"end_date"`
	TimeLeft string     `json:"time_left"`
	Status   string     `json:"status"`
}
