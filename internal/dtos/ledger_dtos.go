package dtos

import "github.com/poofware/fleet-service/internal/utils"

type LedgerEntryResponse struct {
	Kind       string     `json:"unit_kind"`
	BucketDate utils.Date `json:"bucket_date"`
	Category   string     `json:"category"`
	Quantity   int        `json:"quantity"`
}
