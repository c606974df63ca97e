package dtos

// Generic confirmation response.
type ConfirmationResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// Paged wraps one page of a listing.
type Paged[T any] struct {
	Data     []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ChangeStatusResponse struct {
	Changed bool `json:"changed"`
}
