package dtos

// ValidationErrorDetail is the structured payload for a failed validation rule.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}
