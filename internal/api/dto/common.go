package dto

type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// ListResponse wraps collection results.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}
