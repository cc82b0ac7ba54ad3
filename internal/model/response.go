package model

type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Status  int          `json:"status"`
	Error   bool         `json:"error"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

type APIResponse struct {
	Status       int    `json:"status"`
	Error        bool   `json:"error"`
	Message      string `json:"message"`
	Data         any    `json:"data,omitempty"`
	TotalRecords *int   `json:"total_records,omitempty"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
