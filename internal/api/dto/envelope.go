package dto

// Response status flags.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorResponse wraps every failure.
type ErrorResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Success builds a fresh success envelope.
func Success(data any) SuccessResponse {
	return SuccessResponse{Status: StatusSuccess, Data: data}
}

// Failure builds a fresh error envelope.
func Failure(code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message, Code: code, Details: details}
}
