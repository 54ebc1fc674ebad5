package handlers

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error string `json:"error" example:"detection is not running"`
}

// SuccessResponse is returned for control requests without a payload
type SuccessResponse struct {
	Message string `json:"message" example:"Detection started"`
}
