package models

// Response is the outcome of one dispatch
type Response struct {
	Status  Status `json:"status,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Details string `json:"details,omitempty"`
}

// NewResponse creates a successful response carrying payload
func NewResponse(payload any) *Response {
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// Failed creates a failed response with no payload
func Failed(status Status, details string) *Response {
	return &Response{
		Status:  status,
		Details: details,
	}
}

// CreateResult is the payload of create and upsert responses
type CreateResult struct {
	ID string `json:"id"`
}
