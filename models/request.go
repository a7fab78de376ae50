package models

// RequestContext carries provenance propagated verbatim from the inbound message.
type RequestContext struct {
	SourceSystem                string `json:"source_system,omitempty"`
	SourceApplication           string `json:"source_application,omitempty"`
	BusinessProcessID           string `json:"business_process_id,omitempty"`
	BusinessProcessDefinitionID string `json:"business_process_definition_id,omitempty"`
	BusinessActivityID          string `json:"business_activity_id,omitempty"`
	CorrelationID               string `json:"correlation_id,omitempty"`
}

// SecurityContext carries the credentials attached to an inbound message
type SecurityContext struct {
	AccessToken              string `json:"-"`
	DigitalSignature         string `json:"-"`
	DigitalSignatureChecksum string `json:"-"`
	DerivedSignature         string `json:"-"`
	DerivedSignatureChecksum string `json:"-"`
}

// Request is one decoded inbound message. It is not modified after decoding.
type Request[P any] struct {
	Payload  P
	Context  RequestContext
	Security SecurityContext

	// ContentKey identifies the stored reference signature ("digital seal")
	// for the payload. Empty when the message did not carry one.
	ContentKey string

	// RawPayload is the payload exactly as received, used for signature verification.
	RawPayload []byte
}

// EntityID is the payload of read requests
type EntityID struct {
	ID string `json:"id" validate:"required"`
}

// Paging is embedded by search criteria types
type Paging struct {
	Limit  *int `json:"limit,omitempty" validate:"omitempty,min=0"`
	Offset *int `json:"offset,omitempty" validate:"omitempty,min=0"`
}
