package models

// Message header names
const (
	HeaderAuthorization               = "Authorization"
	HeaderContentKey                  = "X-Content-Key"
	HeaderCorrelationID               = "X-Correlation-Id"
	HeaderReplyTopic                  = "X-Reply-Topic"
	HeaderSourceSystem                = "X-Source-System"
	HeaderSourceApplication           = "X-Source-Application"
	HeaderBusinessProcessID           = "X-Business-Process-Id"
	HeaderBusinessProcessDefinitionID = "X-Business-Process-Definition-Id"
	HeaderBusinessActivityID          = "X-Business-Activity-Id"
	HeaderDigitalSignature            = "X-Digital-Signature"
	HeaderDigitalSignatureChecksum    = "X-Digital-Signature-Checksum"
	HeaderDerivedSignature            = "X-Derived-Signature"
	HeaderDerivedSignatureChecksum    = "X-Derived-Signature-Checksum"
)
