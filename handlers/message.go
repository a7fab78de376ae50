package handlers

import (
	"strings"

	"github.com/upb/entitybus/models"
)

// Message is one inbound bus record, independent of the transport
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Header returns the value of header name, matched case-insensitively
func (m *Message) Header(name string) string {
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// bearerToken strips an optional "Bearer " scheme
func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

// RequestMetadata extracts provenance, credentials and the content key from the headers
func RequestMetadata(m *Message) (models.RequestContext, models.SecurityContext, string) {
	rc := models.RequestContext{
		SourceSystem:                m.Header(models.HeaderSourceSystem),
		SourceApplication:           m.Header(models.HeaderSourceApplication),
		BusinessProcessID:           m.Header(models.HeaderBusinessProcessID),
		BusinessProcessDefinitionID: m.Header(models.HeaderBusinessProcessDefinitionID),
		BusinessActivityID:          m.Header(models.HeaderBusinessActivityID),
		CorrelationID:               m.Header(models.HeaderCorrelationID),
	}
	sc := models.SecurityContext{
		AccessToken:              bearerToken(m.Header(models.HeaderAuthorization)),
		DigitalSignature:         m.Header(models.HeaderDigitalSignature),
		DigitalSignatureChecksum: m.Header(models.HeaderDigitalSignatureChecksum),
		DerivedSignature:         m.Header(models.HeaderDerivedSignature),
		DerivedSignatureChecksum: m.Header(models.HeaderDerivedSignatureChecksum),
	}
	return rc, sc, m.Header(models.HeaderContentKey)
}
