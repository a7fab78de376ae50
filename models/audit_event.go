package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of operation being audited
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionRead   AuditAction = "READ"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	AuditActionSearch AuditAction = "SEARCH"
)

const busActionPrefix = "KAFKA REQUEST "

// Bus returns the action in the namespace used for calls arriving over the message bus
func (a AuditAction) Bus() AuditAction {
	return AuditAction(busActionPrefix + string(a))
}

// SecurityAction names the audit action recorded for a security-relevant outcome
func SecurityAction(status Status) AuditAction {
	return AuditAction("SECURITY " + string(status))
}

// AuditStep marks whether an event precedes or follows the audited call
type AuditStep string

const (
	AuditStepBefore AuditStep = "BEFORE"
	AuditStepAfter  AuditStep = "AFTER"
)

// AuditCategory routes events to the right downstream consumer
type AuditCategory string

const (
	AuditCategoryUserAction AuditCategory = "user-action"
	AuditCategorySecurity   AuditCategory = "security"
)

// UserInfo identifies who triggered an audited operation
type UserInfo struct {
	UserID      string   `json:"user_id,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// AuditEvent is one fire-and-forget record sent to the audit sink
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	Category   AuditCategory  `json:"category"`
	MethodName string         `json:"method_name"`
	TableName  string         `json:"table_name,omitempty"`
	Action     AuditAction    `json:"action"`
	Step       AuditStep      `json:"step"`
	EntityID   string         `json:"entity_id,omitempty"`
	Fields     []string       `json:"fields,omitempty"`
	Status     Status         `json:"status,omitempty"`
	UserInfo   UserInfo       `json:"user_info"`
	SourceInfo RequestContext `json:"source_info"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewAuditEvent creates a user-action event
func NewAuditEvent(method string, action AuditAction, step AuditStep) *AuditEvent {
	return &AuditEvent{
		ID:         uuid.New(),
		Category:   AuditCategoryUserAction,
		MethodName: method,
		Action:     action,
		Step:       step,
		Timestamp:  time.Now().UTC(),
	}
}

// NewSecurityEvent creates an event for a rejected or forbidden request
func NewSecurityEvent(method string, status Status) *AuditEvent {
	return &AuditEvent{
		ID:         uuid.New(),
		Category:   AuditCategorySecurity,
		MethodName: method,
		Action:     SecurityAction(status),
		Step:       AuditStepAfter,
		Status:     status,
		Timestamp:  time.Now().UTC(),
	}
}

// WithTable sets the table name
func (e *AuditEvent) WithTable(table string) *AuditEvent {
	e.TableName = table
	return e
}

// WithEntity sets the entity id
func (e *AuditEvent) WithEntity(id string) *AuditEvent {
	e.EntityID = id
	return e
}

// WithFields sets the touched or returned column names
func (e *AuditEvent) WithFields(fields []string) *AuditEvent {
	e.Fields = fields
	return e
}

// WithUser copies identity from claims
func (e *AuditEvent) WithUser(c Claims) *AuditEvent {
	e.UserInfo = UserInfo{
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		Roles:       c.Roles,
	}
	return e
}

// WithSource sets request provenance
func (e *AuditEvent) WithSource(rc RequestContext) *AuditEvent {
	e.SourceInfo = rc
	return e
}

// PartitionKey keeps all events of one request on the same partition
func (e *AuditEvent) PartitionKey() string {
	if e.SourceInfo.CorrelationID != "" {
		return e.SourceInfo.CorrelationID
	}
	return e.ID.String()
}
