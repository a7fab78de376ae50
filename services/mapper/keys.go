package mapper

import (
	"fmt"

	"github.com/upb/entitybus/models"
)

// GetPrimaryKey returns the primary key value from values without modifying the map.
// A nil or empty value counts as absent.
func GetPrimaryKey(values map[string]any, pkColumn string) (string, bool) {
	v, ok := values[pkColumn]
	if !ok || v == nil {
		return "", false
	}
	var id string
	switch t := v.(type) {
	case string:
		id = t
	case fmt.Stringer:
		id = t.String()
	default:
		id = fmt.Sprint(t)
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// TakePrimaryKey returns the primary key and removes the column from values
func TakePrimaryKey(values map[string]any, pkColumn string) (string, bool) {
	id, ok := GetPrimaryKey(values, pkColumn)
	delete(values, pkColumn)
	return id, ok
}

// PopulatedFields lists, in the order of fields, the columns whose value is
// present and not empty. It returns nil when none are.
func PopulatedFields(values map[string]any, fields []string) []string {
	var out []string
	for _, f := range fields {
		v, ok := values[f]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// System value keys passed to every write procedure
const (
	SysCurrentUser                 = "curr_user"
	SysSourceSystem                = "source_system"
	SysSourceApplication           = "source_application"
	SysBusinessProcessID           = "business_process_id"
	SysBusinessProcessDefinitionID = "business_process_definition_id"
	SysBusinessActivityID          = "business_activity_id"
	SysDigitalSignature            = "digital_signature"
	SysDigitalSignatureChecksum    = "digital_signature_checksum"
	SysDerivedSignature            = "derived_signature"
	SysDerivedSignatureChecksum    = "derived_signature_checksum"
)

// BuildSysValues builds the provenance map for a write. Every key is always
// present, with an empty string when the request did not carry the value.
func BuildSysValues(userID string, rc models.RequestContext, sc models.SecurityContext) map[string]string {
	return map[string]string{
		SysCurrentUser:                 userID,
		SysSourceSystem:                rc.SourceSystem,
		SysSourceApplication:           rc.SourceApplication,
		SysBusinessProcessID:           rc.BusinessProcessID,
		SysBusinessProcessDefinitionID: rc.BusinessProcessDefinitionID,
		SysBusinessActivityID:          rc.BusinessActivityID,
		SysDigitalSignature:            sc.DigitalSignature,
		SysDigitalSignatureChecksum:    sc.DigitalSignatureChecksum,
		SysDerivedSignature:            sc.DerivedSignature,
		SysDerivedSignatureChecksum:    sc.DerivedSignatureChecksum,
	}
}
