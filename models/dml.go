package models

import "fmt"

// DmlOperation identifies the stored procedure a write is routed to
type DmlOperation string

const (
	DmlInsert DmlOperation = "insert"
	DmlUpdate DmlOperation = "update"
	DmlDelete DmlOperation = "delete"
)

// DmlOperationArgs is everything one stored-procedure write needs
type DmlOperationArgs struct {
	TableName      string
	Claims         Claims
	EntityID       string
	SysValues      map[string]string
	BusinessValues map[string]any
}

// Validate checks the argument shape required by op
func (a DmlOperationArgs) Validate(op DmlOperation) error {
	if a.TableName == "" {
		return fmt.Errorf("%s: table name is required", op)
	}
	if a.SysValues == nil {
		return fmt.Errorf("%s: system values are required", op)
	}

	switch op {
	case DmlInsert:
		if a.EntityID != "" {
			return fmt.Errorf("insert: entity id must be empty")
		}
		if a.BusinessValues == nil {
			return fmt.Errorf("insert: business values are required")
		}
	case DmlUpdate:
		if a.EntityID == "" {
			return fmt.Errorf("update: entity id is required")
		}
		if a.BusinessValues == nil {
			return fmt.Errorf("update: business values are required")
		}
	case DmlDelete:
		if a.EntityID == "" {
			return fmt.Errorf("delete: entity id is required")
		}
		if a.BusinessValues != nil {
			return fmt.Errorf("delete: business values must be empty")
		}
	default:
		return fmt.Errorf("unknown dml operation %q", op)
	}
	return nil
}
