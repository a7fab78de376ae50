package audit

import (
	"context"
	"sort"

	"github.com/upb/entitybus/middleware"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services/mapper"
)

// AuditedDML records every write that reaches the stored procedures
type AuditedDML struct {
	inner       repositories.DMLRepository
	interceptor *Interceptor
}

// NewAuditedDML decorates inner
func NewAuditedDML(inner repositories.DMLRepository, interceptor *Interceptor) *AuditedDML {
	return &AuditedDML{inner: inner, interceptor: interceptor}
}

func dmlCall(ctx context.Context, method string, action models.AuditAction, args models.DmlOperationArgs) Call {
	source := middleware.GetRequestContextFromContext(ctx)
	if source.SourceSystem == "" && args.SysValues != nil {
		source.SourceSystem = args.SysValues[mapper.SysSourceSystem]
		source.SourceApplication = args.SysValues[mapper.SysSourceApplication]
		source.BusinessProcessID = args.SysValues[mapper.SysBusinessProcessID]
		source.BusinessProcessDefinitionID = args.SysValues[mapper.SysBusinessProcessDefinitionID]
		source.BusinessActivityID = args.SysValues[mapper.SysBusinessActivityID]
	}

	return Call{
		Method:   method,
		Action:   action,
		Table:    args.TableName,
		EntityID: args.EntityID,
		Fields:   businessFields(args.BusinessValues),
		Claims:   args.Claims,
		Source:   source,
	}
}

// businessFields lists the written columns in sorted order
func businessFields(values map[string]any) []string {
	if len(values) == 0 {
		return nil
	}
	fields := make([]string, 0, len(values))
	for k := range values {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Save implements repositories.DMLRepository
func (d *AuditedDML) Save(ctx context.Context, args models.DmlOperationArgs) (string, error) {
	return Around(ctx, d.interceptor, dmlCall(ctx, "save", models.AuditActionCreate, args),
		func(ctx context.Context) (string, error) {
			return d.inner.Save(ctx, args)
		},
		func(id string, after *models.AuditEvent) {
			after.WithEntity(id)
		})
}

// Update implements repositories.DMLRepository
func (d *AuditedDML) Update(ctx context.Context, args models.DmlOperationArgs) error {
	return around0(ctx, d.interceptor, dmlCall(ctx, "update", models.AuditActionUpdate, args),
		func(ctx context.Context) error {
			return d.inner.Update(ctx, args)
		})
}

// Delete implements repositories.DMLRepository
func (d *AuditedDML) Delete(ctx context.Context, args models.DmlOperationArgs) error {
	return around0(ctx, d.interceptor, dmlCall(ctx, "delete", models.AuditActionDelete, args),
		func(ctx context.Context) error {
			return d.inner.Delete(ctx, args)
		})
}
