package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

// timestampFormat renders timestamps in the mapper's millisecond UTC layout
const timestampFormat = `'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"'`

// EntityReader implements repositories.EntityReader. Every column is
// selected in its textual form so rows can be decoded by entity mappers.
type EntityReader struct {
	db     *DB
	logger *zap.Logger
}

// NewEntityReader creates a new entity reader
func NewEntityReader(db *DB, logger *zap.Logger) repositories.EntityReader {
	return &EntityReader{
		db:     db,
		logger: logger,
	}
}

func selectExpr(c models.Column) string {
	col := pq.QuoteIdentifier(c.Name)
	switch {
	case c.Kind.IsGeometry():
		return fmt.Sprintf("ST_AsEWKT(%s) AS %s", col, col)
	case c.Kind == models.ColumnTimestamp:
		// timestamp without time zone is taken in the session zone before the shift to UTC
		return fmt.Sprintf("to_char(%s::timestamptz AT TIME ZONE 'UTC', %s) AS %s", col, timestampFormat, col)
	default:
		return fmt.Sprintf("%s::text AS %s", col, col)
	}
}

func selectList(t models.TableDescriptor) string {
	exprs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		exprs[i] = selectExpr(c)
	}
	return strings.Join(exprs, ", ")
}

// FindByID returns the row whose primary key equals id
func (r *EntityReader) FindByID(ctx context.Context, t models.TableDescriptor, id string) (repositories.Row, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s::text = $1",
		selectList(t), pq.QuoteIdentifier(t.Table), pq.QuoteIdentifier(t.PKColumn))

	rows, err := r.query(ctx, t, query, id)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Search returns rows matching every condition of q, ordered by primary key
func (r *EntityReader) Search(ctx context.Context, t models.TableDescriptor, q repositories.Query) ([]repositories.Row, error) {
	where, args, err := buildWhere(t, q.Conditions)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectList(t), pq.QuoteIdentifier(t.Table))
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	fmt.Fprintf(&sb, " ORDER BY %s", pq.QuoteIdentifier(t.PKColumn))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return r.query(ctx, t, sb.String(), args...)
}

// buildWhere renders conditions as placeholders. Columns must belong to the table.
func buildWhere(t models.TableDescriptor, conds []repositories.Condition) (string, []interface{}, error) {
	parts := make([]string, 0, len(conds))
	args := make([]interface{}, 0, len(conds))
	for _, c := range conds {
		if _, ok := t.Column(c.Column); !ok {
			return "", nil, services.ContractViolation(fmt.Sprintf("unknown search column %q", c.Column))
		}
		col := pq.QuoteIdentifier(c.Column)
		switch c.Operator {
		case repositories.OpEquals:
			args = append(args, c.Value)
			parts = append(parts, fmt.Sprintf("%s::text = $%d", col, len(args)))
		case repositories.OpPrefix:
			args = append(args, escapeLike(c.Value)+"%")
			parts = append(parts, fmt.Sprintf("%s::text ILIKE $%d", col, len(args)))
		default:
			return "", nil, services.ContractViolation(fmt.Sprintf("unsupported search operator %q", c.Operator))
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *EntityReader) query(ctx context.Context, t models.TableDescriptor, query string, args ...interface{}) ([]repositories.Row, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Table, err)
	}
	defer rows.Close()

	var out []repositories.Row
	for rows.Next() {
		values := make([]sql.NullString, len(t.Columns))
		dest := make([]interface{}, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.Table, err)
		}

		row := make(repositories.Row, len(t.Columns))
		for i, c := range t.Columns {
			if values[i].Valid {
				row[c.Name] = values[i].String
			} else {
				row[c.Name] = nil
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", t.Table, err)
	}

	r.logger.Debug("rows read", zap.String("table", t.Table), zap.Int("count", len(out)))
	return out, nil
}
