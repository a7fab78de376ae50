package repositories

import (
	"context"
	"errors"

	"github.com/upb/entitybus/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

type transactionContextKey struct{}

// ContextWithTransaction returns a context that carries tx. Repositories
// called with it run their statements inside tx.
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// TransactionFromContext retrieves a transaction from the context if available
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(Transaction)
	return tx, ok
}

// DMLRepository writes entity rows through the row-level stored procedures
type DMLRepository interface {
	// Save inserts a row and returns the generated id
	Save(ctx context.Context, args models.DmlOperationArgs) (string, error)

	// Update updates the row identified by args.EntityID
	Update(ctx context.Context, args models.DmlOperationArgs) error

	// Delete deletes the row identified by args.EntityID
	Delete(ctx context.Context, args models.DmlOperationArgs) error
}

// AccessChecker answers field-level read permission questions
type AccessChecker interface {
	HasReadAccess(ctx context.Context, table string, claims models.Claims, fields []string) (bool, error)
}

// Operator is a search predicate operator
type Operator string

const (
	OpEquals Operator = "eq"
	// OpPrefix is a case-insensitive prefix match
	OpPrefix Operator = "prefix"
)

// Condition is one predicate over a column
type Condition struct {
	Column   string
	Operator Operator
	Value    string
}

// Query is a conjunction of conditions with optional paging
type Query struct {
	Conditions []Condition
	// Limit of zero means no limit
	Limit  int
	Offset int
}

// Row is one materialized row. Values are the textual column
// representations or nil for SQL NULL.
type Row map[string]any

// EntityReader reads entity rows
type EntityReader interface {
	// FindByID returns the row with the given primary key. found is false when no row matches.
	FindByID(ctx context.Context, table models.TableDescriptor, id string) (row Row, found bool, err error)

	// Search returns the rows matching q
	Search(ctx context.Context, table models.TableDescriptor, q Query) ([]Row, error)
}

// ErrBlobUnavailable is returned when the blob store cannot be reached
var ErrBlobUnavailable = errors.New("blob store unavailable")

// BlobStore stores opaque string content under (bucket, key)
type BlobStore interface {
	PutContent(ctx context.Context, bucket, key, content string) error

	// GetContent returns found == false when nothing is stored under the key
	GetContent(ctx context.Context, bucket, key string) (content string, found bool, err error)
}

// Repositories groups the database-backed ports
type Repositories struct {
	DML          DMLRepository
	Access       AccessChecker
	Reader       EntityReader
	Transactions TransactionManager
}
