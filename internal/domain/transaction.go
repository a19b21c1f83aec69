package domain

import "context"

// TransactionManager runs a function within a storage transaction. The
// transaction travels in the context so repositories can pick it up without
// knowing about the driver.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
