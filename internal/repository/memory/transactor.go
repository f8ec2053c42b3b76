package memory

import "context"

// Transactor runs the function directly. Each memory repository call is atomic on
// its own; there is no cross-repository rollback.
type Transactor struct{}

func (Transactor) WithTx(ctx context.Context, function func(ctx context.Context) error) error {
	return function(ctx)
}
