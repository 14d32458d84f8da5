package service

import "context"

// TxRunner scopes a function to one atomic storage commit. The postgres
// runner begins a transaction and threads it through context for the
// stores; the memory runner is a passthrough because atomicity there comes
// from the per-unit write lock.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner runs the function directly. Used with memory stores.
type NopTxRunner struct{}

func (NopTxRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
