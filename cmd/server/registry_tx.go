package main

import (
	"context"
	"database/sql"
	"time"

	"atomfleet/pkg/platform/tx"
)

const defaultRegistryTxTimeout = 5 * time.Second

// registryPostgresTx runs registry mutations inside one database
// transaction. The open *sql.Tx travels through the context, so the unit
// and interval stores write through the same transaction and a failed
// interval append rolls the unit write back with it.
type registryPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRegistryPostgresTx(db *sql.DB) *registryPostgresTx {
	return &registryPostgresTx{db: db}
}

func (t *registryPostgresTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRegistryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}

	return dbTx.Commit()
}
