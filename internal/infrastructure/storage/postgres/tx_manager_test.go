package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTx struct {
	pgx.Tx
}

func TestStatementTimeoutSQL(t *testing.T) {
	assert.Equal(t, "SET LOCAL statement_timeout = 1500", statementTimeoutSQL(1500*time.Millisecond))
	assert.Equal(t, "SET LOCAL statement_timeout = 30000", statementTimeoutSQL(DefaultStatementTimeout))
	assert.Empty(t, statementTimeoutSQL(0))
}

func TestTxManager_JoinsTransactionInContext(t *testing.T) {
	// no pool: a nested call must never begin its own transaction
	m := &TxManager{}
	outer := &stubTx{}
	ctx := context.WithValue(context.Background(), txKey{}, &Tx{Tx: outer})

	var seen Querier
	err := m.RunInTransaction(ctx, func(ctx context.Context) error {
		seen = m.GetQuerier(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, outer, seen)

	boom := errors.New("boom")
	err = m.RunInTransaction(ctx, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestTxManager_QuerierOutsideTransaction(t *testing.T) {
	m := &TxManager{}
	assert.Nil(t, txFromContext(context.Background()))
	q := m.GetQuerier(context.Background())
	assert.Equal(t, Querier(m.pool), q)
}
