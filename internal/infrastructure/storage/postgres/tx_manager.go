package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quoteengine/internal/core/tx"
	"quoteengine/pkg/logger"
)

var tracer = otel.Tracer("quoteengine/tx")

var _ tx.Manager = (*TxManager)(nil)

// DefaultStatementTimeout bounds every statement of a rate card write.
const DefaultStatementTimeout = 30 * time.Second

// TxManager runs rate card writes in READ COMMITTED transactions.
// A call made while a transaction is already in ctx joins it, so a service
// method and the repository calls beneath it share one transaction.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// NewTxManager creates a transaction manager. timeout <= 0 disables the
// per-transaction statement timeout.
func NewTxManager(pool *Pool, timeout time.Duration) *TxManager {
	return &TxManager{pool: pool.Pool, statementTimeout: timeout}
}

type txKey struct{}

// Tx is the transaction carried in a context.
type Tx struct {
	pgx.Tx
}

func txFromContext(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// RunInTransaction executes fn within a transaction, joining the one in ctx
// if there is one. fn's error rolls back; otherwise the transaction commits.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(pgx.ReadCommitted)),
			attribute.Int64("tx.statement_timeout_ms", m.statementTimeout.Milliseconds()),
		))
	defer span.End()

	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		span.SetStatus(codes.Error, "begin")
		return fmt.Errorf("begin transaction: %w", err)
	}

	if stmt := statementTimeoutSQL(m.statementTimeout); stmt != "" {
		if _, err := pgTx.Exec(ctx, stmt); err != nil {
			_ = pgTx.Rollback(context.Background())
			span.SetStatus(codes.Error, "statement_timeout")
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx})); err != nil {
		// The caller's ctx may already be cancelled; the rollback must still run.
		if rbErr := pgTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		span.SetStatus(codes.Error, "commit")
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func statementTimeoutSQL(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf("SET LOCAL statement_timeout = %d", d.Milliseconds())
}

// Querier is satisfied by both the pool and an open transaction, so
// repositories work inside and outside transactions alike.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool outside one.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := txFromContext(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}
