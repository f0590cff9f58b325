// Package catalog_repo holds repositories for reference catalogs.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"quoteengine/internal/domain/currency"
	"quoteengine/internal/infrastructure/storage/postgres"
)

const currencyTable = "currencies"

// CurrencyRepo implements currency.Repository.
type CurrencyRepo struct {
	txm     *postgres.TxManager
	columns []string
}

var _ currency.Repository = (*CurrencyRepo)(nil)

// NewCurrencyRepo creates a new currency repository.
func NewCurrencyRepo(txm *postgres.TxManager) *CurrencyRepo {
	return &CurrencyRepo{
		txm:     txm,
		columns: postgres.ExtractDBColumns[currency.Currency](),
	}
}

func (r *CurrencyRepo) listQuery() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(r.columns...).
		From(currencyTable).
		OrderBy("iso_code")
}

// List returns the whole catalog ordered by ISO code.
func (r *CurrencyRepo) List(ctx context.Context) ([]currency.Currency, error) {
	sql, args, err := r.listQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []currency.Currency
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return out, nil
}
