package currency

import (
	"context"
	"fmt"
	"sync"

	"quoteengine/internal/core/types"
	"quoteengine/pkg/logger"
)

// Validator is the CurrencyValidator port consumed by pricing.
type Validator interface {
	IsValidCurrency(code string) bool
	GetCurrencySymbol(code string) (string, bool)
}

// Repository loads the currency catalog.
type Repository interface {
	List(ctx context.Context) ([]Currency, error)
}

// Registry is an in-process copy of the currency catalog.
// It is safe for concurrent use; Reload swaps the whole set at once.
type Registry struct {
	mu    sync.RWMutex
	byISO map[string]Currency
}

var _ Validator = (*Registry)(nil)

// NewRegistry creates a registry seeded with currencies.
func NewRegistry(currencies ...Currency) *Registry {
	r := &Registry{byISO: make(map[string]Currency, len(currencies))}
	for _, c := range currencies {
		r.byISO[c.ISOCode] = c
	}
	return r
}

// DefaultRegistry knows the currencies the service ships with.
func DefaultRegistry() *Registry {
	return NewRegistry(Defaults()...)
}

// Defaults is the built-in catalog used when no database is configured.
func Defaults() []Currency {
	return []Currency{
		{ISOCode: "NZD", Symbol: "NZ$", Name: "New Zealand dollar", DecimalPlaces: 2},
		{ISOCode: "AUD", Symbol: "A$", Name: "Australian dollar", DecimalPlaces: 2},
		{ISOCode: "USD", Symbol: "$", Name: "US dollar", DecimalPlaces: 2},
		{ISOCode: "EUR", Symbol: "€", Name: "Euro", DecimalPlaces: 2},
		{ISOCode: "GBP", Symbol: "£", Name: "Pound sterling", DecimalPlaces: 2},
		{ISOCode: "JPY", Symbol: "¥", Name: "Japanese yen", DecimalPlaces: 0},
		{ISOCode: "KWD", Symbol: "KD", Name: "Kuwaiti dinar", DecimalPlaces: 3},
	}
}

func (r *Registry) IsValidCurrency(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byISO[types.NormalizeCurrency(code)]
	return ok
}

func (r *Registry) GetCurrencySymbol(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byISO[types.NormalizeCurrency(code)]
	if !ok {
		return "", false
	}
	return c.Symbol, true
}

// Get returns the catalog row for code.
func (r *Registry) Get(code string) (Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byISO[types.NormalizeCurrency(code)]
	return c, ok
}

// Reload replaces the registry content with the repository's catalog.
// Invalid rows are skipped and logged; the previous content is kept on error.
func (r *Registry) Reload(ctx context.Context, repo Repository) error {
	rows, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load currencies: %w", err)
	}

	next := make(map[string]Currency, len(rows))
	for _, c := range rows {
		if err := c.Validate(); err != nil {
			logger.Warn(ctx, "skipping invalid currency", "iso_code", c.ISOCode, "error", err)
			continue
		}
		next[c.ISOCode] = c
	}

	r.mu.Lock()
	r.byISO = next
	r.mu.Unlock()

	logger.Info(ctx, "currency registry loaded", "count", len(next))
	return nil
}
