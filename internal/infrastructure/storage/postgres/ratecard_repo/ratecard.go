// Package ratecard_repo stores rate cards and their item versions in PostgreSQL.
package ratecard_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/ratecard"
	"quoteengine/internal/infrastructure/storage/postgres"
)

const (
	cardTable = "rate_cards"
	itemTable = "rate_card_items"
)

// Most recent version first; mirrors ratecard.SelectCard.
var versionOrder = []string{"effective_from DESC", "created_at DESC", "id DESC"}

type cardRow struct {
	ID             id.ID      `db:"id"`
	OrganizationID id.ID      `db:"organization_id"`
	Name           string     `db:"name"`
	Currency       string     `db:"currency"`
	EffectiveFrom  time.Time  `db:"effective_from"`
	EffectiveUntil *time.Time `db:"effective_until"`
	IsDefault      bool       `db:"is_default"`
	IsActive       bool       `db:"is_active"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (r cardRow) toDomain() ratecard.RateCard {
	return ratecard.RateCard{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Name:           r.Name,
		Currency:       r.Currency,
		Window:         ratecard.Window{From: r.EffectiveFrom.UTC(), Until: utcPtr(r.EffectiveUntil)},
		IsDefault:      r.IsDefault,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func cardRowFrom(c *ratecard.RateCard) cardRow {
	return cardRow{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Currency:       c.Currency,
		EffectiveFrom:  c.From,
		EffectiveUntil: c.Until,
		IsDefault:      c.IsDefault,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
	}
}

// Base rates are persisted as integer minor units next to their currency.
type itemRow struct {
	ID             id.ID      `db:"id"`
	RateCardID     id.ID      `db:"rate_card_id"`
	ItemCode       string     `db:"item_code"`
	BaseRateMinor  int64      `db:"base_rate_minor"`
	Currency       string     `db:"currency"`
	TaxClass       string     `db:"tax_class"`
	EffectiveFrom  time.Time  `db:"effective_from"`
	EffectiveUntil *time.Time `db:"effective_until"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (r itemRow) toDomain() ratecard.Item {
	return ratecard.Item{
		ID:         r.ID,
		RateCardID: r.RateCardID,
		ItemCode:   r.ItemCode,
		BaseRate:   types.FromMinorUnits(r.BaseRateMinor, r.Currency),
		TaxClass:   r.TaxClass,
		Window:     ratecard.Window{From: r.EffectiveFrom.UTC(), Until: utcPtr(r.EffectiveUntil)},
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func itemRowFrom(i *ratecard.Item) itemRow {
	return itemRow{
		ID:             i.ID,
		RateCardID:     i.RateCardID,
		ItemCode:       i.ItemCode,
		BaseRateMinor:  i.BaseRate.MinorUnits(),
		Currency:       i.BaseRate.Currency(),
		TaxClass:       i.TaxClass,
		EffectiveFrom:  i.From,
		EffectiveUntil: i.Until,
		CreatedAt:      i.CreatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// RateCardRepo implements ratecard.Repository.
// Writes that change which card is effective publish the organization id on
// notifyChannel so other instances can drop their cached buckets.
type RateCardRepo struct {
	txm           *postgres.TxManager
	notifyChannel string
	cardColumns   []string
	itemColumns   []string
}

var _ ratecard.Repository = (*RateCardRepo)(nil)

// NewRateCardRepo creates the repository. An empty notifyChannel disables notifications.
func NewRateCardRepo(txm *postgres.TxManager, notifyChannel string) *RateCardRepo {
	return &RateCardRepo{
		txm:           txm,
		notifyChannel: notifyChannel,
		cardColumns:   postgres.ExtractDBColumns[cardRow](),
		itemColumns:   postgres.ExtractDBColumns[itemRow](),
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *RateCardRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// effectiveAt restricts a query to rows whose inclusive window contains at.
func effectiveAt(at time.Time) squirrel.Sqlizer {
	return squirrel.And{
		squirrel.LtOrEq{"effective_from": at},
		squirrel.Or{
			squirrel.Eq{"effective_until": nil},
			squirrel.GtOrEq{"effective_until": at},
		},
	}
}

func (r *RateCardRepo) activeCardQuery(organizationID id.ID, at time.Time) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.cardColumns...).
		From(cardTable).
		Where(squirrel.Eq{"organization_id": organizationID, "is_default": true, "is_active": true}).
		Where(effectiveAt(at)).
		OrderBy(versionOrder...).
		Limit(1)
}

func (r *RateCardRepo) defaultCardsQuery(organizationID id.ID, from, until time.Time) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.cardColumns...).
		From(cardTable).
		Where(squirrel.Eq{"organization_id": organizationID, "is_default": true, "is_active": true}).
		Where(squirrel.Lt{"effective_from": until}).
		Where(squirrel.Or{
			squirrel.Eq{"effective_until": nil},
			squirrel.GtOrEq{"effective_until": from},
		}).
		OrderBy(versionOrder...)
}

func (r *RateCardRepo) itemQuery(cardID id.ID, itemCode string, at time.Time) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.itemColumns...).
		From(itemTable).
		Where(squirrel.Eq{"rate_card_id": cardID, "item_code": itemCode}).
		Where(effectiveAt(at)).
		OrderBy(versionOrder...).
		Limit(1)
}

func (r *RateCardRepo) GetActiveCard(ctx context.Context, organizationID id.ID, at time.Time) (*ratecard.RateCard, error) {
	sql, args, err := r.activeCardQuery(organizationID, at).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row cardRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("rate card", organizationID.String()).
				WithDetail("effectiveDate", at.Format(time.RFC3339))
		}
		return nil, fmt.Errorf("get active card: %w", err)
	}

	c := row.toDomain()
	return &c, nil
}

func (r *RateCardRepo) ListDefaultCards(ctx context.Context, organizationID id.ID, from, until time.Time) ([]ratecard.RateCard, error) {
	sql, args, err := r.defaultCardsQuery(organizationID, from, until).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []cardRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list default cards: %w", err)
	}

	cards := make([]ratecard.RateCard, len(rows))
	for i, row := range rows {
		cards[i] = row.toDomain()
	}
	return cards, nil
}

func (r *RateCardRepo) GetCard(ctx context.Context, cardID id.ID) (*ratecard.RateCard, error) {
	sql, args, err := r.Builder().
		Select(r.cardColumns...).
		From(cardTable).
		Where(squirrel.Eq{"id": cardID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row cardRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("rate card", cardID.String())
		}
		return nil, fmt.Errorf("get card: %w", err)
	}

	c := row.toDomain()
	return &c, nil
}

func (r *RateCardRepo) GetItem(ctx context.Context, cardID id.ID, itemCode string, at time.Time) (*ratecard.Item, error) {
	sql, args, err := r.itemQuery(cardID, itemCode, at).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row itemRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("rate card item", itemCode).
				WithDetail("rateCardId", cardID.String())
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	it := row.toDomain()
	return &it, nil
}

func (r *RateCardRepo) CreateCard(ctx context.Context, card *ratecard.RateCard) error {
	sql, args, err := r.Builder().
		Insert(cardTable).
		SetMap(postgres.StructToMap(cardRowFrom(card))).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return r.notify(ctx, card.OrganizationID)
}

func (r *RateCardRepo) SetCardActive(ctx context.Context, cardID id.ID, active bool) error {
	sql, args, err := r.Builder().
		Update(cardTable).
		Set("is_active", active).
		Where(squirrel.Eq{"id": cardID}).
		Suffix("RETURNING organization_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var orgID id.ID
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&orgID); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound("rate card", cardID.String())
		}
		return fmt.Errorf("set card active: %w", err)
	}
	return r.notify(ctx, orgID)
}

func (r *RateCardRepo) CreateItem(ctx context.Context, item *ratecard.Item) error {
	sql, args, err := r.Builder().
		Insert(itemTable).
		SetMap(postgres.StructToMap(itemRowFrom(item))).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		// 23P01: the overlap exclusion constraint on (rate_card_id, item_code, window)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return apperror.NewConflict("item version overlaps an existing version").
				WithField("effectiveFrom").
				WithDetail("itemCode", item.ItemCode).
				WithCause(err)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *RateCardRepo) ListItems(ctx context.Context, cardID id.ID) ([]ratecard.Item, error) {
	return r.listItems(ctx, squirrel.Eq{"rate_card_id": cardID})
}

func (r *RateCardRepo) ListItemVersions(ctx context.Context, cardID id.ID, itemCode string) ([]ratecard.Item, error) {
	return r.listItems(ctx, squirrel.Eq{"rate_card_id": cardID, "item_code": itemCode})
}

func (r *RateCardRepo) listItems(ctx context.Context, where squirrel.Eq) ([]ratecard.Item, error) {
	sql, args, err := r.Builder().
		Select(r.itemColumns...).
		From(itemTable).
		Where(where).
		OrderBy("item_code", "effective_from DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]ratecard.Item, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	return items, nil
}

// notify runs inside the caller's transaction, so listeners only hear about
// committed changes.
func (r *RateCardRepo) notify(ctx context.Context, organizationID id.ID) error {
	if r.notifyChannel == "" {
		return nil
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, "SELECT pg_notify($1, $2)", r.notifyChannel, organizationID.String()); err != nil {
		return fmt.Errorf("notify %s: %w", r.notifyChannel, err)
	}
	return nil
}
