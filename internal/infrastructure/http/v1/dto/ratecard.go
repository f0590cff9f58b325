package dto

import (
	"time"

	"quoteengine/internal/core/id"
	"quoteengine/internal/core/types"
	"quoteengine/internal/domain/ratecard"
)

// CreateRateCardRequest creates a new card version.
type CreateRateCardRequest struct {
	Name           string     `json:"name" binding:"required,max=200"`
	Currency       string     `json:"currency" binding:"required,iso4217,known_currency"`
	EffectiveFrom  time.Time  `json:"effectiveFrom" binding:"required"`
	EffectiveUntil *time.Time `json:"effectiveUntil"`
	IsDefault      bool       `json:"isDefault"`
	// IsActive defaults to true.
	IsActive *bool `json:"isActive"`
}

// ToInput converts the body into service input.
func (r *CreateRateCardRequest) ToInput(orgID id.ID) ratecard.CreateCardInput {
	active := r.IsActive == nil || *r.IsActive
	return ratecard.CreateCardInput{
		OrganizationID: orgID,
		Name:           r.Name,
		Currency:       r.Currency,
		EffectiveFrom:  r.EffectiveFrom,
		EffectiveUntil: r.EffectiveUntil,
		IsDefault:      r.IsDefault,
		IsActive:       active,
	}
}

// AddRateCardItemRequest adds an item version to a card.
type AddRateCardItemRequest struct {
	ItemCode       string      `json:"itemCode" binding:"required,max=100"`
	BaseRate       types.Money `json:"baseRate"`
	TaxClass       string      `json:"taxClass" binding:"omitempty,max=50"`
	EffectiveFrom  time.Time   `json:"effectiveFrom" binding:"required"`
	EffectiveUntil *time.Time  `json:"effectiveUntil"`
}

// ToInput converts the body into service input.
func (r *AddRateCardItemRequest) ToInput() ratecard.AddItemInput {
	return ratecard.AddItemInput{
		ItemCode:       r.ItemCode,
		BaseRate:       r.BaseRate,
		TaxClass:       r.TaxClass,
		EffectiveFrom:  r.EffectiveFrom,
		EffectiveUntil: r.EffectiveUntil,
	}
}
