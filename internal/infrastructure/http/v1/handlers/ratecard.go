package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"quoteengine/internal/core/apperror"
	"quoteengine/internal/core/id"
	"quoteengine/internal/domain/ratecard"
	"quoteengine/internal/infrastructure/http/v1/dto"
)

// RateCardService is the admin side of rate cards.
type RateCardService interface {
	CreateCard(ctx context.Context, in ratecard.CreateCardInput) (*ratecard.RateCard, error)
	AddItem(ctx context.Context, cardID id.ID, in ratecard.AddItemInput) (*ratecard.Item, error)
	Activate(ctx context.Context, cardID id.ID) (*ratecard.RateCard, error)
	Deactivate(ctx context.Context, cardID id.ID) (*ratecard.RateCard, error)
	GetCard(ctx context.Context, cardID id.ID) (*ratecard.CardWithItems, error)
}

// RateCardHandler handles rate card administration.
type RateCardHandler struct {
	*BaseHandler
	service RateCardService
}

// NewRateCardHandler creates a new rate card handler.
func NewRateCardHandler(base *BaseHandler, service RateCardService) *RateCardHandler {
	return &RateCardHandler{BaseHandler: base, service: service}
}

// Create handles POST /api/v1/rate-cards
func (h *RateCardHandler) Create(c *gin.Context) {
	orgID, ok := h.OrganizationID(c)
	if !ok {
		return
	}

	var req dto.CreateRateCardRequest
	if !h.BindJSON(c, &req) {
		return
	}

	card, err := h.service.CreateCard(c.Request.Context(), req.ToInput(orgID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, card)
}

// Get handles GET /api/v1/rate-cards/:id
func (h *RateCardHandler) Get(c *gin.Context) {
	card, ok := h.ownedCard(c)
	if !ok {
		return
	}
	h.OK(c, card)
}

// AddItem handles POST /api/v1/rate-cards/:id/items
func (h *RateCardHandler) AddItem(c *gin.Context) {
	card, ok := h.ownedCard(c)
	if !ok {
		return
	}

	var req dto.AddRateCardItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), card.ID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, item)
}

// Activate handles POST /api/v1/rate-cards/:id/activate
func (h *RateCardHandler) Activate(c *gin.Context) {
	h.toggle(c, h.service.Activate)
}

// Deactivate handles POST /api/v1/rate-cards/:id/deactivate
func (h *RateCardHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.service.Deactivate)
}

func (h *RateCardHandler) toggle(c *gin.Context, fn func(context.Context, id.ID) (*ratecard.RateCard, error)) {
	owned, ok := h.ownedCard(c)
	if !ok {
		return
	}

	card, err := fn(c.Request.Context(), owned.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, card)
}

// ownedCard loads the :id card and checks it belongs to the caller's
// organization. Foreign cards are reported as missing.
func (h *RateCardHandler) ownedCard(c *gin.Context) (*ratecard.CardWithItems, bool) {
	orgID, ok := h.OrganizationID(c)
	if !ok {
		return nil, false
	}
	cardID, ok := h.PathID(c)
	if !ok {
		return nil, false
	}

	card, err := h.service.GetCard(c.Request.Context(), cardID)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	if card.OrganizationID != orgID {
		h.Error(c, apperror.NewNotFound("rate card", cardID.String()))
		return nil, false
	}
	return card, true
}
