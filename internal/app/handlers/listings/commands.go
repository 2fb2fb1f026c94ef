package listings

import (
	"context"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/services/catalog"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/failure"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
	recordViewKey    = "listings.view"
	setStatusKey     = "listings.admin.status"
	setFeaturedKey   = "listings.admin.featured"
)

// Fields are validated by the listing aggregate itself.
type CreateListingCommand struct {
	Actor  policies.Actor        `json:"-"`
	Fields domainlistings.Fields `json:"fields" validate:"-"`
}

func (c CreateListingCommand) Key() string               { return createListingKey }
func (c CreateListingCommand) Requester() policies.Actor { return c.Actor }

type CreateListingHandler struct {
	Catalog *catalog.Service
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	return mapped(h.Catalog.Create(ctx, cmd.Actor.ID, cmd.Fields))
}

type UpdateListingCommand struct {
	Actor     policies.Actor        `json:"-"`
	ListingID string                `json:"listing_id" validate:"required"`
	Fields    domainlistings.Fields `json:"fields" validate:"-"`
}

func (c UpdateListingCommand) Key() string               { return updateListingKey }
func (c UpdateListingCommand) Requester() policies.Actor { return c.Actor }

type UpdateListingHandler struct {
	Catalog *catalog.Service
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	return mapped(h.Catalog.Update(ctx, domainlistings.ListingID(cmd.ListingID), cmd.Actor, cmd.Fields))
}

type DeleteListingCommand struct {
	Actor     policies.Actor `json:"-"`
	ListingID string         `json:"listing_id" validate:"required"`
}

func (c DeleteListingCommand) Key() string               { return deleteListingKey }
func (c DeleteListingCommand) Requester() policies.Actor { return c.Actor }

type DeleteListingHandler struct {
	Catalog *catalog.Service
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (struct{}, error) {
	return struct{}{}, h.Catalog.Delete(ctx, domainlistings.ListingID(cmd.ListingID), cmd.Actor)
}

// RecordViewCommand is open to anonymous visitors; Viewer is set when signed in.
type RecordViewCommand struct {
	Viewer      policies.Actor `json:"-"`
	ListingID   string         `json:"listing_id" validate:"required"`
	Fingerprint string         `json:"fingerprint" validate:"max=256"`
}

func (c RecordViewCommand) Key() string { return recordViewKey }

type RecordViewResult struct {
	Counted bool `json:"counted"`
}

type RecordViewHandler struct {
	Catalog *catalog.Service
}

func (h *RecordViewHandler) Handle(ctx context.Context, cmd RecordViewCommand) (*RecordViewResult, error) {
	counted, err := h.Catalog.RecordView(ctx, catalog.ViewParams{
		ListingID:   domainlistings.ListingID(cmd.ListingID),
		Fingerprint: cmd.Fingerprint,
		ViewerID:    cmd.Viewer.ID,
	})
	if err != nil {
		return nil, err
	}
	return &RecordViewResult{Counted: counted}, nil
}

type SetStatusCommand struct {
	Actor     policies.Actor `json:"-"`
	ListingID string         `json:"listing_id" validate:"required"`
	Status    string         `json:"status" validate:"required"`
}

func (c SetStatusCommand) Key() string               { return setStatusKey }
func (c SetStatusCommand) Requester() policies.Actor { return c.Actor }
func (c SetStatusCommand) AdminOnly()                {}

type SetStatusHandler struct {
	Catalog *catalog.Service
}

func (h *SetStatusHandler) Handle(ctx context.Context, cmd SetStatusCommand) (*dto.Listing, error) {
	status, ok := domainlistings.ParseStatus(cmd.Status)
	if !ok {
		return nil, failure.NewValidation("status", "must be one of pending, approved, rejected")
	}
	return mapped(h.Catalog.SetStatus(ctx, domainlistings.ListingID(cmd.ListingID), status, cmd.Actor))
}

type SetFeaturedCommand struct {
	Actor     policies.Actor `json:"-"`
	ListingID string         `json:"listing_id" validate:"required"`
	Featured  bool           `json:"featured"`
}

func (c SetFeaturedCommand) Key() string               { return setFeaturedKey }
func (c SetFeaturedCommand) Requester() policies.Actor { return c.Actor }
func (c SetFeaturedCommand) AdminOnly()                {}

type SetFeaturedHandler struct {
	Catalog *catalog.Service
}

func (h *SetFeaturedHandler) Handle(ctx context.Context, cmd SetFeaturedCommand) (*dto.Listing, error) {
	return mapped(h.Catalog.SetFeatured(ctx, domainlistings.ListingID(cmd.ListingID), cmd.Featured, cmd.Actor))
}

func mapped(listing *domainlistings.Listing, err error) (*dto.Listing, error) {
	if err != nil {
		return nil, err
	}
	out := dto.MapListing(listing)
	return &out, nil
}

func Register(bus *commands.InMemoryBus, svc *catalog.Service) {
	commands.RegisterHandler(bus, createListingKey, &CreateListingHandler{Catalog: svc})
	commands.RegisterHandler(bus, updateListingKey, &UpdateListingHandler{Catalog: svc})
	commands.RegisterHandler(bus, deleteListingKey, &DeleteListingHandler{Catalog: svc})
	commands.RegisterHandler(bus, recordViewKey, &RecordViewHandler{Catalog: svc})
	commands.RegisterHandler(bus, setStatusKey, &SetStatusHandler{Catalog: svc})
	commands.RegisterHandler(bus, setFeaturedKey, &SetFeaturedHandler{Catalog: svc})
}
