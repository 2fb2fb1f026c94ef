package reviews

import (
	"context"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/policies"
	reviewsvc "wanderlust/internal/app/services/reviews"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
)

const (
	submitReviewKey   = "reviews.submit"
	deleteReviewKey   = "reviews.delete"
	moderateReviewKey = "reviews.admin.moderate"
)

type SubmitReviewCommand struct {
	Actor      policies.Actor `json:"-"`
	AuthorName string         `json:"-"`
	ListingID  string         `json:"listing_id" validate:"required"`
	Rating     int            `json:"rating" validate:"gte=1,lte=5"`
	Comment    string         `json:"comment" validate:"required"`
}

func (c SubmitReviewCommand) Key() string               { return submitReviewKey }
func (c SubmitReviewCommand) Requester() policies.Actor { return c.Actor }

type SubmitReviewHandler struct {
	Reviews *reviewsvc.Service
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (*dto.Review, error) {
	review, err := h.Reviews.Submit(ctx, reviewsvc.SubmitParams{
		ListingID:  domainlistings.ListingID(cmd.ListingID),
		AuthorID:   cmd.Actor.ID,
		AuthorName: cmd.AuthorName,
		Rating:     cmd.Rating,
		Comment:    cmd.Comment,
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapReview(review)
	return &out, nil
}

type DeleteReviewCommand struct {
	Actor    policies.Actor `json:"-"`
	ReviewID string         `json:"review_id" validate:"required"`
}

func (c DeleteReviewCommand) Key() string               { return deleteReviewKey }
func (c DeleteReviewCommand) Requester() policies.Actor { return c.Actor }

type DeleteReviewHandler struct {
	Reviews *reviewsvc.Service
}

func (h *DeleteReviewHandler) Handle(ctx context.Context, cmd DeleteReviewCommand) (struct{}, error) {
	return struct{}{}, h.Reviews.Delete(ctx, domainreviews.ReviewID(cmd.ReviewID), cmd.Actor)
}

type ModerateReviewCommand struct {
	Actor    policies.Actor `json:"-"`
	ReviewID string         `json:"review_id" validate:"required"`
	Approved bool           `json:"approved"`
}

func (c ModerateReviewCommand) Key() string               { return moderateReviewKey }
func (c ModerateReviewCommand) Requester() policies.Actor { return c.Actor }
func (c ModerateReviewCommand) AdminOnly()                {}

type ModerateReviewHandler struct {
	Reviews *reviewsvc.Service
}

func (h *ModerateReviewHandler) Handle(ctx context.Context, cmd ModerateReviewCommand) (*dto.Review, error) {
	review, err := h.Reviews.Moderate(ctx, domainreviews.ReviewID(cmd.ReviewID), cmd.Approved, cmd.Actor)
	if err != nil {
		return nil, err
	}
	out := dto.MapReview(review)
	return &out, nil
}

func Register(bus *commands.InMemoryBus, svc *reviewsvc.Service) {
	commands.RegisterHandler(bus, submitReviewKey, &SubmitReviewHandler{Reviews: svc})
	commands.RegisterHandler(bus, deleteReviewKey, &DeleteReviewHandler{Reviews: svc})
	commands.RegisterHandler(bus, moderateReviewKey, &ModerateReviewHandler{Reviews: svc})
}
