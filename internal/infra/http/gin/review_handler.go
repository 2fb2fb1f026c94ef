package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	reviewsapp "wanderlust/internal/app/handlers/reviews"
	"wanderlust/internal/app/queries"
)

type ReviewHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h ReviewHandler) List(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	q := reviewsapp.ListListingReviewsQuery{ListingID: c.Param("id"), Limit: limit, Offset: offset}
	result, err := queries.Ask[reviewsapp.ListListingReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReviewHandler) Submit(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req submitReviewRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cmd := reviewsapp.SubmitReviewCommand{
		Actor:      p.Actor(),
		AuthorName: p.Username,
		ListingID:  c.Param("id"),
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	review, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, *dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h ReviewHandler) Delete(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	cmd := reviewsapp.DeleteReviewCommand{Actor: p.Actor(), ReviewID: c.Param("id")}
	if _, err := commands.Dispatch[reviewsapp.DeleteReviewCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ ReviewHTTP = ReviewHandler{}
