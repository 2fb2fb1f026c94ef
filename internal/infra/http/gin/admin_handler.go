package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	listingsapp "wanderlust/internal/app/handlers/listings"
	reviewsapp "wanderlust/internal/app/handlers/reviews"
	"wanderlust/internal/app/queries"
)

// AdminHandler serves the moderation console. The bus rejects non-admin
// callers, so handlers only require a signed-in user.
type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type setFeaturedRequest struct {
	Featured *bool `json:"featured"`
}

type moderateRequest struct {
	Approved *bool `json:"approved"`
}

func (h AdminHandler) Stats(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	stats, err := queries.Ask[listingsapp.StatsQuery, dto.Stats](c.Request.Context(), h.Queries, listingsapp.StatsQuery{Actor: p.Actor()})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h AdminHandler) Listings(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	featured, ok := parseOptionalBool(c, "featured")
	if !ok {
		return
	}
	q := listingsapp.AdminSearchQuery{
		Actor:    p.Actor(),
		Text:     strings.TrimSpace(c.Query("q")),
		Status:   strings.TrimSpace(c.Query("status")),
		Featured: featured,
		Limit:    limit,
		Offset:   offset,
	}
	result, err := queries.Ask[listingsapp.AdminSearchQuery, dto.ListingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) SetStatus(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req setStatusRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cmd := listingsapp.SetStatusCommand{Actor: p.Actor(), ListingID: c.Param("id"), Status: strings.TrimSpace(req.Status)}
	listing, err := commands.Dispatch[listingsapp.SetStatusCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h AdminHandler) SetFeatured(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req setFeaturedRequest
	if !bindJSON(c, &req, false) {
		return
	}
	if req.Featured == nil {
		badRequest(c, "featured", "required")
		return
	}
	cmd := listingsapp.SetFeaturedCommand{Actor: p.Actor(), ListingID: c.Param("id"), Featured: *req.Featured}
	listing, err := commands.Dispatch[listingsapp.SetFeaturedCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h AdminHandler) Reviews(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	q := reviewsapp.ListAllReviewsQuery{Actor: p.Actor(), Limit: limit, Offset: offset}
	result, err := queries.Ask[reviewsapp.ListAllReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Moderate approves a review; {"approved": false} withdraws the approval.
func (h AdminHandler) Moderate(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req moderateRequest
	if !bindJSON(c, &req, true) {
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}
	cmd := reviewsapp.ModerateReviewCommand{Actor: p.Actor(), ReviewID: c.Param("id"), Approved: approved}
	review, err := commands.Dispatch[reviewsapp.ModerateReviewCommand, *dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

var _ AdminHTTP = AdminHandler{}
