package ginserver

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	availabilityapp "wanderlust/internal/app/handlers/availability"
	listingsapp "wanderlust/internal/app/handlers/listings"
	"wanderlust/internal/app/queries"
	domainlistings "wanderlust/internal/domain/listings"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type viewRequest struct {
	Fingerprint string `json:"fingerprint"`
}

func (h ListingHandler) Search(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	q := listingsapp.SearchListingsQuery{
		Destination: strings.TrimSpace(c.Query("destination")),
		Category:    strings.TrimSpace(c.Query("category")),
		Status:      strings.TrimSpace(c.Query("status")),
		Limit:       limit,
		Offset:      offset,
	}
	result, err := queries.Ask[listingsapp.SearchListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Mine lists the caller's listings, pending and rejected ones included.
func (h ListingHandler) Mine(c *gin.Context) {
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
	q := listingsapp.MyListingsQuery{
		Actor:  p.Actor(),
		Status: strings.TrimSpace(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	result, err := queries.Ask[listingsapp.MyListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var fields domainlistings.Fields
	if !bindJSON(c, &fields, false) {
		return
	}
	cmd := listingsapp.CreateListingCommand{Actor: p.Actor(), Fields: fields}
	listing, err := commands.Dispatch[listingsapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h ListingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	q := listingsapp.GetListingQuery{ListingID: c.Param("id")}
	listing, err := queries.Ask[listingsapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h ListingHandler) Update(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var fields domainlistings.Fields
	if !bindJSON(c, &fields, false) {
		return
	}
	cmd := listingsapp.UpdateListingCommand{Actor: p.Actor(), ListingID: c.Param("id"), Fields: fields}
	listing, err := commands.Dispatch[listingsapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h ListingHandler) Delete(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	cmd := listingsapp.DeleteListingCommand{Actor: p.Actor(), ListingID: c.Param("id")}
	if _, err := commands.Dispatch[listingsapp.DeleteListingCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordView counts a view once per fingerprint. Without an explicit
// fingerprint the viewer is identified by account, or by address and agent.
func (h ListingHandler) RecordView(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req viewRequest
	if !bindJSON(c, &req, true) {
		return
	}
	cmd := listingsapp.RecordViewCommand{
		Viewer:      actor(c),
		ListingID:   c.Param("id"),
		Fingerprint: strings.TrimSpace(req.Fingerprint),
	}
	if cmd.Fingerprint == "" {
		cmd.Fingerprint = viewerFingerprint(c)
	}
	result, err := commands.Dispatch[listingsapp.RecordViewCommand, *listingsapp.RecordViewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Availability(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	q := availabilityapp.GetAvailabilityQuery{
		ListingID: c.Param("id"),
		From:      strings.TrimSpace(c.Query("from")),
		To:        strings.TrimSpace(c.Query("to")),
	}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func viewerFingerprint(c *gin.Context) string {
	if p, ok := currentPrincipal(c); ok {
		return "user:" + p.ID
	}
	sum := sha256.Sum256([]byte(c.ClientIP() + "|" + c.Request.UserAgent()))
	return "anon:" + hex.EncodeToString(sum[:12])
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, ok = parsePositiveInt(c, "limit", defaultPageLimit)
	if !ok {
		return 0, 0, false
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset, ok = parsePositiveInt(c, "offset", 0)
	if !ok {
		return 0, 0, false
	}
	return limit, offset, true
}

func parsePositiveInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		badRequest(c, name, "must be a non-negative integer")
		return 0, false
	}
	return value, true
}

func parseOptionalBool(c *gin.Context, name string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, name, "must be a boolean")
		return nil, false
	}
	return &value, true
}

var _ ListingHTTP = ListingHandler{}
