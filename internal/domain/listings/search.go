package listings

import (
	"strings"
)

// SearchParams filter the catalog. Results are ordered newest first.
// A zero Limit returns every match; paging is left to callers.
type SearchParams struct {
	Destination string
	Text        string
	Status      Status
	Featured    *bool
	OwnerID     string
	Category    Category
	Limit       int
	Offset      int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	out := p
	out.Destination = strings.ToLower(strings.TrimSpace(p.Destination))
	out.Text = strings.ToLower(strings.TrimSpace(p.Text))
	out.OwnerID = strings.TrimSpace(p.OwnerID)
	if p.Status != "" {
		status, ok := ParseStatus(string(p.Status))
		if !ok {
			status = Status(strings.ToLower(strings.TrimSpace(string(p.Status))))
		}
		out.Status = status
	}
	if p.Category != "" {
		if c, ok := ParseCategory(string(p.Category)); ok {
			out.Category = c
		}
	}
	if out.Limit < 0 {
		out.Limit = 0
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

// Matches applies normalized params to a single listing.
func (p SearchParams) Matches(l *Listing) bool {
	if p.Destination != "" &&
		!strings.Contains(strings.ToLower(l.Location), p.Destination) &&
		!strings.Contains(strings.ToLower(l.Country), p.Destination) {
		return false
	}
	if p.Text != "" &&
		!strings.Contains(strings.ToLower(l.Title), p.Text) &&
		!strings.Contains(strings.ToLower(l.Description), p.Text) {
		return false
	}
	if p.Status != "" && l.Status != p.Status {
		return false
	}
	if p.Featured != nil && l.Featured != *p.Featured {
		return false
	}
	if p.OwnerID != "" && l.OwnerID != p.OwnerID {
		return false
	}
	if p.Category != "" && l.Category != p.Category {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already ordered slice.
func (p SearchParams) Page(items []*Listing) []*Listing {
	if p.Offset >= len(items) {
		return []*Listing{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
