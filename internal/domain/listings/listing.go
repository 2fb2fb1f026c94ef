package listings

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"wanderlust/internal/domain/shared/events"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/domain/shared/money"
)

var (
	ErrNotFound         = fmt.Errorf("listings: listing %w", failure.ErrNotFound)
	ErrForbidden        = fmt.Errorf("listings: %w", failure.ErrForbidden)
	ErrConcurrentUpdate = fmt.Errorf("listings: concurrent update: %w", failure.ErrConflict)
	ErrNotBookable      = fmt.Errorf("listings: listing is not open for booking: %w", failure.ErrNotFound)
)

type ListingID string

// Image references an object produced by the external image store.
type Image struct {
	URL      string `json:"url" validate:"required,http_url"`
	Filename string `json:"filename" validate:"required"`
}

// Fields is the owner-editable part of a listing. Create and Update validate the whole set.
type Fields struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"required,max=5000"`
	Image       *Image `json:"image" validate:"required"`
	Price       int64  `json:"price" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Location    string `json:"location" validate:"required"`
	Country     string `json:"country" validate:"required"`
	Category    string `json:"category" validate:"required,category"`
	MaxGuests   int    `json:"max_guests" validate:"gte=0,lte=100"`
}

func (f Fields) normalized() Fields {
	out := f
	out.Title = strings.TrimSpace(f.Title)
	out.Description = strings.TrimSpace(f.Description)
	out.Location = strings.TrimSpace(f.Location)
	out.Country = strings.TrimSpace(f.Country)
	out.Category = strings.TrimSpace(f.Category)
	out.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	if f.Image != nil {
		out.Image = &Image{URL: strings.TrimSpace(f.Image.URL), Filename: strings.TrimSpace(f.Image.Filename)}
	}
	return out
}

type Listing struct {
	ID            ListingID
	OwnerID       string
	Title         string
	Description   string
	Image         Image
	Price         money.Money
	Location      string
	Country       string
	Category      Category
	MaxGuests     int
	Geometry      *orb.Point
	Status        Status
	Featured      bool
	Views         int64
	UniqueViewers []string
	ReviewIDs     []string
	RatingSum     int64
	RatingCount   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

// RatingChange is applied atomically by repositories to keep the aggregate incremental.
type RatingChange struct {
	ReviewID string
	Rating   int
	Removed  bool
}

type Stats struct {
	Total      int
	Pending    int
	Featured   int
	ByCategory map[Category]int
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	Search(ctx context.Context, params SearchParams) ([]*Listing, error)
	// RecordView counts fingerprint once; reports whether the counter moved.
	RecordView(ctx context.Context, id ListingID, fingerprint string) (bool, error)
	ApplyRating(ctx context.Context, id ListingID, change RatingChange) error
	Stats(ctx context.Context) (Stats, error)
}

type CreateParams struct {
	ID              ListingID
	OwnerID         string
	Fields          Fields
	DefaultCurrency string
	Now             time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, failure.NewValidation("id", "is required")
	}
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, failure.NewValidation("owner", "is required")
	}
	now := params.Now.UTC()
	l := &Listing{
		ID:        params.ID,
		OwnerID:   params.OwnerID,
		Status:    StatusPending,
		CreatedAt: now,
	}
	if _, err := l.apply(params.Fields, params.DefaultCurrency, now); err != nil {
		return nil, err
	}
	l.Record(ListingCreated{ListingID: l.ID, OwnerID: l.OwnerID, Category: l.Category, At: now})
	return l, nil
}

// Update re-validates the full record. It reports whether the geocoded address moved.
func (l *Listing) Update(fields Fields, now time.Time) (bool, error) {
	moved, err := l.apply(fields, l.Price.Currency, now.UTC())
	if err != nil {
		return false, err
	}
	l.Record(ListingUpdated{ListingID: l.ID, At: l.UpdatedAt})
	return moved, nil
}

func (l *Listing) apply(fields Fields, fallbackCurrency string, now time.Time) (bool, error) {
	fields = fields.normalized()
	if err := fields.Validate(); err != nil {
		return false, err
	}
	currency := fields.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	price, err := money.New(fields.Price, currency)
	if err != nil {
		return false, failure.NewValidation("currency", err.Error())
	}
	category, _ := ParseCategory(fields.Category)
	moved := !strings.EqualFold(l.Location, fields.Location) || !strings.EqualFold(l.Country, fields.Country)

	l.Title = fields.Title
	l.Description = fields.Description
	l.Image = *fields.Image
	l.Price = price
	l.Location = fields.Location
	l.Country = fields.Country
	l.Category = category
	l.MaxGuests = fields.MaxGuests
	l.UpdatedAt = now
	if moved {
		l.Geometry = nil
	}
	return moved, nil
}

// Fields returns the editable part, e.g. to merge a partial update.
func (l *Listing) Fields() Fields {
	img := l.Image
	return Fields{
		Title:       l.Title,
		Description: l.Description,
		Image:       &img,
		Price:       l.Price.Amount,
		Currency:    l.Price.Currency,
		Location:    l.Location,
		Country:     l.Country,
		Category:    string(l.Category),
		MaxGuests:   l.MaxGuests,
	}
}

func (l *Listing) CanManage(requesterID string, isAdmin bool) bool {
	return isAdmin || (requesterID != "" && requesterID == l.OwnerID)
}

func (l *Listing) Bookable() bool {
	return l.Status == StatusApproved
}

func (l *Listing) SetStatus(status Status, now time.Time) error {
	if _, ok := ParseStatus(string(status)); !ok {
		return failure.NewValidation("status", "must be one of pending, approved, rejected")
	}
	if l.Status == status {
		return nil
	}
	from := l.Status
	l.Status = status
	l.UpdatedAt = now.UTC()
	l.Record(ListingStatusChanged{ListingID: l.ID, From: from, To: status, At: l.UpdatedAt})
	return nil
}

func (l *Listing) SetFeatured(featured bool, now time.Time) {
	if l.Featured == featured {
		return
	}
	l.Featured = featured
	l.UpdatedAt = now.UTC()
	l.Record(ListingFeatured{ListingID: l.ID, Featured: featured, At: l.UpdatedAt})
}

func (l *Listing) SetGeometry(point *orb.Point, now time.Time) {
	l.Geometry = point
	l.UpdatedAt = now.UTC()
}

// MarkDeleted records the deletion event; the repository removes the record.
func (l *Listing) MarkDeleted(now time.Time) {
	l.Record(ListingDeleted{ListingID: l.ID, ImageFile: l.Image.Filename, At: now.UTC()})
}

// RegisterView is the in-memory form of Repository.RecordView.
func (l *Listing) RegisterView(fingerprint string) bool {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" || slices.Contains(l.UniqueViewers, fingerprint) {
		return false
	}
	l.UniqueViewers = append(l.UniqueViewers, fingerprint)
	l.Views++
	return true
}

// ApplyRating is the in-memory form of Repository.ApplyRating. Repeated changes are ignored.
func (l *Listing) ApplyRating(change RatingChange) bool {
	idx := slices.Index(l.ReviewIDs, change.ReviewID)
	switch {
	case change.Removed && idx >= 0:
		l.ReviewIDs = slices.Delete(l.ReviewIDs, idx, idx+1)
		l.RatingSum -= int64(change.Rating)
		l.RatingCount--
	case !change.Removed && idx < 0:
		l.ReviewIDs = append(l.ReviewIDs, change.ReviewID)
		l.RatingSum += int64(change.Rating)
		l.RatingCount++
	default:
		return false
	}
	return true
}

func (l *Listing) AverageRating() float64 {
	if l.RatingCount <= 0 {
		return 0
	}
	return float64(l.RatingSum) / float64(l.RatingCount)
}

// Clone returns a deep copy without pending events.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := &Listing{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Description:   l.Description,
		Image:         l.Image,
		Price:         l.Price,
		Location:      l.Location,
		Country:       l.Country,
		Category:      l.Category,
		MaxGuests:     l.MaxGuests,
		Status:        l.Status,
		Featured:      l.Featured,
		Views:         l.Views,
		UniqueViewers: slices.Clone(l.UniqueViewers),
		ReviewIDs:     slices.Clone(l.ReviewIDs),
		RatingSum:     l.RatingSum,
		RatingCount:   l.RatingCount,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		Version:       l.Version,
	}
	if l.Geometry != nil {
		p := *l.Geometry
		out.Geometry = &p
	}
	return out
}
