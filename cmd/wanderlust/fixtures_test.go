package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/app/dto"
	listingsapp "wanderlust/internal/app/handlers/listings"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	"wanderlust/internal/bootstrap"
	"wanderlust/internal/infra/storage/memory"
)

func newCore(t *testing.T) *bootstrap.Application {
	t.Helper()
	core, err := bootstrap.Build(bootstrap.Options{
		Storage: bootstrap.MemoryStorage(memory.NewStore()),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return core
}

func TestLoadListingFixtures(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()

	n, err := loadListingFixtures(ctx, core.Catalog, filepath.Join("..", "..", "data", "listings.json"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	public, err := queries.Ask[listingsapp.SearchListingsQuery, dto.ListingCollection](ctx, core.Queries, listingsapp.SearchListingsQuery{})
	require.NoError(t, err)
	assert.Len(t, public.Items, 3)

	featured := true
	admin, err := queries.Ask[listingsapp.AdminSearchQuery, dto.ListingCollection](ctx, core.Queries, listingsapp.AdminSearchQuery{Actor: policies.System, Featured: &featured})
	require.NoError(t, err)
	require.Len(t, admin.Items, 1)
	assert.Equal(t, "Oia", admin.Items[0].Location)
}

func TestLoadListingFixturesRejectsInvalidEntries(t *testing.T) {
	core := newCore(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"listing":{"title":""}}]`), 0o600))

	n, err := loadListingFixtures(context.Background(), core.Catalog, path)
	require.Error(t, err)
	assert.Zero(t, n)
}
