package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/openshelf/openshelf-backend/internal/clients/openlibrary"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

func newCatalogFixture(client *fakeOLClient) (CatalogService, *memStore) {
	store := newMemStore()
	cfg := DefaultCatalogConfig()
	cfg.DetailEnrichLimit = 0 // enrichment has its own tests via GetBook
	return NewCatalogService(logger.NewNop(), store, client, cfg), store
}

func TestSearch_CachesByCanonicalQuery(t *testing.T) {
	client := &fakeOLClient{searchResult: &types.SearchResult{
		Total: 1,
		Books: []*types.BookSummary{{ID: "OL1W", Title: "Dune"}},
	}}
	svc, _ := newCatalogFixture(client)

	q := openlibrary.SearchQuery{Query: "dune", Limit: 20}
	first := svc.Search(context.Background(), q)
	if first.Total != 1 || len(first.Books) != 1 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	// Second identical query must come from cache, not the client.
	second := svc.Search(context.Background(), q)
	if second.Total != 1 || len(second.Books) != 1 || second.Books[0].ID != "OL1W" {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if client.searchCalls != 1 {
		t.Fatalf("client called %d times, want 1", client.searchCalls)
	}
}

func TestSearch_UpstreamFailureReturnsEmptyResult(t *testing.T) {
	client := &fakeOLClient{searchErr: fmt.Errorf("upstream 500")}
	svc, _ := newCatalogFixture(client)

	got := svc.Search(context.Background(), openlibrary.SearchQuery{Query: "dune"})
	if got == nil || got.Total != 0 || len(got.Books) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestSearch_SurvivesUnavailableStore(t *testing.T) {
	client := &fakeOLClient{searchResult: &types.SearchResult{
		Total: 1,
		Books: []*types.BookSummary{{ID: "OL1W"}},
	}}
	store := newMemStore()
	store.down = true
	cfg := DefaultCatalogConfig()
	cfg.DetailEnrichLimit = 0
	svc := NewCatalogService(logger.NewNop(), store, client, cfg)

	got := svc.Search(context.Background(), openlibrary.SearchQuery{Query: "dune"})
	if got.Total != 1 || len(got.Books) != 1 {
		t.Fatalf("expected upstream result despite dead cache, got %+v", got)
	}
}

func TestGetBook_NotFoundPropagates(t *testing.T) {
	client := &fakeOLClient{workErr: openlibrary.ErrNotFound}
	svc, _ := newCatalogFixture(client)

	if _, err := svc.GetBook(context.Background(), "OLMISSINGW"); err != openlibrary.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetBook_CachesSummaryAlongsideDetail(t *testing.T) {
	detail := &types.BookDetail{BookSummary: types.BookSummary{ID: "OL1W", Title: "Dune"}}
	client := &fakeOLClient{work: detail}
	svc, _ := newCatalogFixture(client)

	if _, err := svc.GetBook(context.Background(), "OL1W"); err != nil {
		t.Fatalf("GetBook: %v", err)
	}

	// The summary written as a side effect must satisfy batch lookups.
	books := svc.GetBooks(context.Background(), []string{"OL1W"})
	if books["OL1W"] == nil || books["OL1W"].Title != "Dune" {
		t.Fatalf("summary not cached alongside detail: %+v", books)
	}
	if len(client.batchCalls) != 0 {
		t.Fatalf("batch endpoint called despite warm cache: %v", client.batchCalls)
	}
}

func TestGetBooks_FetchesOnlyMisses(t *testing.T) {
	client := &fakeOLClient{batch: map[string]*types.BookSummary{
		"OL2W": {ID: "OL2W", Title: "Hyperion"},
	}}
	svc, store := newCatalogFixture(client)

	store.Set(context.Background(), "book:OL1W", &types.BookSummary{ID: "OL1W", Title: "Dune"}, 0)

	books := svc.GetBooks(context.Background(), []string{"OL1W", "OL2W", "OL3W"})
	if len(books) != 2 {
		t.Fatalf("len = %d, want 2 (OL3W unresolved)", len(books))
	}
	if books["OL1W"].Title != "Dune" || books["OL2W"].Title != "Hyperion" {
		t.Fatalf("unexpected books: %+v", books)
	}
	if len(client.batchCalls) != 1 {
		t.Fatalf("batch called %d times, want 1", len(client.batchCalls))
	}
	got := client.batchCalls[0]
	if len(got) != 2 || !containsStr(got, "OL2W") || !containsStr(got, "OL3W") {
		t.Fatalf("batch fetched %v, want only the misses", got)
	}
}

func TestGetBooks_BatchFailureReturnsCacheHitsOnly(t *testing.T) {
	client := &fakeOLClient{batchErr: fmt.Errorf("upstream 503")}
	svc, store := newCatalogFixture(client)

	store.Set(context.Background(), "book:OL1W", &types.BookSummary{ID: "OL1W"}, 0)

	books := svc.GetBooks(context.Background(), []string{"OL1W", "OL2W"})
	if len(books) != 1 || books["OL1W"] == nil {
		t.Fatalf("expected cache hits only, got %+v", books)
	}
}

func TestGetTrendingBooks_EnrichesMissingRatings(t *testing.T) {
	client := &fakeOLClient{
		trending: []*types.BookSummary{{ID: "OL1W"}},
		rating:   &types.UpstreamRating{Average: floatPtr(4.1), Count: 12},
	}
	svc, _ := newCatalogFixture(client)

	books := svc.GetTrendingBooks(context.Background(), "daily", 5)
	if len(books) != 1 {
		t.Fatalf("len = %d, want 1", len(books))
	}
	if books[0].UpstreamRating == nil || *books[0].UpstreamRating != 4.1 || books[0].UpstreamRatingCount != 12 {
		t.Fatalf("rating not enriched: %+v", books[0])
	}
}

func TestGetUpstreamRating_FailureIsAbsorbed(t *testing.T) {
	client := &fakeOLClient{ratingErr: fmt.Errorf("upstream 500")}
	svc, _ := newCatalogFixture(client)

	if got := svc.GetUpstreamRating(context.Background(), "OL1W"); got != nil {
		t.Fatalf("expected nil rating on failure, got %+v", got)
	}
}
