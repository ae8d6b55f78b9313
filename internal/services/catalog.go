package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/clients/openlibrary"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// CatalogService is the cache-first gateway to the upstream catalog. Every
// list operation degrades to an empty result on upstream failure; only
// GetBook surfaces a not-found error, because callers use it for existence
// checks.
type CatalogService interface {
	Search(ctx context.Context, q openlibrary.SearchQuery) *types.SearchResult
	GetBook(ctx context.Context, bookID string) (*types.BookDetail, error)
	GetBooks(ctx context.Context, bookIDs []string) map[string]*types.BookSummary
	GetSubjectBooks(ctx context.Context, subject string, limit, offset int) *types.SearchResult
	GetTrendingBooks(ctx context.Context, period string, limit int) []*types.BookSummary
	GetUpstreamRating(ctx context.Context, bookID string) *types.UpstreamRating
}

type CatalogConfig struct {
	SearchTTL         time.Duration
	BookTTL           time.Duration
	BookDetailTTL     time.Duration
	SubjectTTL        time.Duration
	TrendingTTL       time.Duration
	UpstreamRatingTTL time.Duration
	// DetailEnrichLimit bounds how many leading search results get a full
	// detail fetch; the rest keep the lighter search-doc fields.
	DetailEnrichLimit int
	// DetailTimeout caps each individual enrichment fetch.
	DetailTimeout time.Duration
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		SearchTTL:         10 * time.Minute,
		BookTTL:           time.Hour,
		BookDetailTTL:     time.Hour,
		SubjectTTL:        30 * time.Minute,
		TrendingTTL:       30 * time.Minute,
		UpstreamRatingTTL: time.Hour,
		DetailEnrichLimit: 6,
		DetailTimeout:     8 * time.Second,
	}
}

type catalogService struct {
	log    *logger.Logger
	store  cache.Store
	client openlibrary.Client
	cfg    CatalogConfig
}

func NewCatalogService(baseLog *logger.Logger, store cache.Store, client openlibrary.Client, cfg CatalogConfig) CatalogService {
	serviceLog := baseLog.With("service", "CatalogService")
	return &catalogService{
		log:    serviceLog,
		store:  store,
		client: client,
		cfg:    cfg,
	}
}

func (cs *catalogService) Search(ctx context.Context, q openlibrary.SearchQuery) *types.SearchResult {
	key := cache.SearchKey(q.Canonical())

	var cached types.SearchResult
	if cs.store.Get(ctx, key, &cached) {
		return &cached
	}

	result, err := cs.client.Search(ctx, q)
	if err != nil {
		cs.log.Warn("Catalog search failed, returning empty result", "error", err)
		return &types.SearchResult{Total: 0, Books: []*types.BookSummary{}}
	}

	cs.enrichLeadingBooks(ctx, result.Books)

	cs.store.Set(ctx, key, result, cs.cfg.SearchTTL)
	return result
}

// enrichLeadingBooks backfills subjects and covers for the first few results
// via the detail endpoint. Each fetch is deadline-bounded; a slow or failed
// fetch leaves that item with its search-doc fields.
func (cs *catalogService) enrichLeadingBooks(ctx context.Context, books []*types.BookSummary) {
	n := cs.cfg.DetailEnrichLimit
	if n > len(books) {
		n = len(books)
	}

	var g errgroup.Group
	for _, book := range books[:n] {
		if len(book.Subjects) > 0 && book.CoverURL != "" {
			continue
		}
		book := book
		g.Go(func() error {
			detailCtx, cancel := context.WithTimeout(ctx, cs.cfg.DetailTimeout)
			defer cancel()

			detail, err := cs.GetBook(detailCtx, book.ID)
			if err != nil {
				cs.log.Debug("Detail enrichment skipped", "book", book.ID, "error", err)
				return nil
			}
			if len(book.Subjects) == 0 {
				book.Subjects = detail.Subjects
			}
			if book.CoverURL == "" {
				book.CoverURL = detail.CoverURL
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (cs *catalogService) GetBook(ctx context.Context, bookID string) (*types.BookDetail, error) {
	key := cache.BookDetailKey(bookID)

	var cached types.BookDetail
	if cs.store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	detail, err := cs.client.GetWork(ctx, bookID)
	if err != nil {
		if err == openlibrary.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("fetch book %s: %w", bookID, err)
	}

	cs.store.Set(ctx, key, detail, cs.cfg.BookDetailTTL)
	cs.store.Set(ctx, cache.BookKey(bookID), detail.BookSummary, cs.cfg.BookTTL)
	return detail, nil
}

// GetBooks resolves summaries cache-first and batch-fetches the misses in a
// single upstream call. Ids that cannot be resolved are absent from the map.
func (cs *catalogService) GetBooks(ctx context.Context, bookIDs []string) map[string]*types.BookSummary {
	out := map[string]*types.BookSummary{}
	if len(bookIDs) == 0 {
		return out
	}

	keys := make([]string, len(bookIDs))
	for i, id := range bookIDs {
		keys[i] = cache.BookKey(id)
	}

	hits := cs.store.MGet(ctx, keys)
	var missing []string
	for i, id := range bookIDs {
		raw, ok := hits[keys[i]]
		if !ok {
			missing = append(missing, id)
			continue
		}
		var book types.BookSummary
		if err := json.Unmarshal(raw, &book); err != nil {
			missing = append(missing, id)
			continue
		}
		out[id] = &book
	}

	if len(missing) == 0 {
		return out
	}

	fetched, err := cs.client.GetBatch(ctx, missing)
	if err != nil {
		cs.log.Warn("Batch book fetch failed, returning cache hits only", "missing", len(missing), "error", err)
		return out
	}

	entries := map[string]any{}
	for id, book := range fetched {
		out[id] = book
		entries[cache.BookKey(id)] = book
	}
	cs.store.MSet(ctx, entries, cs.cfg.BookTTL)
	return out
}

func (cs *catalogService) GetSubjectBooks(ctx context.Context, subject string, limit, offset int) *types.SearchResult {
	key := cache.SubjectKey(subject, limit, offset)

	var cached types.SearchResult
	if cs.store.Get(ctx, key, &cached) {
		return &cached
	}

	result, err := cs.client.GetSubject(ctx, subject, limit, offset)
	if err != nil {
		cs.log.Warn("Subject listing failed, returning empty result", "subject", subject, "error", err)
		return &types.SearchResult{Total: 0, Books: []*types.BookSummary{}}
	}

	cs.store.Set(ctx, key, result, cs.cfg.SubjectTTL)
	return result
}

func (cs *catalogService) GetTrendingBooks(ctx context.Context, period string, limit int) []*types.BookSummary {
	key := cache.TrendingKey(period, limit)

	var cached []*types.BookSummary
	if cs.store.Get(ctx, key, &cached) {
		return cached
	}

	books, err := cs.client.GetTrending(ctx, period, limit)
	if err != nil {
		cs.log.Warn("Trending listing failed, returning empty result", "period", period, "error", err)
		return []*types.BookSummary{}
	}

	// Best-effort rating enrichment, one bounded fan-out per page. A failed
	// lookup leaves that item's rating nil.
	var g errgroup.Group
	for _, book := range books {
		if book.UpstreamRating != nil {
			continue
		}
		book := book
		g.Go(func() error {
			if rating := cs.GetUpstreamRating(ctx, book.ID); rating != nil {
				book.UpstreamRating = rating.Average
				book.UpstreamRatingCount = rating.Count
			}
			return nil
		})
	}
	_ = g.Wait()

	cs.store.Set(ctx, key, books, cs.cfg.TrendingTTL)
	return books
}

func (cs *catalogService) GetUpstreamRating(ctx context.Context, bookID string) *types.UpstreamRating {
	key := cache.UpstreamRatingKey(bookID)

	var cached types.UpstreamRating
	if cs.store.Get(ctx, key, &cached) {
		return &cached
	}

	rating, err := cs.client.GetRatings(ctx, bookID)
	if err != nil {
		cs.log.Debug("Upstream rating lookup failed", "book", bookID, "error", err)
		return nil
	}

	cs.store.Set(ctx, key, rating, cs.cfg.UpstreamRatingTTL)
	return rating
}
