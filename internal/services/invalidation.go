package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
)

// InvalidationService fans deletions out across every cache key family that
// a mutation can make stale. All of it is best-effort: an invalidation
// failure is logged and must never abort the mutation that triggered it, and
// a failure in one branch never blocks the others.
type InvalidationService interface {
	// InvalidateBookCache drops the book's own entries plus every cached
	// list that might embed it; when the mutation is user-scoped, the user's
	// derived caches go too.
	InvalidateBookCache(ctx context.Context, bookID string, userID *uuid.UUID)
	// InvalidateRatingCaches additionally clears the cached list views of
	// every user who saved the book and every playlist containing it, since
	// those embed a combined-rating snapshot.
	InvalidateRatingCaches(ctx context.Context, bookID string)
	// InvalidatePlaylist drops one playlist's cached views.
	InvalidatePlaylist(ctx context.Context, playlistID uuid.UUID)
}

type invalidationService struct {
	db            *gorm.DB
	log           *logger.Logger
	store         cache.Store
	savedBookRepo repos.SavedBookRepo
	playlistRepo  repos.PlaylistRepo
}

func NewInvalidationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store cache.Store,
	savedBookRepo repos.SavedBookRepo,
	playlistRepo repos.PlaylistRepo,
) InvalidationService {
	serviceLog := baseLog.With("service", "InvalidationService")
	return &invalidationService{
		db:            db,
		log:           serviceLog,
		store:         store,
		savedBookRepo: savedBookRepo,
		playlistRepo:  playlistRepo,
	}
}

func (is *invalidationService) InvalidateBookCache(ctx context.Context, bookID string, userID *uuid.UUID) {
	is.store.Del(ctx,
		cache.BookKey(bookID),
		cache.BookDetailKey(bookID),
		cache.CombinedRatingKey(bookID),
		cache.UpstreamRatingKey(bookID),
	)

	// Conservative: any cached list could embed this book's rating.
	is.store.DelPattern(ctx, cache.SearchPattern())
	is.store.DelPattern(ctx, cache.SubjectPattern())
	is.store.DelPattern(ctx, cache.TrendingPattern())

	if userID == nil {
		return
	}
	is.store.DelPattern(ctx, cache.RecommendationsPattern(*userID))
	is.store.Del(ctx,
		cache.UserPreferencesKey(*userID),
		cache.ExcludedBooksKey(*userID),
	)
	is.store.DelPattern(ctx, cache.SavedBooksPattern(*userID))
}

func (is *invalidationService) InvalidateRatingCaches(ctx context.Context, bookID string) {
	userIDs, err := is.savedBookRepo.UserIDsForBook(ctx, nil, bookID)
	if err != nil {
		is.log.Warn("Could not enumerate savers for invalidation", "book", bookID, "error", err)
	} else {
		for _, userID := range userIDs {
			is.store.DelPattern(ctx, cache.SavedBooksPattern(userID))
		}
	}

	playlistIDs, err := is.playlistRepo.PlaylistIDsForBook(ctx, nil, bookID)
	if err != nil {
		is.log.Warn("Could not enumerate playlists for invalidation", "book", bookID, "error", err)
		return
	}
	for _, playlistID := range playlistIDs {
		is.store.DelPattern(ctx, cache.PlaylistPattern(playlistID))
	}
}

func (is *invalidationService) InvalidatePlaylist(ctx context.Context, playlistID uuid.UUID) {
	is.store.DelPattern(ctx, cache.PlaylistPattern(playlistID))
}
