package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// RatingService produces the only rating figure ever shown to a user: the
// blend of the upstream crowd rating and locally collected reviews. Cached
// upstream fields on a BookSummary are never displayed directly.
type RatingService interface {
	CombineRatings(ctx context.Context, bookID string, upstreamAvg *float64, upstreamCount int) types.CombinedRating
}

type ratingService struct {
	db          *gorm.DB
	log         *logger.Logger
	store       cache.Store
	reviewRepo  repos.ReviewRepo
	combinedTTL time.Duration
}

func NewRatingService(db *gorm.DB, baseLog *logger.Logger, store cache.Store, reviewRepo repos.ReviewRepo, combinedTTL time.Duration) RatingService {
	serviceLog := baseLog.With("service", "RatingService")
	return &ratingService{
		db:          db,
		log:         serviceLog,
		store:       store,
		reviewRepo:  reviewRepo,
		combinedTTL: combinedTTL,
	}
}

func (rs *ratingService) CombineRatings(ctx context.Context, bookID string, upstreamAvg *float64, upstreamCount int) types.CombinedRating {
	key := cache.CombinedRatingKey(bookID)

	var cached types.CombinedRating
	if rs.store.Get(ctx, key, &cached) {
		return cached
	}

	var localAvg float64
	var localCount int64
	avg, count, err := rs.reviewRepo.LocalAggregate(ctx, nil, bookID)
	if err != nil {
		// Fall back to upstream-only; a rating must never fail a request.
		rs.log.Warn("Local rating aggregate failed", "book", bookID, "error", err)
	} else {
		localAvg, localCount = avg, count
	}

	combined := blendRatings(upstreamAvg, upstreamCount, localAvg, int(localCount))

	rs.store.Set(ctx, key, combined, rs.combinedTTL)
	return combined
}

// blendRatings weights each source by its rating count, falling back to
// whichever side has data when the other is empty.
func blendRatings(upstreamAvg *float64, upstreamCount int, localAvg float64, localCount int) types.CombinedRating {
	hasUpstream := upstreamAvg != nil && upstreamCount > 0
	hasLocal := localCount > 0

	switch {
	case hasUpstream && hasLocal:
		total := upstreamCount + localCount
		avg := (*upstreamAvg*float64(upstreamCount) + localAvg*float64(localCount)) / float64(total)
		return types.CombinedRating{AverageRating: &avg, RatingCount: total}
	case hasUpstream:
		avg := *upstreamAvg
		return types.CombinedRating{AverageRating: &avg, RatingCount: upstreamCount}
	case hasLocal:
		avg := localAvg
		return types.CombinedRating{AverageRating: &avg, RatingCount: localCount}
	default:
		return types.CombinedRating{AverageRating: nil, RatingCount: 0}
	}
}

// enrichWithRatings maps summaries to their displayed-rating form. The
// fan-out is bounded by the list size, which callers already cap.
func enrichWithRatings(ctx context.Context, ratings RatingService, books []*types.BookSummary) []*types.RatedBook {
	out := make([]*types.RatedBook, len(books))

	var g errgroup.Group
	for i, book := range books {
		i, book := i, book
		g.Go(func() error {
			out[i] = &types.RatedBook{
				BookSummary: *book,
				Rating:      ratings.CombineRatings(ctx, book.ID, book.UpstreamRating, book.UpstreamRatingCount),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
