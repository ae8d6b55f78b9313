package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// RecommendationService ranks catalog books against a user's preference
// profile. It never fails a request because of a personalization problem:
// every degraded path ends in the trending fallback.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]*types.RatedBook, error)
}

type RecommendationConfig struct {
	// TopSubjects is how many of the highest-weighted subjects drive
	// candidate retrieval.
	TopSubjects int
	// SubjectPageSize is the candidate page fetched per subject.
	SubjectPageSize int
	// SubjectTimeout bounds each subject's candidate fetch; a timed-out
	// subject is skipped, not retried.
	SubjectTimeout time.Duration
	// RatingBoostWeight scales the upstream-rating boost added to the
	// subject-match score.
	RatingBoostWeight float64
	TrendingPeriod    string
	ResultTTL         time.Duration
	ExcludedTTL       time.Duration
}

func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		TopSubjects:       3,
		SubjectPageSize:   20,
		SubjectTimeout:    8 * time.Second,
		RatingBoostWeight: 0.3,
		TrendingPeriod:    "daily",
		ResultTTL:         time.Hour,
		ExcludedTTL:       30 * time.Minute,
	}
}

type recommendationService struct {
	db            *gorm.DB
	log           *logger.Logger
	store         cache.Store
	catalog       CatalogService
	preferences   PreferenceService
	ratings       RatingService
	savedBookRepo repos.SavedBookRepo
	reviewRepo    repos.ReviewRepo
	cfg           RecommendationConfig
}

func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store cache.Store,
	catalog CatalogService,
	preferences PreferenceService,
	ratings RatingService,
	savedBookRepo repos.SavedBookRepo,
	reviewRepo repos.ReviewRepo,
	cfg RecommendationConfig,
) RecommendationService {
	serviceLog := baseLog.With("service", "RecommendationService")
	return &recommendationService{
		db:            db,
		log:           serviceLog,
		store:         store,
		catalog:       catalog,
		preferences:   preferences,
		ratings:       ratings,
		savedBookRepo: savedBookRepo,
		reviewRepo:    reviewRepo,
		cfg:           cfg,
	}
}

func (rs *recommendationService) GetRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]*types.RatedBook, error) {
	if limit < 1 {
		limit = 10
	}

	key := cache.RecommendationsKey(userID, limit)
	var cached []*types.RatedBook
	if rs.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	prefs, err := rs.preferences.GetPreferences(ctx, userID)
	if err != nil {
		rs.log.Warn("Preference profile unavailable, falling back to trending", "user", userID, "error", err)
		prefs = nil
	}

	// The exclusion set applies to every path out of here, including the
	// trending fallback: a saved or reviewed book is never recommended back.
	excluded := rs.excludedBooks(ctx, userID)

	if len(prefs) == 0 {
		result := rs.trendingFallback(ctx, limit, nil, excluded)
		rs.store.Set(ctx, key, result, rs.cfg.ResultTTL)
		return result, nil
	}

	subjects := topSubjects(prefs, rs.cfg.TopSubjects)
	candidates := rs.collectCandidates(ctx, subjects)

	scored := make([]*scoredBook, 0, len(candidates))
	seen := map[string]bool{}
	for _, book := range candidates {
		if book == nil || book.ID == "" || seen[book.ID] || excluded[book.ID] {
			continue
		}
		seen[book.ID] = true
		score := scoreBook(book, prefs, rs.cfg.RatingBoostWeight)
		if score <= 0 {
			continue
		}
		scored = append(scored, &scoredBook{book: book, score: score})
	}

	// Descending score; ties broken by id so ranking is deterministic.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].book.ID < scored[j].book.ID
	})

	picked := make([]*types.BookSummary, 0, limit)
	for _, sb := range scored {
		if len(picked) == limit {
			break
		}
		picked = append(picked, sb.book)
	}

	result := enrichWithRatings(ctx, rs.ratings, picked)
	if len(result) < limit {
		result = append(result, rs.trendingFallback(ctx, limit-len(result), seen, excluded)...)
	}

	rs.store.Set(ctx, key, result, rs.cfg.ResultTTL)
	return result, nil
}

type scoredBook struct {
	book  *types.BookSummary
	score float64
}

// collectCandidates fans out one subject listing per top subject, each raced
// against its own deadline. A slow or failed subject contributes nothing and
// the rest proceed.
func (rs *recommendationService) collectCandidates(ctx context.Context, subjects []string) []*types.BookSummary {
	perSubject := make([][]*types.BookSummary, len(subjects))

	var wg sync.WaitGroup
	for i, subject := range subjects {
		i, subject := i, subject
		wg.Add(1)
		go func() {
			defer wg.Done()

			subjectCtx, cancel := context.WithTimeout(ctx, rs.cfg.SubjectTimeout)
			defer cancel()

			result := rs.catalog.GetSubjectBooks(subjectCtx, subject, rs.cfg.SubjectPageSize, 0)
			if subjectCtx.Err() != nil {
				rs.log.Warn("Subject candidate fetch timed out, skipping", "subject", subject)
				return
			}
			perSubject[i] = result.Books
		}()
	}
	wg.Wait()

	var out []*types.BookSummary
	for _, books := range perSubject {
		out = append(out, books...)
	}
	return out
}

// excludedBooks is the user's saved-or-reviewed id set; recommendations must
// never contain any of them.
func (rs *recommendationService) excludedBooks(ctx context.Context, userID uuid.UUID) map[string]bool {
	key := cache.ExcludedBooksKey(userID)

	var cachedIDs []string
	if rs.store.Get(ctx, key, &cachedIDs) {
		return toSet(cachedIDs)
	}

	var ids []string
	savedIDs, err := rs.savedBookRepo.BookIDsByUser(ctx, nil, userID)
	if err != nil {
		rs.log.Warn("Saved-book exclusion lookup failed", "user", userID, "error", err)
	} else {
		ids = append(ids, savedIDs...)
	}
	reviewedIDs, err := rs.reviewRepo.BookIDsByUser(ctx, nil, userID)
	if err != nil {
		rs.log.Warn("Review exclusion lookup failed", "user", userID, "error", err)
	} else {
		ids = append(ids, reviewedIDs...)
	}

	rs.store.Set(ctx, key, ids, rs.cfg.ExcludedTTL)
	return toSet(ids)
}

func (rs *recommendationService) trendingFallback(ctx context.Context, want int, seen, excluded map[string]bool) []*types.RatedBook {
	if want <= 0 {
		return []*types.RatedBook{}
	}

	// Fetch extra so filtering already-picked and excluded ids can still
	// fill the page.
	fetch := want
	if len(seen) > 0 || len(excluded) > 0 {
		fetch = want * 2
	}

	trending := rs.catalog.GetTrendingBooks(ctx, rs.cfg.TrendingPeriod, fetch)

	picked := make([]*types.BookSummary, 0, want)
	for _, book := range trending {
		if len(picked) == want {
			break
		}
		if book == nil || book.ID == "" || seen[book.ID] || excluded[book.ID] {
			continue
		}
		picked = append(picked, book)
	}
	return enrichWithRatings(ctx, rs.ratings, picked)
}

// topSubjects returns the n highest-weighted subjects, ties broken
// lexicographically so selection is deterministic.
func topSubjects(prefs map[string]float64, n int) []string {
	subjects := make([]string, 0, len(prefs))
	for subject := range prefs {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool {
		wi, wj := prefs[subjects[i]], prefs[subjects[j]]
		if wi != wj {
			return wi > wj
		}
		return subjects[i] < subjects[j]
	})
	if n < len(subjects) {
		subjects = subjects[:n]
	}
	return subjects
}

// scoreBook computes the candidate's share of the user's total subject
// weight, plus a small boost for well-rated books. The result is clamped to
// [0, 1]; a candidate matching no preferred subject scores 0.
func scoreBook(book *types.BookSummary, prefs map[string]float64, boostWeight float64) float64 {
	var totalWeight float64
	for _, w := range prefs {
		totalWeight += w
	}
	if totalWeight <= 0 {
		return 0
	}

	var matched float64
	seen := map[string]bool{}
	for _, subject := range book.Subjects {
		normalized := NormalizeSubject(subject)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		matched += prefs[normalized]
	}
	if matched == 0 {
		return 0
	}

	score := matched / totalWeight
	if book.UpstreamRating != nil {
		score += (*book.UpstreamRating / 5.0) * boostWeight
	}
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
