package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
)

// PreferenceService derives a weighted subject-interest profile from a user's
// saved books and well-rated reviews. An empty map is the documented
// "no signal yet" state, not an error; the recommendation engine falls back
// to trending when it sees one.
type PreferenceService interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (map[string]float64, error)
}

type PreferenceConfig struct {
	// RecentSavedLimit caps how many recent saves contribute to the profile.
	RecentSavedLimit int
	// MinReviewRating is the lowest review rating that counts as a signal.
	MinReviewRating int
	// SavedWeight applies to saved-but-unreviewed books (reviewed books
	// weigh rating/5).
	SavedWeight float64
	TTL         time.Duration
}

func DefaultPreferenceConfig() PreferenceConfig {
	return PreferenceConfig{
		RecentSavedLimit: 15,
		MinReviewRating:  4,
		SavedWeight:      3.0 / 5.0,
		TTL:              2 * time.Hour,
	}
}

type preferenceService struct {
	db            *gorm.DB
	log           *logger.Logger
	store         cache.Store
	catalog       CatalogService
	savedBookRepo repos.SavedBookRepo
	reviewRepo    repos.ReviewRepo
	cfg           PreferenceConfig
}

func NewPreferenceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store cache.Store,
	catalog CatalogService,
	savedBookRepo repos.SavedBookRepo,
	reviewRepo repos.ReviewRepo,
	cfg PreferenceConfig,
) PreferenceService {
	serviceLog := baseLog.With("service", "PreferenceService")
	return &preferenceService{
		db:            db,
		log:           serviceLog,
		store:         store,
		catalog:       catalog,
		savedBookRepo: savedBookRepo,
		reviewRepo:    reviewRepo,
		cfg:           cfg,
	}
}

func (ps *preferenceService) GetPreferences(ctx context.Context, userID uuid.UUID) (map[string]float64, error) {
	key := cache.UserPreferencesKey(userID)

	var cached map[string]float64
	if ps.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	saved, err := ps.savedBookRepo.RecentByUser(ctx, nil, userID, ps.cfg.RecentSavedLimit)
	if err != nil {
		return nil, fmt.Errorf("load saved books: %w", err)
	}
	reviews, err := ps.reviewRepo.ListByUserMinRating(ctx, nil, userID, ps.cfg.MinReviewRating)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	// Per-book weight: reviewed books weigh rating/5 and win over the saved
	// default when a book appears in both sets.
	weights := map[string]float64{}
	for _, sb := range saved {
		weights[sb.BookID] = ps.cfg.SavedWeight
	}
	for _, review := range reviews {
		weights[review.BookID] = float64(review.Rating) / 5.0
	}

	if len(weights) == 0 {
		return map[string]float64{}, nil
	}

	bookIDs := make([]string, 0, len(weights))
	for id := range weights {
		bookIDs = append(bookIDs, id)
	}

	books := ps.catalog.GetBooks(ctx, bookIDs)

	prefs := map[string]float64{}
	for id, weight := range weights {
		book, ok := books[id]
		if !ok {
			continue
		}
		for _, subject := range book.Subjects {
			normalized := NormalizeSubject(subject)
			if normalized == "" {
				continue
			}
			prefs[normalized] += weight
		}
	}

	ps.store.Set(ctx, key, prefs, ps.cfg.TTL)
	return prefs, nil
}

// NormalizeSubject trims and lowercases a subject tag so population and
// scoring always agree on the key.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
