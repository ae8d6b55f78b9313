package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/cache"
	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// SavedBooksPage is one cached page of a user's library, with displayed
// ratings baked in (which is why saved-book pages are in the invalidation
// fan-out).
type SavedBooksPage struct {
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Books []*types.RatedBook `json:"books"`
}

type UserLibraryService interface {
	SaveBook(ctx context.Context, userID uuid.UUID, bookID string) (*types.SavedBook, error)
	UnsaveBook(ctx context.Context, userID uuid.UUID, bookID string) error
	GetSavedBooks(ctx context.Context, userID uuid.UUID, page, limit int) (*SavedBooksPage, error)
}

type userLibraryService struct {
	db            *gorm.DB
	log           *logger.Logger
	store         cache.Store
	savedBookRepo repos.SavedBookRepo
	catalog       CatalogService
	ratings       RatingService
	invalidator   InvalidationService
	listTTL       time.Duration
}

func NewUserLibraryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store cache.Store,
	savedBookRepo repos.SavedBookRepo,
	catalog CatalogService,
	ratings RatingService,
	invalidator InvalidationService,
	listTTL time.Duration,
) UserLibraryService {
	serviceLog := baseLog.With("service", "UserLibraryService")
	return &userLibraryService{
		db:            db,
		log:           serviceLog,
		store:         store,
		savedBookRepo: savedBookRepo,
		catalog:       catalog,
		ratings:       ratings,
		invalidator:   invalidator,
		listTTL:       listTTL,
	}
}

func (us *userLibraryService) SaveBook(ctx context.Context, userID uuid.UUID, bookID string) (*types.SavedBook, error) {
	if _, err := us.catalog.GetBook(ctx, bookID); err != nil {
		return nil, fmt.Errorf("book %s: %w", bookID, err)
	}

	exists, err := us.savedBookRepo.Exists(ctx, nil, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check saved book: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("book already saved")
	}

	savedBook := &types.SavedBook{
		ID:     uuid.New(),
		UserID: userID,
		BookID: bookID,
	}
	if _, err := us.savedBookRepo.Save(ctx, nil, savedBook); err != nil {
		us.log.Error("SaveBook failed", "error", err)
		return nil, fmt.Errorf("save book: %w", err)
	}

	us.invalidator.InvalidateBookCache(ctx, bookID, &userID)
	return savedBook, nil
}

func (us *userLibraryService) UnsaveBook(ctx context.Context, userID uuid.UUID, bookID string) error {
	if err := us.savedBookRepo.Unsave(ctx, nil, userID, bookID); err != nil {
		return fmt.Errorf("unsave book: %w", err)
	}

	us.invalidator.InvalidateBookCache(ctx, bookID, &userID)
	return nil
}

func (us *userLibraryService) GetSavedBooks(ctx context.Context, userID uuid.UUID, page, limit int) (*SavedBooksPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	key := cache.SavedBooksKey(userID, page, limit)
	var cached SavedBooksPage
	if us.store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	saved, total, err := us.savedBookRepo.ListByUser(ctx, nil, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list saved books: %w", err)
	}

	bookIDs := make([]string, 0, len(saved))
	for _, sb := range saved {
		bookIDs = append(bookIDs, sb.BookID)
	}
	books := us.catalog.GetBooks(ctx, bookIDs)

	// Preserve save order; drop entries the catalog could not resolve.
	summaries := make([]*types.BookSummary, 0, len(saved))
	for _, sb := range saved {
		if book, ok := books[sb.BookID]; ok {
			summaries = append(summaries, book)
		}
	}

	result := &SavedBooksPage{
		Total: total,
		Page:  page,
		Limit: limit,
		Books: enrichWithRatings(ctx, us.ratings, summaries),
	}

	us.store.Set(ctx, key, result, us.listTTL)
	return result, nil
}
