package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type ReviewService interface {
	CreateReview(ctx context.Context, userID uuid.UUID, bookID string, rating int, content string) (*types.Review, error)
	UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, rating int, content string) (*types.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error
	ListBookReviews(ctx context.Context, bookID string, page, limit int) ([]*types.Review, int64, error)
}

type reviewService struct {
	db          *gorm.DB
	log         *logger.Logger
	userRepo    repos.UserRepo
	reviewRepo  repos.ReviewRepo
	catalog     CatalogService
	invalidator InvalidationService
}

func NewReviewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	reviewRepo repos.ReviewRepo,
	catalog CatalogService,
	invalidator InvalidationService,
) ReviewService {
	serviceLog := baseLog.With("service", "ReviewService")
	return &reviewService{
		db:          db,
		log:         serviceLog,
		userRepo:    userRepo,
		reviewRepo:  reviewRepo,
		catalog:     catalog,
		invalidator: invalidator,
	}
}

func (rs *reviewService) CreateReview(ctx context.Context, userID uuid.UUID, bookID string, rating int, content string) (*types.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}

	users, err := rs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}

	// Existence check against the catalog; GetBook is the one gateway call
	// allowed to report not-found.
	if _, err := rs.catalog.GetBook(ctx, bookID); err != nil {
		return nil, fmt.Errorf("book %s: %w", bookID, err)
	}

	existing, err := rs.reviewRepo.GetByUserAndBook(ctx, nil, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("book already reviewed")
	}

	review := &types.Review{
		ID:      uuid.New(),
		UserID:  userID,
		BookID:  bookID,
		Rating:  rating,
		Content: content,
	}
	if _, err := rs.reviewRepo.Create(ctx, nil, review); err != nil {
		rs.log.Error("CreateReview failed", "error", err)
		return nil, fmt.Errorf("create review: %w", err)
	}

	rs.invalidator.InvalidateBookCache(ctx, bookID, &userID)
	rs.invalidator.InvalidateRatingCaches(ctx, bookID)
	return review, nil
}

func (rs *reviewService) UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, rating int, content string) (*types.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}

	review, err := rs.reviewRepo.GetByID(ctx, nil, reviewID)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	if review == nil || review.UserID != userID {
		return nil, fmt.Errorf("review not found")
	}

	review.Rating = rating
	review.Content = content
	if err := rs.reviewRepo.Update(ctx, nil, review); err != nil {
		rs.log.Error("UpdateReview failed", "error", err)
		return nil, fmt.Errorf("update review: %w", err)
	}

	rs.invalidator.InvalidateBookCache(ctx, review.BookID, &userID)
	rs.invalidator.InvalidateRatingCaches(ctx, review.BookID)
	return review, nil
}

func (rs *reviewService) DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error {
	review, err := rs.reviewRepo.GetByID(ctx, nil, reviewID)
	if err != nil {
		return fmt.Errorf("load review: %w", err)
	}
	if review == nil || review.UserID != userID {
		return fmt.Errorf("review not found")
	}

	if err := rs.reviewRepo.Delete(ctx, nil, reviewID); err != nil {
		rs.log.Error("DeleteReview failed", "error", err)
		return fmt.Errorf("delete review: %w", err)
	}

	rs.invalidator.InvalidateBookCache(ctx, review.BookID, &userID)
	rs.invalidator.InvalidateRatingCaches(ctx, review.BookID)
	return nil
}

func (rs *reviewService) ListBookReviews(ctx context.Context, bookID string, page, limit int) ([]*types.Review, int64, error) {
	return rs.reviewRepo.ListByBook(ctx, nil, bookID, page, limit)
}
