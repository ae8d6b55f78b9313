package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type ReviewRepo interface {
	Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error)
	Update(ctx context.Context, tx *gorm.DB, review *types.Review) error
	Delete(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) error
	GetByID(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (*types.Review, error)
	GetByUserAndBook(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) (*types.Review, error)
	ListByBook(ctx context.Context, tx *gorm.DB, bookID string, page, limit int) ([]*types.Review, int64, error)
	ListByUserMinRating(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minRating int) ([]*types.Review, error)
	BookIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error)
	LocalAggregate(ctx context.Context, tx *gorm.DB, bookID string) (float64, int64, error)
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	repoLog := baseLog.With("repo", "ReviewRepo")
	return &reviewRepo{db: db, log: repoLog}
}

func (rr *reviewRepo) Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if err := transaction.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (rr *reviewRepo) Update(ctx context.Context, tx *gorm.DB, review *types.Review) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).Save(review).Error
}

func (rr *reviewRepo) Delete(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Where("id = ?", reviewID).
		Delete(&types.Review{}).Error
}

func (rr *reviewRepo) GetByID(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var review types.Review
	if err := transaction.WithContext(ctx).
		Where("id = ?", reviewID).
		First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (rr *reviewRepo) GetByUserAndBook(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var review types.Review
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (rr *reviewRepo) ListByBook(ctx context.Context, tx *gorm.DB, bookID string, page, limit int) ([]*types.Review, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.Review{}).
		Where("book_id = ?", bookID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Review
	if err := transaction.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (rr *reviewRepo) ListByUserMinRating(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minRating int) ([]*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Review
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND rating >= ?", userID, minRating).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *reviewRepo) BookIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var ids []string
	if err := transaction.WithContext(ctx).
		Model(&types.Review{}).
		Where("user_id = ?", userID).
		Pluck("book_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// LocalAggregate returns the average rating and count of local reviews for a
// book. Average is 0 when there are no reviews; callers check count first.
func (rr *reviewRepo) LocalAggregate(ctx context.Context, tx *gorm.DB, bookID string) (float64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var row struct {
		Avg   *float64
		Count int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	if row.Avg == nil {
		return 0, row.Count, nil
	}
	return *row.Avg, row.Count, nil
}
