package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type SavedBookRepo interface {
	Save(ctx context.Context, tx *gorm.DB, savedBook *types.SavedBook) (*types.SavedBook, error)
	Unsave(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) error
	Exists(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) (bool, error)
	RecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SavedBook, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page, limit int) ([]*types.SavedBook, int64, error)
	BookIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error)
	UserIDsForBook(ctx context.Context, tx *gorm.DB, bookID string) ([]uuid.UUID, error)
}

type savedBookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSavedBookRepo(db *gorm.DB, baseLog *logger.Logger) SavedBookRepo {
	repoLog := baseLog.With("repo", "SavedBookRepo")
	return &savedBookRepo{db: db, log: repoLog}
}

func (sr *savedBookRepo) Save(ctx context.Context, tx *gorm.DB, savedBook *types.SavedBook) (*types.SavedBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if err := transaction.WithContext(ctx).Create(savedBook).Error; err != nil {
		return nil, err
	}
	return savedBook, nil
}

func (sr *savedBookRepo) Unsave(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	result := transaction.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&types.SavedBook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("saved book not found")
	}
	return nil
}

func (sr *savedBookRepo) Exists(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.SavedBook{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (sr *savedBookRepo) RecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SavedBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if limit < 1 {
		limit = 15
	}

	var results []*types.SavedBook
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *savedBookRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page, limit int) ([]*types.SavedBook, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.SavedBook{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.SavedBook
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (sr *savedBookRepo) BookIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var ids []string
	if err := transaction.WithContext(ctx).
		Model(&types.SavedBook{}).
		Where("user_id = ?", userID).
		Pluck("book_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (sr *savedBookRepo) UserIDsForBook(ctx context.Context, tx *gorm.DB, bookID string) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.SavedBook{}).
		Distinct("user_id").
		Where("book_id = ?", bookID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
