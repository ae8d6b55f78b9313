package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type PlaylistRepo interface {
	Create(ctx context.Context, tx *gorm.DB, playlist *types.Playlist) (*types.Playlist, error)
	GetByID(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) (*types.Playlist, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Playlist, error)
	AddBook(ctx context.Context, tx *gorm.DB, entry *types.PlaylistBook) (*types.PlaylistBook, error)
	RemoveBook(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID, bookID string) error
	BooksByPlaylist(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) ([]*types.PlaylistBook, error)
	PlaylistIDsForBook(ctx context.Context, tx *gorm.DB, bookID string) ([]uuid.UUID, error)
}

type playlistRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlaylistRepo(db *gorm.DB, baseLog *logger.Logger) PlaylistRepo {
	repoLog := baseLog.With("repo", "PlaylistRepo")
	return &playlistRepo{db: db, log: repoLog}
}

func (pr *playlistRepo) Create(ctx context.Context, tx *gorm.DB, playlist *types.Playlist) (*types.Playlist, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if err := transaction.WithContext(ctx).Create(playlist).Error; err != nil {
		return nil, err
	}
	return playlist, nil
}

func (pr *playlistRepo) GetByID(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) (*types.Playlist, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var playlist types.Playlist
	if err := transaction.WithContext(ctx).
		Where("id = ?", playlistID).
		First(&playlist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &playlist, nil
}

func (pr *playlistRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Playlist, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Playlist
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *playlistRepo) AddBook(ctx context.Context, tx *gorm.DB, entry *types.PlaylistBook) (*types.PlaylistBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (pr *playlistRepo) RemoveBook(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID, bookID string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	result := transaction.WithContext(ctx).
		Where("playlist_id = ? AND book_id = ?", playlistID, bookID).
		Delete(&types.PlaylistBook{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("playlist entry not found")
	}
	return nil
}

func (pr *playlistRepo) BooksByPlaylist(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) ([]*types.PlaylistBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.PlaylistBook
	if err := transaction.WithContext(ctx).
		Where("playlist_id = ?", playlistID).
		Order("position ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *playlistRepo) PlaylistIDsForBook(ctx context.Context, tx *gorm.DB, bookID string) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.PlaylistBook{}).
		Distinct("playlist_id").
		Where("book_id = ?", bookID).
		Pluck("playlist_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
