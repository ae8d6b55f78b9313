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

type PlaylistService interface {
	CreatePlaylist(ctx context.Context, userID uuid.UUID, name, description string) (*types.Playlist, error)
	GetUserPlaylists(ctx context.Context, userID uuid.UUID) ([]*types.Playlist, error)
	GetPlaylistBooks(ctx context.Context, playlistID uuid.UUID) ([]*types.RatedBook, error)
	AddBook(ctx context.Context, userID, playlistID uuid.UUID, bookID string) error
	RemoveBook(ctx context.Context, userID, playlistID uuid.UUID, bookID string) error
}

type playlistService struct {
	db           *gorm.DB
	log          *logger.Logger
	store        cache.Store
	playlistRepo repos.PlaylistRepo
	catalog      CatalogService
	ratings      RatingService
	invalidator  InvalidationService
	viewTTL      time.Duration
}

func NewPlaylistService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store cache.Store,
	playlistRepo repos.PlaylistRepo,
	catalog CatalogService,
	ratings RatingService,
	invalidator InvalidationService,
	viewTTL time.Duration,
) PlaylistService {
	serviceLog := baseLog.With("service", "PlaylistService")
	return &playlistService{
		db:           db,
		log:          serviceLog,
		store:        store,
		playlistRepo: playlistRepo,
		catalog:      catalog,
		ratings:      ratings,
		invalidator:  invalidator,
		viewTTL:      viewTTL,
	}
}

func (ps *playlistService) CreatePlaylist(ctx context.Context, userID uuid.UUID, name, description string) (*types.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name required")
	}

	playlist := &types.Playlist{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
	}
	if _, err := ps.playlistRepo.Create(ctx, nil, playlist); err != nil {
		ps.log.Error("CreatePlaylist failed", "error", err)
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return playlist, nil
}

func (ps *playlistService) GetUserPlaylists(ctx context.Context, userID uuid.UUID) ([]*types.Playlist, error) {
	return ps.playlistRepo.ListByUser(ctx, nil, userID)
}

func (ps *playlistService) GetPlaylistBooks(ctx context.Context, playlistID uuid.UUID) ([]*types.RatedBook, error) {
	key := cache.PlaylistBooksKey(playlistID)
	var cached []*types.RatedBook
	if ps.store.Get(ctx, key, &cached) {
		return cached, nil
	}

	entries, err := ps.playlistRepo.BooksByPlaylist(ctx, nil, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist books: %w", err)
	}

	bookIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		bookIDs = append(bookIDs, entry.BookID)
	}
	books := ps.catalog.GetBooks(ctx, bookIDs)

	summaries := make([]*types.BookSummary, 0, len(entries))
	for _, entry := range entries {
		if book, ok := books[entry.BookID]; ok {
			summaries = append(summaries, book)
		}
	}

	result := enrichWithRatings(ctx, ps.ratings, summaries)
	ps.store.Set(ctx, key, result, ps.viewTTL)
	return result, nil
}

func (ps *playlistService) AddBook(ctx context.Context, userID, playlistID uuid.UUID, bookID string) error {
	playlist, err := ps.ownedPlaylist(ctx, userID, playlistID)
	if err != nil {
		return err
	}

	if _, err := ps.catalog.GetBook(ctx, bookID); err != nil {
		return fmt.Errorf("book %s: %w", bookID, err)
	}

	existing, err := ps.playlistRepo.BooksByPlaylist(ctx, nil, playlistID)
	if err != nil {
		return fmt.Errorf("list playlist books: %w", err)
	}
	for _, entry := range existing {
		if entry.BookID == bookID {
			return fmt.Errorf("book already in playlist")
		}
	}

	entry := &types.PlaylistBook{
		ID:         uuid.New(),
		PlaylistID: playlist.ID,
		BookID:     bookID,
		Position:   len(existing),
	}
	if _, err := ps.playlistRepo.AddBook(ctx, nil, entry); err != nil {
		ps.log.Error("AddBook failed", "error", err)
		return fmt.Errorf("add book to playlist: %w", err)
	}

	ps.invalidator.InvalidatePlaylist(ctx, playlistID)
	return nil
}

func (ps *playlistService) RemoveBook(ctx context.Context, userID, playlistID uuid.UUID, bookID string) error {
	if _, err := ps.ownedPlaylist(ctx, userID, playlistID); err != nil {
		return err
	}

	if err := ps.playlistRepo.RemoveBook(ctx, nil, playlistID, bookID); err != nil {
		return fmt.Errorf("remove book from playlist: %w", err)
	}

	ps.invalidator.InvalidatePlaylist(ctx, playlistID)
	return nil
}

func (ps *playlistService) ownedPlaylist(ctx context.Context, userID, playlistID uuid.UUID) (*types.Playlist, error) {
	playlist, err := ps.playlistRepo.GetByID(ctx, nil, playlistID)
	if err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}
	if playlist == nil || playlist.UserID != userID {
		return nil, fmt.Errorf("playlist not found")
	}
	return playlist, nil
}
