package services

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/clients/openlibrary"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// memStore is an in-memory cache.Store for tests. It records deletions so
// invalidation fan-out can be asserted, and can be flipped down to exercise
// fail-open paths.
type memStore struct {
	mu          sync.Mutex
	data        map[string][]byte
	down        bool
	delKeys     []string
	delPatterns []string
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(ctx context.Context, key string, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false
	}
	raw, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (m *memStore) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	m.data[key] = raw
	return true
}

func (m *memStore) Del(ctx context.Context, keys ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delKeys = append(m.delKeys, keys...)
	if m.down {
		return false
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return true
}

func (m *memStore) DelPattern(ctx context.Context, pattern string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delPatterns = append(m.delPatterns, pattern)
	if m.down {
		return false
	}
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return true
}

func (m *memStore) Exists(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false
	}
	_, ok := m.data[key]
	return ok
}

func (m *memStore) MGet(ctx context.Context, keys []string) map[string]json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]json.RawMessage{}
	if m.down {
		return out
	}
	for _, key := range keys {
		if raw, ok := m.data[key]; ok {
			out[key] = json.RawMessage(raw)
		}
	}
	return out
}

func (m *memStore) MSet(ctx context.Context, entries map[string]any, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false
	}
	for key, value := range entries {
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		m.data[key] = raw
	}
	return true
}

func (m *memStore) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.down
}

func (m *memStore) deletedPatterns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.delPatterns...)
}

func (m *memStore) deletedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.delKeys...)
}

// fakeOLClient is a canned openlibrary.Client.
type fakeOLClient struct {
	mu           sync.Mutex
	searchResult *types.SearchResult
	searchErr    error
	searchCalls  int
	work         *types.BookDetail
	workErr      error
	batch        map[string]*types.BookSummary
	batchErr     error
	batchCalls   [][]string
	subject      map[string]*types.SearchResult
	subjectErr   error
	trending     []*types.BookSummary
	trendingErr  error
	rating       *types.UpstreamRating
	ratingErr    error
}

func (f *fakeOLClient) Search(ctx context.Context, q openlibrary.SearchQuery) (*types.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.searchResult, f.searchErr
}

func (f *fakeOLClient) GetWork(ctx context.Context, workID string) (*types.BookDetail, error) {
	return f.work, f.workErr
}

func (f *fakeOLClient) GetBatch(ctx context.Context, workIDs []string) (map[string]*types.BookSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, append([]string(nil), workIDs...))
	return f.batch, f.batchErr
}

func (f *fakeOLClient) GetSubject(ctx context.Context, subject string, limit, offset int) (*types.SearchResult, error) {
	if f.subjectErr != nil {
		return nil, f.subjectErr
	}
	if r, ok := f.subject[subject]; ok {
		return r, nil
	}
	return &types.SearchResult{Books: []*types.BookSummary{}}, nil
}

func (f *fakeOLClient) GetTrending(ctx context.Context, period string, limit int) ([]*types.BookSummary, error) {
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	if limit < len(f.trending) {
		return f.trending[:limit], nil
	}
	return f.trending, nil
}

func (f *fakeOLClient) GetRatings(ctx context.Context, workID string) (*types.UpstreamRating, error) {
	return f.rating, f.ratingErr
}

// fakeCatalog is a canned CatalogService.
type fakeCatalog struct {
	mu            sync.Mutex
	books         map[string]*types.BookSummary
	getBooksCalls int
	detail        *types.BookDetail
	detailErr     error
	subject       map[string]*types.SearchResult
	trending      []*types.BookSummary
}

func (f *fakeCatalog) Search(ctx context.Context, q openlibrary.SearchQuery) *types.SearchResult {
	return &types.SearchResult{Books: []*types.BookSummary{}}
}

func (f *fakeCatalog) GetBook(ctx context.Context, bookID string) (*types.BookDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.detail != nil {
		return f.detail, nil
	}
	return &types.BookDetail{BookSummary: types.BookSummary{ID: bookID, Title: bookID}}, nil
}

func (f *fakeCatalog) GetBooks(ctx context.Context, bookIDs []string) map[string]*types.BookSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getBooksCalls++
	out := map[string]*types.BookSummary{}
	for _, id := range bookIDs {
		if b, ok := f.books[id]; ok {
			out[id] = b
		}
	}
	return out
}

func (f *fakeCatalog) GetSubjectBooks(ctx context.Context, subject string, limit, offset int) *types.SearchResult {
	if r, ok := f.subject[subject]; ok {
		return r
	}
	return &types.SearchResult{Books: []*types.BookSummary{}}
}

func (f *fakeCatalog) GetTrendingBooks(ctx context.Context, period string, limit int) []*types.BookSummary {
	if limit < len(f.trending) {
		return f.trending[:limit]
	}
	return f.trending
}

func (f *fakeCatalog) GetUpstreamRating(ctx context.Context, bookID string) *types.UpstreamRating {
	return nil
}

// fakePreferences is a canned PreferenceService.
type fakePreferences struct {
	prefs map[string]float64
	err   error
}

func (f *fakePreferences) GetPreferences(ctx context.Context, userID uuid.UUID) (map[string]float64, error) {
	return f.prefs, f.err
}

// fakeRatings returns an empty combined rating for every book.
type fakeRatings struct{}

func (fakeRatings) CombineRatings(ctx context.Context, bookID string, upstreamAvg *float64, upstreamCount int) types.CombinedRating {
	return types.CombinedRating{}
}

// fakeUserRepo serves users from a slice.
type fakeUserRepo struct {
	users []*types.User
}

func knownUsers(ids ...uuid.UUID) *fakeUserRepo {
	f := &fakeUserRepo{}
	for _, id := range ids {
		f.users = append(f.users, &types.User{ID: id})
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	f.users = append(f.users, users...)
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, u := range f.users {
		for _, id := range userIDs {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, userEmail string) (bool, error) {
	for _, u := range f.users {
		if u.Email == userEmail {
			return true, nil
		}
	}
	return false, nil
}

// fakeReviewRepo serves reviews from a slice; aggregate results are canned.
type fakeReviewRepo struct {
	reviews  []*types.Review
	aggAvg   float64
	aggCount int64
	aggErr   error
	listErr  error
}

func (f *fakeReviewRepo) Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error) {
	f.reviews = append(f.reviews, review)
	return review, nil
}

func (f *fakeReviewRepo) Update(ctx context.Context, tx *gorm.DB, review *types.Review) error {
	return nil
}

func (f *fakeReviewRepo) Delete(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) error {
	return nil
}

func (f *fakeReviewRepo) GetByID(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (*types.Review, error) {
	for _, r := range f.reviews {
		if r.ID == reviewID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeReviewRepo) GetByUserAndBook(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) (*types.Review, error) {
	for _, r := range f.reviews {
		if r.UserID == userID && r.BookID == bookID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeReviewRepo) ListByBook(ctx context.Context, tx *gorm.DB, bookID string, page, limit int) ([]*types.Review, int64, error) {
	var out []*types.Review
	for _, r := range f.reviews {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeReviewRepo) ListByUserMinRating(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minRating int) ([]*types.Review, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.Review
	for _, r := range f.reviews {
		if r.UserID == userID && r.Rating >= minRating {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) BookIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
	var out []string
	for _, r := range f.reviews {
		if r.UserID == userID {
			out = append(out, r.BookID)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) LocalAggregate(ctx context.Context, tx *gorm.DB, bookID string) (float64, int64, error) {
	if f.aggErr != nil {
		return 0, 0, f.aggErr
	}
	return f.aggAvg, f.aggCount, nil
}

// fakeSavedBookRepo serves saved books from a slice.
type fakeSavedBookRepo struct {
	saved          []*types.SavedBook
	userIDsForBook []uuid.UUID
	listErr        error
}

func (f *fakeSavedBookRepo) Save(ctx context.Context, tx *gorm.DB, savedBook *types.SavedBook) (*types.SavedBook, error) {
	f.saved = append(f.saved, savedBook)
	return savedBook, nil
}

func (f *fakeSavedBookRepo) Unsave(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) error {
	return nil
}

func (f *fakeSavedBookRepo) Exists(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bookID string) (bool, error) {
	for _, sb := range f.saved {
		if sb.UserID == userID && sb.BookID == bookID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSavedBookRepo) RecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SavedBook, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.SavedBook
	for _, sb := range f.saved {
		if sb.UserID == userID {
			out = append(out, sb)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSavedBookRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page, limit int) ([]*types.SavedBook, int64, error) {
	var out []*types.SavedBook
	for _, sb := range f.saved {
		if sb.UserID == userID {
			out = append(out, sb)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSavedBookRepo) BookIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
	var out []string
	for _, sb := range f.saved {
		if sb.UserID == userID {
			out = append(out, sb.BookID)
		}
	}
	return out, nil
}

func (f *fakeSavedBookRepo) UserIDsForBook(ctx context.Context, tx *gorm.DB, bookID string) ([]uuid.UUID, error) {
	return f.userIDsForBook, nil
}

// fakePlaylistRepo only serves the lookups invalidation needs.
type fakePlaylistRepo struct {
	playlists          []*types.Playlist
	entries            []*types.PlaylistBook
	playlistIDsForBook []uuid.UUID
}

func (f *fakePlaylistRepo) Create(ctx context.Context, tx *gorm.DB, playlist *types.Playlist) (*types.Playlist, error) {
	f.playlists = append(f.playlists, playlist)
	return playlist, nil
}

func (f *fakePlaylistRepo) GetByID(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) (*types.Playlist, error) {
	for _, p := range f.playlists {
		if p.ID == playlistID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePlaylistRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Playlist, error) {
	var out []*types.Playlist
	for _, p := range f.playlists {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlaylistRepo) AddBook(ctx context.Context, tx *gorm.DB, entry *types.PlaylistBook) (*types.PlaylistBook, error) {
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakePlaylistRepo) RemoveBook(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID, bookID string) error {
	return nil
}

func (f *fakePlaylistRepo) BooksByPlaylist(ctx context.Context, tx *gorm.DB, playlistID uuid.UUID) ([]*types.PlaylistBook, error) {
	var out []*types.PlaylistBook
	for _, e := range f.entries {
		if e.PlaylistID == playlistID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakePlaylistRepo) PlaylistIDsForBook(ctx context.Context, tx *gorm.DB, bookID string) ([]uuid.UUID, error) {
	return f.playlistIDsForBook, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
