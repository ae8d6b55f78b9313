package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// One builder per key family. Invalidation patterns and population keys are
// defined side by side so they cannot drift apart; nothing else in the
// codebase is allowed to build cache key strings by hand.

func BookKey(bookID string) string {
	return "book:" + bookID
}

func BookDetailKey(bookID string) string {
	return "book_detail:" + bookID
}

func CombinedRatingKey(bookID string) string {
	return "ratings:combined:" + bookID
}

// UpstreamRatingKey caches the raw Open Library crowd rating for a work.
func UpstreamRatingKey(bookID string) string {
	return "ol_ratings:" + bookID
}

func RecommendationsKey(userID uuid.UUID, limit int) string {
	return fmt.Sprintf("recommendations:%s:%d", userID, limit)
}

func RecommendationsPattern(userID uuid.UUID) string {
	return fmt.Sprintf("recommendations:%s:*", userID)
}

func UserPreferencesKey(userID uuid.UUID) string {
	return "user_preferences:" + userID.String()
}

func ExcludedBooksKey(userID uuid.UUID) string {
	return "excluded_books:" + userID.String()
}

func SavedBooksKey(userID uuid.UUID, page, limit int) string {
	return fmt.Sprintf("saved_books:%s:%d:%d", userID, page, limit)
}

func SavedBooksPattern(userID uuid.UUID) string {
	return fmt.Sprintf("saved_books:%s:*", userID)
}

func PlaylistBooksKey(playlistID uuid.UUID) string {
	return fmt.Sprintf("playlist:%s:books", playlistID)
}

func PlaylistPattern(playlistID uuid.UUID) string {
	return fmt.Sprintf("playlist:%s:*", playlistID)
}

// SearchKey hashes the canonical query string so arbitrary user input never
// ends up inside a key.
func SearchKey(canonicalQuery string) string {
	sum := sha1.Sum([]byte(canonicalQuery))
	return "search:" + hex.EncodeToString(sum[:])
}

func SearchPattern() string {
	return "search:*"
}

func SubjectKey(subject string, limit, offset int) string {
	return fmt.Sprintf("subject:%s:%d:%d", subject, limit, offset)
}

func SubjectPattern() string {
	return "subject:*"
}

func TrendingKey(period string, limit int) string {
	return fmt.Sprintf("trending:%s:%d", period, limit)
}

func TrendingPattern() string {
	return "trending:*"
}
