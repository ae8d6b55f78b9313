package types

// Derived catalog shapes. Books are not persisted locally; everything here is
// built from upstream catalog responses and cached as whole values.

// BookSummary is the single canonical book shape produced by the catalog
// layer. Upstream rating fields are raw crowd data and are never shown to a
// user directly; displayed ratings always come from CombinedRating.
type BookSummary struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	CoverURL            string   `json:"cover_url,omitempty"`
	PublishYear         int      `json:"publish_year,omitempty"`
	Subjects            []string `json:"subjects,omitempty"`
	UpstreamRating      *float64 `json:"upstream_rating,omitempty"`
	UpstreamRatingCount int      `json:"upstream_rating_count"`
}

// BookDetail extends BookSummary with the fields only the work-level
// endpoints provide.
type BookDetail struct {
	BookSummary
	Description  string   `json:"description,omitempty"`
	Publishers   []string `json:"publishers,omitempty"`
	EditionCount int      `json:"edition_count"`
	Languages    []string `json:"languages,omitempty"`
}

// UpstreamRating is the catalog's crowd rating for one work.
type UpstreamRating struct {
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// CombinedRating blends the upstream crowd rating with locally collected
// reviews. AverageRating is nil when neither side has any ratings.
type CombinedRating struct {
	AverageRating *float64 `json:"average_rating"`
	RatingCount   int      `json:"rating_count"`
}

// RatedBook is a BookSummary enriched with its displayed rating.
type RatedBook struct {
	BookSummary
	Rating CombinedRating `json:"rating"`
}

// SearchResult is one page of catalog search or subject-listing output.
type SearchResult struct {
	Total int            `json:"total"`
	Books []*BookSummary `json:"books"`
}
