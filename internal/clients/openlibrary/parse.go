package openlibrary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openshelf/openshelf-backend/internal/types"
)

// Open Library returns a different document shape per endpoint (search doc,
// work, subject work, trending doc). Each shape gets its own struct and its
// own converter to the canonical BookSummary/BookDetail; raw upstream JSON
// never crosses this package boundary.

// flexText handles fields that are either a plain string or {"value": "..."}.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*f = flexText(wrapped.Value)
	return nil
}

// workIDFromKey turns "/works/OL45883W" into "OL45883W".
func workIDFromKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "/works/")
}

func coverURLFromID(coverID int64) string {
	if coverID <= 0 {
		return ""
	}
	return fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", coverID)
}

// ---- search.json ----

type searchResponse struct {
	NumFound int          `json:"numFound"`
	Docs     []*searchDoc `json:"docs"`
}

type searchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	CoverI           int64    `json:"cover_i"`
	FirstPublishYear int      `json:"first_publish_year"`
	Subject          []string `json:"subject"`
	Language         []string `json:"language"`
	RatingsAverage   *float64 `json:"ratings_average"`
	RatingsCount     int      `json:"ratings_count"`
	EditionCount     int      `json:"edition_count"`
}

func (d *searchDoc) toSummary() *types.BookSummary {
	if d == nil {
		return nil
	}
	return &types.BookSummary{
		ID:                  workIDFromKey(d.Key),
		Title:               d.Title,
		Authors:             d.AuthorName,
		CoverURL:            coverURLFromID(d.CoverI),
		PublishYear:         d.FirstPublishYear,
		Subjects:            d.Subject,
		UpstreamRating:      d.RatingsAverage,
		UpstreamRatingCount: d.RatingsCount,
	}
}

// ---- /works/{id}.json ----

type workResponse struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description flexText `json:"description"`
	Subjects    []string `json:"subjects"`
	Covers      []int64  `json:"covers"`
	Authors     []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
}

func (w *workResponse) authorKeys() []string {
	keys := make([]string, 0, len(w.Authors))
	for _, a := range w.Authors {
		k := strings.TrimPrefix(strings.TrimSpace(a.Author.Key), "/authors/")
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (w *workResponse) toDetail() *types.BookDetail {
	detail := &types.BookDetail{}
	detail.ID = workIDFromKey(w.Key)
	detail.Title = w.Title
	detail.Subjects = w.Subjects
	detail.Description = string(w.Description)
	if len(w.Covers) > 0 {
		detail.CoverURL = coverURLFromID(w.Covers[0])
	}
	return detail
}

type authorResponse struct {
	Name string `json:"name"`
}

// ---- /works/{id}/editions.json ----

type editionsResponse struct {
	Size    int `json:"size"`
	Entries []struct {
		Publishers  []string `json:"publishers"`
		PublishDate string   `json:"publish_date"`
		Languages   []struct {
			Key string `json:"key"`
		} `json:"languages"`
	} `json:"entries"`
}

func (e *editionsResponse) publishers() []string {
	seen := map[string]bool{}
	var out []string
	for _, entry := range e.Entries {
		for _, p := range entry.Publishers {
			p = strings.TrimSpace(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func (e *editionsResponse) languages() []string {
	seen := map[string]bool{}
	var out []string
	for _, entry := range e.Entries {
		for _, l := range entry.Languages {
			code := strings.TrimPrefix(strings.TrimSpace(l.Key), "/languages/")
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

// ---- /works/{id}/ratings.json ----

type ratingsResponse struct {
	Summary struct {
		Average *float64 `json:"average"`
		Count   int      `json:"count"`
	} `json:"summary"`
}

func (r *ratingsResponse) toRating() *types.UpstreamRating {
	return &types.UpstreamRating{
		Average: r.Summary.Average,
		Count:   r.Summary.Count,
	}
}

// ---- /subjects/{subject}.json ----

type subjectResponse struct {
	WorkCount int            `json:"work_count"`
	Works     []*subjectWork `json:"works"`
}

type subjectWork struct {
	Key              string `json:"key"`
	Title            string `json:"title"`
	CoverID          int64  `json:"cover_id"`
	FirstPublishYear int    `json:"first_publish_year"`
	Authors          []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Subject []string `json:"subject"`
}

func (w *subjectWork) toSummary(subject string) *types.BookSummary {
	if w == nil {
		return nil
	}
	authors := make([]string, 0, len(w.Authors))
	for _, a := range w.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}
	subjects := w.Subject
	if len(subjects) == 0 && subject != "" {
		// Subject listings omit per-work subject tags; the queried subject
		// itself is the one tag known to apply.
		subjects = []string{subject}
	}
	return &types.BookSummary{
		ID:          workIDFromKey(w.Key),
		Title:       w.Title,
		Authors:     authors,
		CoverURL:    coverURLFromID(w.CoverID),
		PublishYear: w.FirstPublishYear,
		Subjects:    subjects,
	}
}

// ---- /trending/{period}.json ----

type trendingResponse struct {
	Works []*searchDoc `json:"works"`
}
