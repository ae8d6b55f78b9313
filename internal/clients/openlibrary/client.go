package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/pkg/httpx"
	"github.com/openshelf/openshelf-backend/internal/types"
	"github.com/openshelf/openshelf-backend/internal/utils"
)

// ErrNotFound is returned by GetWork when the work does not exist upstream.
// List/search/batch operations never return it; absence is a normal outcome
// for those.
var ErrNotFound = errors.New("book not found")

// searchFields is the projection requested from the search endpoint; it keeps
// responses small and matches exactly what searchDoc parses.
const searchFields = "key,title,author_name,cover_i,first_publish_year,subject,language,ratings_average,ratings_count,edition_count"

const maxEditions = 20

// SearchQuery is a structured, fielded catalog search. Zero values mean
// "not filtered".
type SearchQuery struct {
	Query     string
	Title     string
	Author    string
	Publisher string
	Subject   string
	Language  string
	YearFrom  int
	YearTo    int
	Limit     int
	Offset    int
}

// build renders the query into Open Library's fielded search syntax.
func (q SearchQuery) build() string {
	var parts []string
	add := func(field, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if field == "" {
			parts = append(parts, value)
			return
		}
		parts = append(parts, fmt.Sprintf(`%s:"%s"`, field, value))
	}
	add("", q.Query)
	add("title", q.Title)
	add("author", q.Author)
	add("publisher", q.Publisher)
	add("subject", q.Subject)
	add("language", q.Language)
	if q.YearFrom > 0 || q.YearTo > 0 {
		from, to := "*", "*"
		if q.YearFrom > 0 {
			from = strconv.Itoa(q.YearFrom)
		}
		if q.YearTo > 0 {
			to = strconv.Itoa(q.YearTo)
		}
		parts = append(parts, fmt.Sprintf("first_publish_year:[%s TO %s]", from, to))
	}
	return strings.Join(parts, " AND ")
}

// Canonical is a stable rendering of the whole query, used as cache-key input.
func (q SearchQuery) Canonical() string {
	return fmt.Sprintf("%s|%d|%d", q.build(), q.Limit, q.Offset)
}

// Client is the raw Open Library API client. It returns errors; the catalog
// service above it decides which of those are absorbed into empty results.
type Client interface {
	Search(ctx context.Context, q SearchQuery) (*types.SearchResult, error)
	GetWork(ctx context.Context, workID string) (*types.BookDetail, error)
	GetBatch(ctx context.Context, workIDs []string) (map[string]*types.BookSummary, error)
	GetSubject(ctx context.Context, subject string, limit, offset int) (*types.SearchResult, error)
	GetTrending(ctx context.Context, period string, limit int) ([]*types.BookSummary, error)
	GetRatings(ctx context.Context, workID string) (*types.UpstreamRating, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimSpace(utils.GetEnv("OPENLIBRARY_BASE_URL", "https://openlibrary.org", log))
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := utils.GetEnvAsInt("OPENLIBRARY_TIMEOUT_SECONDS", 15, log)
	maxRetries := utils.GetEnvAsInt("OPENLIBRARY_MAX_RETRIES", 2, log)

	return &client{
		log:        log.With("service", "OpenLibraryClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type olHTTPError struct {
	StatusCode int
	Body       string
}

func (e *olHTTPError) Error() string {
	return fmt.Sprintf("openlibrary http %d: %s", e.StatusCode, e.Body)
}

func (e *olHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func decodeJSON(resp *http.Response, out any) error {
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) getOnce(ctx context.Context, path string, query url.Values, out any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &olHTTPError{StatusCode: resp.StatusCode, Body: resp.Status}
	}
	if err := decodeJSON(resp, out); err != nil {
		return resp, fmt.Errorf("openlibrary decode %s: %w", path, err)
	}
	return resp, nil
}

func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, err := c.getOnce(ctx, path, query, out)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 5*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Open Library request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *client) Search(ctx context.Context, q SearchQuery) (*types.SearchResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	query := url.Values{}
	query.Set("q", q.build())
	query.Set("fields", searchFields)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(q.Offset))

	var resp searchResponse
	if err := c.get(ctx, "/search.json", query, &resp); err != nil {
		return nil, err
	}

	// The upstream language field lists every edition language, so a language
	// filter in the query still returns works whose primary edition is in
	// another language; filter again client-side.
	wantLang := strings.ToLower(strings.TrimSpace(q.Language))

	books := make([]*types.BookSummary, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		if wantLang != "" && !hasLanguage(doc, wantLang) {
			continue
		}
		if b := doc.toSummary(); b != nil && b.ID != "" {
			books = append(books, b)
		}
	}
	return &types.SearchResult{Total: resp.NumFound, Books: books}, nil
}

func hasLanguage(doc *searchDoc, lang string) bool {
	for _, l := range doc.Language {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

func (c *client) GetWork(ctx context.Context, workID string) (*types.BookDetail, error) {
	var work workResponse
	if err := c.get(ctx, "/works/"+workID+".json", nil, &work); err != nil {
		var httpErr *olHTTPError
		if errors.As(err, &httpErr) && (httpErr.StatusCode == http.StatusNotFound || httpErr.StatusCode == http.StatusForbidden) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	detail := work.toDetail()

	// Authors, editions and ratings come from separate endpoints; fetch them
	// concurrently. Only the work itself is load-bearing, so each branch
	// degrades to partial data on failure.
	authorKeys := work.authorKeys()
	authors := make([]string, len(authorKeys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range authorKeys {
		i, key := i, key
		g.Go(func() error {
			var author authorResponse
			if err := c.get(gctx, "/authors/"+key+".json", nil, &author); err != nil {
				c.log.Warn("Author lookup failed", "author", key, "error", err)
				return nil
			}
			authors[i] = author.Name
			return nil
		})
	}

	var editions editionsResponse
	g.Go(func() error {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(maxEditions))
		if err := c.get(gctx, "/works/"+workID+"/editions.json", query, &editions); err != nil {
			c.log.Warn("Editions lookup failed", "work", workID, "error", err)
		}
		return nil
	})

	var rating *types.UpstreamRating
	g.Go(func() error {
		r, err := c.GetRatings(gctx, workID)
		if err != nil {
			c.log.Warn("Ratings lookup failed", "work", workID, "error", err)
			return nil
		}
		rating = r
		return nil
	})

	_ = g.Wait()

	for _, name := range authors {
		if name != "" {
			detail.Authors = append(detail.Authors, name)
		}
	}
	detail.Publishers = editions.publishers()
	detail.Languages = editions.languages()
	detail.EditionCount = editions.Size
	if rating != nil {
		detail.UpstreamRating = rating.Average
		detail.UpstreamRatingCount = rating.Count
	}
	return detail, nil
}

// GetBatch resolves up to a page of work ids with one OR-combined search call
// instead of N sequential fetches. Ids missing from the response are simply
// absent from the map.
func (c *client) GetBatch(ctx context.Context, workIDs []string) (map[string]*types.BookSummary, error) {
	out := map[string]*types.BookSummary{}
	if len(workIDs) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(workIDs))
	for _, id := range workIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			keys = append(keys, `"/works/`+id+`"`)
		}
	}
	if len(keys) == 0 {
		return out, nil
	}

	query := url.Values{}
	query.Set("q", "key:("+strings.Join(keys, " OR ")+")")
	query.Set("fields", searchFields)
	query.Set("limit", strconv.Itoa(len(keys)))

	var resp searchResponse
	if err := c.get(ctx, "/search.json", query, &resp); err != nil {
		return nil, err
	}

	for _, doc := range resp.Docs {
		if b := doc.toSummary(); b != nil && b.ID != "" {
			out[b.ID] = b
		}
	}
	return out, nil
}

func (c *client) GetSubject(ctx context.Context, subject string, limit, offset int) (*types.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(subject), " ", "_"))

	var resp subjectResponse
	if err := c.get(ctx, "/subjects/"+url.PathEscape(slug)+".json", query, &resp); err != nil {
		return nil, err
	}

	books := make([]*types.BookSummary, 0, len(resp.Works))
	for _, work := range resp.Works {
		if b := work.toSummary(subject); b != nil && b.ID != "" {
			books = append(books, b)
		}
	}
	return &types.SearchResult{Total: resp.WorkCount, Books: books}, nil
}

func (c *client) GetTrending(ctx context.Context, period string, limit int) ([]*types.BookSummary, error) {
	if period == "" {
		period = "daily"
	}
	if limit <= 0 {
		limit = 20
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp trendingResponse
	if err := c.get(ctx, "/trending/"+url.PathEscape(period)+".json", query, &resp); err != nil {
		return nil, err
	}

	books := make([]*types.BookSummary, 0, len(resp.Works))
	for _, doc := range resp.Works {
		if b := doc.toSummary(); b != nil && b.ID != "" {
			books = append(books, b)
		}
		if len(books) == limit {
			break
		}
	}
	return books, nil
}

func (c *client) GetRatings(ctx context.Context, workID string) (*types.UpstreamRating, error) {
	var resp ratingsResponse
	if err := c.get(ctx, "/works/"+workID+"/ratings.json", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toRating(), nil
}
