package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/clients/openlibrary"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type BookHandler struct {
	catalog services.CatalogService
	ratings services.RatingService
}

func NewBookHandler(catalog services.CatalogService, ratings services.RatingService) *BookHandler {
	return &BookHandler{catalog: catalog, ratings: ratings}
}

func (bh *BookHandler) Search(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	q := openlibrary.SearchQuery{
		Query:     c.Query("q"),
		Title:     c.Query("title"),
		Author:    c.Query("author"),
		Publisher: c.Query("publisher"),
		Subject:   c.Query("subject"),
		Language:  c.Query("language"),
		YearFrom:  queryInt(c, "year_from", 0),
		YearTo:    queryInt(c, "year_to", 0),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	result := bh.catalog.Search(c.Request.Context(), q)
	RespondOK(c, result)
}

func (bh *BookHandler) GetByID(c *gin.Context) {
	bookID := c.Param("id")

	book, err := bh.catalog.GetBook(c.Request.Context(), bookID)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "book_not_found", err)
			return
		}
		RespondError(c, http.StatusBadGateway, "catalog_error", err)
		return
	}

	// The raw upstream fields on the detail are inputs, not the displayed
	// rating; blend in local reviews before responding.
	rating := bh.ratings.CombineRatings(c.Request.Context(), book.ID, book.UpstreamRating, book.UpstreamRatingCount)
	RespondOK(c, gin.H{"book": book, "rating": rating})
}

func (bh *BookHandler) Trending(c *gin.Context) {
	period := c.DefaultQuery("period", "daily")
	limit := queryInt(c, "limit", 20)

	books := bh.catalog.GetTrendingBooks(c.Request.Context(), period, limit)
	RespondOK(c, gin.H{"books": books})
}

func (bh *BookHandler) BySubject(c *gin.Context) {
	subject := c.Param("subject")
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	result := bh.catalog.GetSubjectBooks(c.Request.Context(), subject, limit, offset)
	RespondOK(c, result)
}

func queryInt(c *gin.Context, name string, defaultVal int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return i
}
