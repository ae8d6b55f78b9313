package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/middleware"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type LibraryHandler struct {
	library services.UserLibraryService
}

func NewLibraryHandler(library services.UserLibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

func (lh *LibraryHandler) Save(c *gin.Context) {
	bookID := c.Param("bookId")

	saved, err := lh.library.SaveBook(c.Request.Context(), middleware.UserID(c), bookID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "save_book_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"saved_book": saved})
}

func (lh *LibraryHandler) Unsave(c *gin.Context) {
	bookID := c.Param("bookId")

	if err := lh.library.UnsaveBook(c.Request.Context(), middleware.UserID(c), bookID); err != nil {
		RespondError(c, http.StatusBadRequest, "unsave_book_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (lh *LibraryHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	result, err := lh.library.GetSavedBooks(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_saved_books_failed", err)
		return
	}
	RespondOK(c, result)
}
