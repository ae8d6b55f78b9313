package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openshelf/openshelf-backend/internal/middleware"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type PlaylistHandler struct {
	playlists services.PlaylistService
}

func NewPlaylistHandler(playlists services.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists}
}

func (ph *PlaylistHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	playlist, err := ph.playlists.CreatePlaylist(c.Request.Context(), middleware.UserID(c), req.Name, req.Description)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_playlist_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playlist": playlist})
}

func (ph *PlaylistHandler) List(c *gin.Context) {
	playlists, err := ph.playlists.GetUserPlaylists(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_playlists_failed", err)
		return
	}
	RespondOK(c, gin.H{"playlists": playlists})
}

func (ph *PlaylistHandler) Books(c *gin.Context) {
	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_playlist_id", err)
		return
	}

	books, err := ph.playlists.GetPlaylistBooks(c.Request.Context(), playlistID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_playlist_books_failed", err)
		return
	}
	RespondOK(c, gin.H{"books": books})
}

func (ph *PlaylistHandler) AddBook(c *gin.Context) {
	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_playlist_id", err)
		return
	}

	var req struct {
		BookID string `json:"book_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	if err := ph.playlists.AddBook(c.Request.Context(), middleware.UserID(c), playlistID, req.BookID); err != nil {
		RespondError(c, http.StatusBadRequest, "add_book_failed", err)
		return
	}
	c.Status(http.StatusCreated)
}

func (ph *PlaylistHandler) RemoveBook(c *gin.Context) {
	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_playlist_id", err)
		return
	}
	bookID := c.Param("bookId")

	if err := ph.playlists.RemoveBook(c.Request.Context(), middleware.UserID(c), playlistID, bookID); err != nil {
		RespondError(c, http.StatusBadRequest, "remove_book_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
