package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openshelf/openshelf-backend/internal/services"
)

type CategoryHandler struct {
	categories services.CategoryService
}

func NewCategoryHandler(categories services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (ch *CategoryHandler) List(c *gin.Context) {
	categories, err := ch.categories.ListCategories(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_categories_failed", err)
		return
	}
	RespondOK(c, gin.H{"categories": categories})
}

func (ch *CategoryHandler) Books(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_category_id", err)
		return
	}
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	result, err := ch.categories.GetCategoryBooks(c.Request.Context(), categoryID, limit, offset)
	if err != nil {
		RespondError(c, http.StatusNotFound, "category_not_found", err)
		return
	}
	RespondOK(c, result)
}
