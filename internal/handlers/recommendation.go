package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/middleware"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type RecommendationHandler struct {
	recommendations services.RecommendationService
}

func NewRecommendationHandler(recommendations services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

func (rh *RecommendationHandler) GetRecommendations(c *gin.Context) {
	userID := middleware.UserID(c)
	limit := queryInt(c, "limit", 10)

	books, err := rh.recommendations.GetRecommendations(c.Request.Context(), userID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "recommendations_failed", err)
		return
	}
	RespondOK(c, gin.H{"books": books})
}
