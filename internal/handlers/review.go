package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openshelf/openshelf-backend/internal/middleware"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type ReviewHandler struct {
	reviews services.ReviewService
}

func NewReviewHandler(reviews services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type reviewRequest struct {
	BookID  string `json:"book_id"`
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

func (rh *ReviewHandler) Create(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	review, err := rh.reviews.CreateReview(c.Request.Context(), middleware.UserID(c), req.BookID, req.Rating, req.Content)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_review_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (rh *ReviewHandler) Update(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_review_id", err)
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	review, err := rh.reviews.UpdateReview(c.Request.Context(), middleware.UserID(c), reviewID, req.Rating, req.Content)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "update_review_failed", err)
		return
	}
	RespondOK(c, gin.H{"review": review})
}

func (rh *ReviewHandler) Delete(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_review_id", err)
		return
	}

	if err := rh.reviews.DeleteReview(c.Request.Context(), middleware.UserID(c), reviewID); err != nil {
		RespondError(c, http.StatusBadRequest, "delete_review_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rh *ReviewHandler) ListByBook(c *gin.Context) {
	bookID := c.Param("id")
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	reviews, total, err := rh.reviews.ListBookReviews(c.Request.Context(), bookID, page, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_reviews_failed", err)
		return
	}
	RespondOK(c, gin.H{"reviews": reviews, "total": total, "page": page, "limit": limit})
}
