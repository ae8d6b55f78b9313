package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// CategoryService serves the curated browse shelves. Each category is a named
// alias for an upstream subject, so its book listing rides the subject cache.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]*types.Category, error)
	GetCategoryBooks(ctx context.Context, categoryID uuid.UUID, limit, offset int) (*types.SearchResult, error)
}

type categoryService struct {
	db           *gorm.DB
	log          *logger.Logger
	categoryRepo repos.CategoryRepo
	catalog      CatalogService
}

func NewCategoryService(db *gorm.DB, baseLog *logger.Logger, categoryRepo repos.CategoryRepo, catalog CatalogService) CategoryService {
	serviceLog := baseLog.With("service", "CategoryService")
	return &categoryService{
		db:           db,
		log:          serviceLog,
		categoryRepo: categoryRepo,
		catalog:      catalog,
	}
}

func (cs *categoryService) ListCategories(ctx context.Context) ([]*types.Category, error) {
	return cs.categoryRepo.List(ctx, nil)
}

func (cs *categoryService) GetCategoryBooks(ctx context.Context, categoryID uuid.UUID, limit, offset int) (*types.SearchResult, error) {
	categories, err := cs.categoryRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	for _, category := range categories {
		if category.ID == categoryID {
			return cs.catalog.GetSubjectBooks(ctx, category.Subject, limit, offset), nil
		}
	}
	return nil, fmt.Errorf("category not found")
}
