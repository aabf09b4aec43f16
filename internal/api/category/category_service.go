package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

const (
	defaultTTL   = 10 * time.Minute
	allCacheKey  = "categories:all"
	slugCacheKey = "categories:slug:"
)

var _ CategoryService = (*CategoryServiceImpl)(nil)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	// GetBySlug returns types.ErrNotFound for unknown slugs.
	GetBySlug(ctx context.Context, slug string) (*types.Category, error)
}

// CategoryServiceImpl serves the seeded category table from memory.
// Categories change only through migrations, so entries simply expire after ttl.
type CategoryServiceImpl struct {
	logger *slog.Logger
	repo   CategoryRepo
	cache  *cache.Cache
}

func NewCategoryService(repo CategoryRepo, ttl time.Duration, logger *slog.Logger) *CategoryServiceImpl {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CategoryServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (s *CategoryServiceImpl) ListCategories(ctx context.Context) ([]types.Category, error) {
	ctx, span := otel.Tracer("CategoryService").Start(ctx, "ListCategories")
	defer span.End()

	if cached, found := s.cache.Get(allCacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]types.Category), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load categories", slog.String("method", "ListCategories"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	s.cache.SetDefault(allCacheKey, categories)
	for i := range categories {
		c := categories[i]
		s.cache.SetDefault(slugCacheKey+c.Slug, &c)
	}
	return categories, nil
}

func (s *CategoryServiceImpl) GetBySlug(ctx context.Context, slug string) (*types.Category, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, fmt.Errorf("category is required: %w", types.ErrValidation)
	}
	if cached, found := s.cache.Get(slugCacheKey + slug); found {
		return cached.(*types.Category), nil
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].Slug == slug {
			return &categories[i], nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", slug, types.ErrNotFound)
}
