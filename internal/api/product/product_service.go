package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/secondhand-market/app/observability/metrics"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ ProductService = (*ProductServiceImpl)(nil)

type ProductService interface {
	SearchProducts(ctx context.Context, filter types.ProductFilter) (*types.ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*types.Product, error)
	CreateProduct(ctx context.Context, sellerID uuid.UUID, params types.CreateProductParams) (*types.Product, error)
	UpdateProduct(ctx context.Context, userID, id uuid.UUID, params types.UpdateProductParams) (*types.Product, error)
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status types.ProductStatus) (*types.Product, error)
	DeleteProduct(ctx context.Context, userID, id uuid.UUID) error
}

// CategoryResolver looks up categories by slug.
type CategoryResolver interface {
	GetBySlug(ctx context.Context, slug string) (*types.Category, error)
}

type ProductServiceImpl struct {
	logger     *slog.Logger
	repo       ProductRepo
	categories CategoryResolver
}

func NewProductService(repo ProductRepo, categories CategoryResolver, logger *slog.Logger) *ProductServiceImpl {
	return &ProductServiceImpl{
		logger:     logger,
		repo:       repo,
		categories: categories,
	}
}

func (s *ProductServiceImpl) SearchProducts(ctx context.Context, filter types.ProductFilter) (*types.ProductPage, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "SearchProducts")
	defer span.End()
	l := s.logger.With(slog.String("method", "SearchProducts"))
	start := time.Now()

	f, err := NormalizeFilter(filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid filter")
		return nil, err
	}

	var items []types.Product
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.Search(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Failed to search products", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("error searching products: %w", err)
	}

	metrics.Get().ProductSearchDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("sort", string(f.Sort)), attribute.Bool("has_query", f.Query != "")))
	span.SetAttributes(attribute.Int("results.total", total))

	return &types.ProductPage{
		Items:   items,
		Total:   total,
		Page:    f.Page,
		Limit:   f.Limit,
		HasMore: f.Offset()+len(items) < total,
	}, nil
}

// loadProduct reads the row and its gallery concurrently.
func (s *ProductServiceImpl) loadProduct(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	var p *types.Product
	var images []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.repo.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = s.repo.GetImages(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	setGallery(p, images)
	return p, nil
}

func (s *ProductServiceImpl) GetProduct(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "GetProduct", trace.WithAttributes(
		attribute.String("product.id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "GetProduct"), slog.String("productID", id.String()))

	p, err := s.loadProduct(ctx, id)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to load product", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("error getting product: %w", err)
	}

	// A lost view is not worth failing the read.
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		l.WarnContext(ctx, "Failed to increment view count", slog.Any("error", err))
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *ProductServiceImpl) resolveCategory(ctx context.Context, slug string) (int, error) {
	c, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return 0, fmt.Errorf("unknown category %q: %w", slug, types.ErrValidation)
		}
		return 0, err
	}
	return c.ID, nil
}

func (s *ProductServiceImpl) CreateProduct(ctx context.Context, sellerID uuid.UUID, params types.CreateProductParams) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "CreateProduct", trace.WithAttributes(
		attribute.String("seller.id", sellerID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateProduct"), slog.String("sellerID", sellerID.String()))

	np, err := s.validateCreate(ctx, sellerID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid product")
		return nil, err
	}

	id, err := s.repo.Create(ctx, np)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create product", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("error creating product: %w", err)
	}
	metrics.Get().ProductsCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("category", params.CategorySlug)))

	p, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error reading created product: %w", err)
	}
	l.InfoContext(ctx, "Product listed", slog.String("productID", id.String()))
	return p, nil
}

func (s *ProductServiceImpl) validateCreate(ctx context.Context, sellerID uuid.UUID, params types.CreateProductParams) (NewProduct, error) {
	np := NewProduct{SellerID: sellerID, Price: params.Price}
	var err error
	if np.Title, err = validateTitle(params.Title); err != nil {
		return np, err
	}
	if np.Description, err = validateDescription(params.Description); err != nil {
		return np, err
	}
	if err = validatePrice(params.Price); err != nil {
		return np, err
	}
	if np.Condition, err = validateCondition(params.Condition); err != nil {
		return np, err
	}
	if np.Location, err = validateLocation(params.Location); err != nil {
		return np, err
	}
	if np.Images, err = validateImages(params.Images); err != nil {
		return np, err
	}
	if np.CategoryID, err = s.resolveCategory(ctx, params.CategorySlug); err != nil {
		return np, err
	}
	return np, nil
}

// ownedProduct loads the product row and checks userID is its seller.
func (s *ProductServiceImpl) ownedProduct(ctx context.Context, userID, id uuid.UUID) (*types.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != userID {
		return nil, fmt.Errorf("product %s belongs to another seller: %w", id, types.ErrForbidden)
	}
	return p, nil
}

func (s *ProductServiceImpl) UpdateProduct(ctx context.Context, userID, id uuid.UUID, params types.UpdateProductParams) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "UpdateProduct", trace.WithAttributes(
		attribute.String("product.id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateProduct"), slog.String("productID", id.String()))

	current, err := s.ownedProduct(ctx, userID, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error updating product: %w", err)
	}
	if current.Status == types.ProductStatusSold {
		return nil, fmt.Errorf("sold products cannot be edited: %w", types.ErrConflict)
	}

	u, err := s.validateUpdate(ctx, params)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.repo.Update(ctx, id, u); err != nil {
		l.ErrorContext(ctx, "Failed to update product", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error updating product: %w", err)
	}
	return s.loadProduct(ctx, id)
}

func (s *ProductServiceImpl) validateUpdate(ctx context.Context, params types.UpdateProductParams) (ProductUpdate, error) {
	var u ProductUpdate
	if params.Title != nil {
		title, err := validateTitle(*params.Title)
		if err != nil {
			return u, err
		}
		u.Title = &title
	}
	if params.Description != nil {
		description, err := validateDescription(*params.Description)
		if err != nil {
			return u, err
		}
		u.Description = &description
	}
	if params.Price != nil {
		if err := validatePrice(*params.Price); err != nil {
			return u, err
		}
		u.Price = params.Price
	}
	if params.Condition != nil {
		if !params.Condition.Valid() {
			return u, fmt.Errorf("unknown condition %q: %w", *params.Condition, types.ErrValidation)
		}
		u.Condition = params.Condition
	}
	if params.Location != nil {
		location, err := validateLocation(*params.Location)
		if err != nil {
			return u, err
		}
		u.Location = &location
	}
	if params.Images != nil {
		images, err := validateImages(*params.Images)
		if err != nil {
			return u, err
		}
		u.Images = &images
	}
	if params.CategorySlug != nil {
		categoryID, err := s.resolveCategory(ctx, *params.CategorySlug)
		if err != nil {
			return u, err
		}
		u.CategoryID = &categoryID
	}
	return u, nil
}

func (s *ProductServiceImpl) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status types.ProductStatus) (*types.Product, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "UpdateStatus", trace.WithAttributes(
		attribute.String("product.id", id.String()),
		attribute.String("product.status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, types.ErrValidation)
	}
	if _, err := s.ownedProduct(ctx, userID, id); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error updating status: %w", err)
	}
	active, err := s.repo.HasActiveOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error updating status: %w", err)
	}
	if active {
		return nil, fmt.Errorf("status is managed by the product's order: %w", types.ErrConflict)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error updating status: %w", err)
	}
	return s.loadProduct(ctx, id)
}

func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "DeleteProduct", trace.WithAttributes(
		attribute.String("product.id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "DeleteProduct"), slog.String("productID", id.String()))

	if _, err := s.ownedProduct(ctx, userID, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deleting product: %w", err)
	}
	active, err := s.repo.HasActiveOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error deleting product: %w", err)
	}
	if active {
		return fmt.Errorf("product has an active order: %w", types.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("error deleting product: %w", err)
	}
	l.InfoContext(ctx, "Product deleted")
	return nil
}
