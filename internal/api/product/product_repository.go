package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/secondhand-market/app/db"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ ProductRepo = (*PostgresProductRepo)(nil)

// NewProduct is a validated listing ready for insertion.
type NewProduct struct {
	SellerID    uuid.UUID
	CategoryID  int
	Title       string
	Description string
	Price       float64
	Condition   types.ProductCondition
	Location    string
	Images      []string
}

// ProductUpdate holds the validated columns to change. Nil fields are left untouched.
type ProductUpdate struct {
	CategoryID  *int
	Title       *string
	Description *string
	Price       *float64
	Condition   *types.ProductCondition
	Location    *string
	Images      *[]string
}

type ProductRepo interface {
	Search(ctx context.Context, f types.ProductFilter) ([]types.Product, error)
	Count(ctx context.Context, f types.ProductFilter) (int, error)
	// GetByID returns the product row without its gallery.
	GetByID(ctx context.Context, id uuid.UUID) (*types.Product, error)
	GetImages(ctx context.Context, id uuid.UUID) ([]string, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	Create(ctx context.Context, p NewProduct) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, u ProductUpdate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status types.ProductStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasActiveOrder(ctx context.Context, id uuid.UUID) (bool, error)
}

type PostgresProductRepo struct {
	logger *slog.Logger
	db     database.Querier
}

func NewPostgresProductRepo(db database.Querier, logger *slog.Logger) *PostgresProductRepo {
	return &PostgresProductRepo{
		logger: logger,
		db:     db,
	}
}

func scanProduct(row pgx.Row, withImages bool) (*types.Product, error) {
	var p types.Product
	var condition, status string
	dest := []any{
		&p.ID, &p.SellerID, &p.SellerUsername, &p.CategoryID, &p.CategorySlug, &p.Title, &p.Description,
		&p.Price, &condition, &p.Location, &status, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt,
	}
	if withImages {
		dest = append(dest, &p.Images)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Condition = types.ProductCondition(condition)
	p.Status = types.ProductStatus(status)
	setGallery(&p, p.Images)
	return &p, nil
}

// setGallery attaches images and derives the thumbnail from the first one.
func setGallery(p *types.Product, images []string) {
	if images == nil {
		images = []string{}
	}
	p.Images = images
	p.ThumbnailURL = nil
	if len(images) > 0 {
		thumb := images[0]
		p.ThumbnailURL = &thumb
	}
}

func (r *PostgresProductRepo) Search(ctx context.Context, f types.ProductFilter) ([]types.Product, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "products"),
		attribute.String("filter.category", f.Category),
		attribute.String("filter.sort", string(f.Sort)),
		attribute.Int("filter.page", f.Page),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "Search"))
	start := time.Now()

	query, args := searchQuery(f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		database.ObserveQuery(ctx, "products", "SELECT", start, err)
		l.ErrorContext(ctx, "Failed to query products", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := make([]types.Product, 0, f.Limit)
	for rows.Next() {
		p, err := scanProduct(rows, true)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	err = rows.Err()
	database.ObserveQuery(ctx, "products", "SELECT", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rows iteration failed")
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(products)))
	return products, nil
}

func (r *PostgresProductRepo) Count(ctx context.Context, f types.ProductFilter) (int, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Count")
	defer span.End()
	start := time.Now()

	query, args := countQuery(f)
	var total int
	err := r.db.QueryRow(ctx, query, args...).Scan(&total)
	database.ObserveQuery(ctx, "products", "COUNT", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (r *PostgresProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	start := time.Now()
	p, err := scanProduct(r.db.QueryRow(ctx, "SELECT "+productColumns+productFrom+"\nWHERE p.id = $1", id), false)
	database.ObserveQuery(ctx, "products", "SELECT", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepo) GetImages(ctx context.Context, id uuid.UUID) ([]string, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, `
		SELECT image_url FROM product_images
		WHERE product_id = $1
		ORDER BY position, id`, id)
	if err != nil {
		database.ObserveQuery(ctx, "product_images", "SELECT", start, err)
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	images := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, url)
	}
	err = rows.Err()
	database.ObserveQuery(ctx, "product_images", "SELECT", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}
	return images, nil
}

func (r *PostgresProductRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	_, err := r.db.Exec(ctx, `UPDATE products SET view_count = view_count + 1 WHERE id = $1`, id)
	database.ObserveQuery(ctx, "products", "UPDATE", start, err)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// insertImages writes the gallery with positions taken from slice order.
func insertImages(ctx context.Context, tx pgx.Tx, productID uuid.UUID, images []string) error {
	if len(images) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO product_images (product_id, image_url, position)
		SELECT $1, t.url, t.ord - 1
		FROM unnest($2::text[]) WITH ORDINALITY AS t(url, ord)`,
		productID, images)
	if err != nil {
		return fmt.Errorf("failed to insert product images: %w", err)
	}
	return nil
}

func (r *PostgresProductRepo) Create(ctx context.Context, p NewProduct) (uuid.UUID, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "products"),
		attribute.Int("images.count", len(p.Images)),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "Create"), slog.String("sellerID", p.SellerID.String()))
	start := time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO products (seller_id, category_id, title, description, price, condition, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.SellerID, p.CategoryID, p.Title, p.Description, p.Price, string(p.Condition), p.Location,
	).Scan(&id)
	database.ObserveQuery(ctx, "products", "INSERT", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert product", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return uuid.Nil, fmt.Errorf("failed to insert product: %w", err)
	}

	if err := insertImages(ctx, tx, id, p.Images); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert images failed")
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return uuid.Nil, fmt.Errorf("failed to commit product: %w", err)
	}

	l.InfoContext(ctx, "Product created", slog.String("productID", id.String()))
	return id, nil
}

func (r *PostgresProductRepo) Update(ctx context.Context, id uuid.UUID, u ProductUpdate) error {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "products"),
		attribute.String("product.id", id.String()),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "Update"), slog.String("productID", id.String()))
	start := time.Now()

	var setClauses []string
	var args []any
	argID := 1

	if u.CategoryID != nil {
		setClauses = append(setClauses, fmt.Sprintf("category_id = $%d", argID))
		args = append(args, *u.CategoryID)
		argID++
	}
	if u.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argID))
		args = append(args, *u.Title)
		argID++
	}
	if u.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argID))
		args = append(args, *u.Description)
		argID++
	}
	if u.Price != nil {
		setClauses = append(setClauses, fmt.Sprintf("price = $%d", argID))
		args = append(args, *u.Price)
		argID++
	}
	if u.Condition != nil {
		setClauses = append(setClauses, fmt.Sprintf("condition = $%d", argID))
		args = append(args, string(*u.Condition))
		argID++
	}
	if u.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", argID))
		args = append(args, *u.Location)
		argID++
	}
	// updated_at moves even when only the gallery changes.
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argID)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, query, args...)
	database.ObserveQuery(ctx, "products", "UPDATE", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update product", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, types.ErrNotFound)
	}

	if u.Images != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, id); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to clear product images: %w", err)
		}
		if err := insertImages(ctx, tx, id, *u.Images); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("failed to commit product update: %w", err)
	}
	return nil
}

// noActiveOrder keeps status changes and deletes from racing a concurrent order.
const noActiveOrder = `NOT EXISTS (
	SELECT 1 FROM orders o WHERE o.product_id = products.id AND o.status IN ('placed', 'completed')
)`

func (r *PostgresProductRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status types.ProductStatus) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET status = $1, updated_at = NOW()
		WHERE id = $2 AND `+noActiveOrder, string(status), id)
	database.ObserveQuery(ctx, "products", "UPDATE", start, err)
	if err != nil {
		return fmt.Errorf("failed to update product status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id, "status is managed by the product's order")
	}
	return nil
}

// Delete removes the product; its images and cancelled orders cascade.
func (r *PostgresProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1 AND `+noActiveOrder, id)
	database.ObserveQuery(ctx, "products", "DELETE", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id, "product has an active order")
	}
	return nil
}

// missOrConflict explains a guarded write that touched no rows.
func (r *PostgresProductRepo) missOrConflict(ctx context.Context, id uuid.UUID, msg string) error {
	active, err := r.HasActiveOrder(ctx, id)
	if err != nil {
		return err
	}
	if active {
		return fmt.Errorf("%s: %w", msg, types.ErrConflict)
	}
	return fmt.Errorf("product %s: %w", id, types.ErrNotFound)
}

func (r *PostgresProductRepo) HasActiveOrder(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders WHERE product_id = $1 AND status IN ('placed', 'completed')
		)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active orders: %w", err)
	}
	return exists, nil
}
