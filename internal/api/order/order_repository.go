package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

var _ OrderRepo = (*PostgresOrderRepo)(nil)

type OrderRepo interface {
	// PlaceOrder locks the product, checks it can be bought by buyerID and
	// inserts the order while marking the product sold, all in one transaction.
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, req types.PlaceOrderRequest) (*types.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]types.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]types.Order, error)
	// Cancel moves a placed order to cancelled and releases the product.
	Cancel(ctx context.Context, id uuid.UUID) error
	// Complete moves a placed order to completed.
	Complete(ctx context.Context, id uuid.UUID) error
}

type PostgresOrderRepo struct {
	logger *slog.Logger
	db     database.Querier
}

func NewPostgresOrderRepo(db database.Querier, logger *slog.Logger) *PostgresOrderRepo {
	return &PostgresOrderRepo{
		logger: logger,
		db:     db,
	}
}

const orderSelect = `
SELECT o.id, o.product_id, o.buyer_id, o.seller_id, o.price, o.status,
       o.shipping_address, o.message, p.title,
       (SELECT pi.image_url FROM product_images pi
         WHERE pi.product_id = o.product_id
         ORDER BY pi.position, pi.id LIMIT 1) AS thumbnail,
       o.created_at, o.updated_at
FROM orders o
JOIN products p ON p.id = o.product_id`

func scanOrder(row pgx.Row) (*types.Order, error) {
	var o types.Order
	var status string
	err := row.Scan(&o.ID, &o.ProductID, &o.BuyerID, &o.SellerID, &o.Price, &status,
		&o.ShippingAddress, &o.Message, &o.ProductTitle, &o.ProductThumbnail, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = types.OrderStatus(status)
	return &o, nil
}

func (r *PostgresOrderRepo) PlaceOrder(ctx context.Context, buyerID uuid.UUID, req types.PlaceOrderRequest) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderRepo").Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "orders"),
		attribute.String("product.id", req.ProductID.String()),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "PlaceOrder"), slog.String("productID", req.ProductID.String()))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var sellerID uuid.UUID
	var price float64
	var status, title string
	start := time.Now()
	err = tx.QueryRow(ctx, `
		SELECT seller_id, price, status, title
		FROM products
		WHERE id = $1
		FOR UPDATE`, req.ProductID).Scan(&sellerID, &price, &status, &title)
	database.ObserveQuery(ctx, "products", "SELECT", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock product failed")
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	if sellerID == buyerID {
		return nil, fmt.Errorf("cannot buy your own product: %w", types.ErrOwnProduct)
	}
	if types.ProductStatus(status) != types.ProductStatusAvailable {
		return nil, fmt.Errorf("product is %s: %w", status, types.ErrProductUnavailable)
	}

	o := types.Order{
		ProductID:       req.ProductID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Price:           price,
		ShippingAddress: req.ShippingAddress,
		Message:         req.Message,
		ProductTitle:    title,
	}
	var orderStatus string
	start = time.Now()
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (product_id, buyer_id, seller_id, price, shipping_address, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at, updated_at`,
		o.ProductID, o.BuyerID, o.SellerID, o.Price, o.ShippingAddress, o.Message,
	).Scan(&o.ID, &orderStatus, &o.CreatedAt, &o.UpdatedAt)
	database.ObserveQuery(ctx, "orders", "INSERT", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		// The partial unique index on active orders catches a concurrent purchase.
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("product already ordered: %w", types.ErrProductUnavailable)
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}
	o.Status = types.OrderStatus(orderStatus)

	if _, err := tx.Exec(ctx, `UPDATE products SET status = 'sold', updated_at = NOW() WHERE id = $1`, req.ProductID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark sold failed")
		return nil, fmt.Errorf("failed to mark product sold: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	l.InfoContext(ctx, "Order placed", slog.String("orderID", o.ID.String()), slog.String("buyerID", buyerID.String()))
	return &o, nil
}

func (r *PostgresOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Order, error) {
	start := time.Now()
	o, err := scanOrder(r.db.QueryRow(ctx, orderSelect+"\nWHERE o.id = $1", id))
	database.ObserveQuery(ctx, "orders", "SELECT", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

func (r *PostgresOrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]types.Order, error) {
	return r.list(ctx, "o.buyer_id", buyerID)
}

func (r *PostgresOrderRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]types.Order, error) {
	return r.list(ctx, "o.seller_id", sellerID)
}

// list is only called with a fixed column name, never user input.
func (r *PostgresOrderRepo) list(ctx context.Context, column string, userID uuid.UUID) ([]types.Order, error) {
	ctx, span := otel.Tracer("OrderRepo").Start(ctx, "List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "orders"),
		attribute.String("filter.column", column),
	))
	defer span.End()
	start := time.Now()

	rows, err := r.db.Query(ctx, orderSelect+"\nWHERE "+column+" = $1\nORDER BY o.created_at DESC, o.id DESC", userID)
	if err != nil {
		database.ObserveQuery(ctx, "orders", "SELECT", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []types.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	err = rows.Err()
	database.ObserveQuery(ctx, "orders", "SELECT", start, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func (r *PostgresOrderRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("OrderRepo").Start(ctx, "Cancel", trace.WithAttributes(
		attribute.String("order.id", id.String()),
	))
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var productID uuid.UUID
	start := time.Now()
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'placed'
		RETURNING product_id`, id).Scan(&productID)
	database.ObserveQuery(ctx, "orders", "UPDATE", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %s is no longer placed: %w", id, types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET status = 'available', updated_at = NOW() WHERE id = $1`, productID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release product failed")
		return fmt.Errorf("failed to release product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepo) Complete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'placed'`, id)
	database.ObserveQuery(ctx, "orders", "UPDATE", start, err)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s is no longer placed: %w", id, types.ErrConflict)
	}
	return nil
}
