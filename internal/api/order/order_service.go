package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/secondhand-market/app/observability/metrics"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

const (
	maxShippingAddressLen = 500
	maxMessageLen         = 1000
)

var _ OrderService = (*OrderServiceImpl)(nil)

type OrderService interface {
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, req types.PlaceOrderRequest) (*types.Order, error)
	ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]types.Order, error)
	ListSales(ctx context.Context, sellerID uuid.UUID) ([]types.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
	CompleteOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
}

type OrderServiceImpl struct {
	logger *slog.Logger
	repo   OrderRepo
}

func NewOrderService(repo OrderRepo, logger *slog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *OrderServiceImpl) PlaceOrder(ctx context.Context, buyerID uuid.UUID, req types.PlaceOrderRequest) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("buyer.id", buyerID.String()),
		attribute.String("product.id", req.ProductID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "PlaceOrder"), slog.String("buyerID", buyerID.String()))

	if req.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product_id is required: %w", types.ErrValidation)
	}
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	req.Message = strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(req.ShippingAddress) > maxShippingAddressLen {
		return nil, fmt.Errorf("shipping_address longer than %d characters: %w", maxShippingAddressLen, types.ErrValidation)
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLen {
		return nil, fmt.Errorf("message longer than %d characters: %w", maxMessageLen, types.ErrValidation)
	}

	o, err := s.repo.PlaceOrder(ctx, buyerID, req)
	if err != nil {
		l.WarnContext(ctx, "Order rejected", slog.String("productID", req.ProductID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		return nil, fmt.Errorf("error placing order: %w", err)
	}

	metrics.Get().OrdersPlacedTotal.Add(ctx, 1)
	return o, nil
}

func (s *OrderServiceImpl) ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]types.Order, error) {
	orders, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("error listing purchases: %w", err)
	}
	return orders, nil
}

func (s *OrderServiceImpl) ListSales(ctx context.Context, sellerID uuid.UUID) ([]types.Order, error) {
	orders, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("error listing sales: %w", err)
	}
	return orders, nil
}

// GetOrder returns the order if userID is its buyer or seller.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("error getting order: %w", err)
	}
	if o.BuyerID != userID && o.SellerID != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, types.ErrForbidden)
	}
	return o, nil
}

func (s *OrderServiceImpl) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "CancelOrder", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if o.Status != types.OrderStatusPlaced {
		return nil, fmt.Errorf("only placed orders can be cancelled: %w", types.ErrConflict)
	}
	if err := s.repo.Cancel(ctx, orderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return nil, fmt.Errorf("error cancelling order: %w", err)
	}

	s.logger.InfoContext(ctx, "Order cancelled", slog.String("method", "CancelOrder"),
		slog.String("orderID", orderID.String()), slog.String("by", userID.String()))
	return s.repo.GetByID(ctx, orderID)
}

func (s *OrderServiceImpl) CompleteOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "CompleteOrder", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if o.SellerID != userID {
		return nil, fmt.Errorf("only the seller can complete an order: %w", types.ErrForbidden)
	}
	if o.Status != types.OrderStatusPlaced {
		return nil, fmt.Errorf("only placed orders can be completed: %w", types.ErrConflict)
	}
	if err := s.repo.Complete(ctx, orderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "complete failed")
		return nil, fmt.Errorf("error completing order: %w", err)
	}
	return s.repo.GetByID(ctx, orderID)
}
