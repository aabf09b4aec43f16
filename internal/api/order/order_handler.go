package order

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/secondhand-market/internal/api"
	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	PlaceOrder(w http.ResponseWriter, r *http.Request)
	ListPurchases(w http.ResponseWriter, r *http.Request)
	ListSales(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	CancelOrder(w http.ResponseWriter, r *http.Request)
	CompleteOrder(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	service OrderService
	logger  *slog.Logger
}

func NewHandlerImpl(service OrderService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// PlaceOrder godoc
// @Summary      Buy a product
// @Description  Places an order for an available product and marks it sold.
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        order body types.PlaceOrderRequest true "Order"
// @Success      201 {object} types.Order
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response "Own product"
// @Failure      404 {object} types.Response
// @Failure      409 {object} types.Response "Product not available"
// @Security     BearerAuth
// @Router       /orders [post]
func (h *HandlerImpl) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	var req types.PlaceOrderRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.service.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, o)
}

// ListPurchases godoc
// @Summary      My purchases
// @Tags         Orders
// @Produce      json
// @Success      200 {array} types.Order
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /orders [get]
func (h *HandlerImpl) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	orders, err := h.service.ListPurchases(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list purchases", slog.Any("error", err))
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, orders)
}

// ListSales godoc
// @Summary      My sales
// @Tags         Orders
// @Produce      json
// @Success      200 {array} types.Order
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/sales [get]
func (h *HandlerImpl) ListSales(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	orders, err := h.service.ListSales(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list sales", slog.Any("error", err))
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, orders)
}

// GetOrder godoc
// @Summary      Get order
// @Description  Visible to the buyer and the seller only.
// @Tags         Orders
// @Produce      json
// @Param        orderID path string true "Order ID"
// @Success      200 {object} types.Order
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{orderID} [get]
func (h *HandlerImpl) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.service.GetOrder)
}

// CancelOrder godoc
// @Summary      Cancel order
// @Description  Buyer or seller may cancel a placed order. The product becomes available again.
// @Tags         Orders
// @Produce      json
// @Param        orderID path string true "Order ID"
// @Success      200 {object} types.Order
// @Failure      403 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{orderID}/cancel [post]
func (h *HandlerImpl) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.service.CancelOrder)
}

// CompleteOrder godoc
// @Summary      Complete order
// @Description  Seller marks a placed order as completed.
// @Tags         Orders
// @Produce      json
// @Param        orderID path string true "Order ID"
// @Success      200 {object} types.Order
// @Failure      403 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /orders/{orderID}/complete [post]
func (h *HandlerImpl) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.withOrder(w, r, h.service.CompleteOrder)
}

func (h *HandlerImpl) withOrder(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	orderID, err := api.URLParamUUID(r, "orderID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	o, err := action(r.Context(), userID, orderID)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, o)
}
