package order

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

func newTestRouter(repo *MockOrderRepo) http.Handler {
	h := NewHandlerImpl(NewOrderService(repo, slog.Default()), slog.Default())
	r := chi.NewRouter()
	r.Post("/orders", h.PlaceOrder)
	r.Get("/orders", h.ListPurchases)
	r.Get("/orders/sales", h.ListSales)
	r.Get("/orders/{orderID}", h.GetOrder)
	r.Post("/orders/{orderID}/cancel", h.CancelOrder)
	r.Post("/orders/{orderID}/complete", h.CompleteOrder)
	return r
}

func asUser(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, id.String()))
}

func TestOrderHandlers(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()

	t.Run("place requires auth", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newTestRouter(new(MockOrderRepo)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("place maps unavailable to 409", func(t *testing.T) {
		repo := new(MockOrderRepo)
		productID := uuid.New()
		repo.On("PlaceOrder", mock.Anything, buyer, mock.Anything).Return(nil, types.ErrProductUnavailable)

		rr := httptest.NewRecorder()
		newTestRouter(repo).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders",
			bytes.NewBufferString(`{"product_id":"`+productID.String()+`"}`)), buyer))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("place own product is 403", func(t *testing.T) {
		repo := new(MockOrderRepo)
		repo.On("PlaceOrder", mock.Anything, seller, mock.Anything).Return(nil, types.ErrOwnProduct)

		rr := httptest.NewRecorder()
		newTestRouter(repo).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders",
			bytes.NewBufferString(`{"product_id":"`+uuid.NewString()+`"}`)), seller))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("placed", func(t *testing.T) {
		repo := new(MockOrderRepo)
		repo.On("PlaceOrder", mock.Anything, buyer, mock.Anything).Return(placedOrder(buyer, seller), nil)

		rr := httptest.NewRecorder()
		newTestRouter(repo).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders",
			bytes.NewBufferString(`{"product_id":"`+uuid.NewString()+`","shipping_address":"Rua 1"}`)), buyer))
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"placed"`)
	})

	t.Run("sales list", func(t *testing.T) {
		repo := new(MockOrderRepo)
		repo.On("ListBySeller", mock.Anything, seller).Return([]types.Order{*placedOrder(buyer, seller)}, nil)

		rr := httptest.NewRecorder()
		newTestRouter(repo).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/orders/sales", nil), seller))
		assert.Equal(t, http.StatusOK, rr.Code)
		repo.AssertExpectations(t)
	})

	t.Run("bad order id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newTestRouter(new(MockOrderRepo)).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/orders/xyz/cancel", nil), buyer))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
