package product

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

func testRouter(h *HandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Get("/products", h.ListProducts)
	r.Post("/products", h.CreateProduct)
	r.Get("/products/{productID}", h.GetProduct)
	r.Put("/products/{productID}", h.UpdateProduct)
	r.Patch("/products/{productID}/status", h.UpdateStatus)
	r.Delete("/products/{productID}", h.DeleteProduct)
	return r
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID.String()))
}

func TestParseProductFilter(t *testing.T) {
	seller := uuid.New()
	req := httptest.NewRequest(http.MethodGet,
		"/products?category=books&q=tolkien&min_price=5&max_price=20.5&status=all&sort=PRICE_ASC&page=2&limit=10&seller_id="+seller.String(), nil)

	f, err := ParseProductFilter(req)
	require.NoError(t, err)
	assert.Equal(t, "books", f.Category)
	assert.Equal(t, "tolkien", f.Query)
	assert.Equal(t, 5.0, *f.MinPrice)
	assert.Equal(t, 20.5, *f.MaxPrice)
	assert.Equal(t, "all", f.Status)
	assert.Equal(t, types.SortPriceAsc, f.Sort)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, seller, *f.SellerID)

	for _, bad := range []string{"/products?page=two", "/products?min_price=cheap", "/products?seller_id=nobody"} {
		_, err := ParseProductFilter(httptest.NewRequest(http.MethodGet, bad, nil))
		assert.ErrorIs(t, err, types.ErrValidation, bad)
	}
}

func TestListProductsHandler(t *testing.T) {
	svc := new(MockProductService)
	svc.On("SearchProducts", mock.Anything, mock.MatchedBy(func(f types.ProductFilter) bool {
		return f.Category == "fashion" && f.Page == 1 && f.Limit == types.DefaultPageLimit
	})).Return(&types.ProductPage{Items: []types.Product{}, Total: 0, Page: 1, Limit: 20}, nil)

	rr := httptest.NewRecorder()
	testRouter(NewHandlerImpl(svc, slog.Default())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?category=fashion", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var page types.ProductPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasMore)
}

func TestListProductsHandler_InvalidFilter(t *testing.T) {
	svc := new(MockProductService)
	svc.On("SearchProducts", mock.Anything, mock.Anything).Return(nil, types.ErrValidation)

	rr := httptest.NewRecorder()
	testRouter(NewHandlerImpl(svc, slog.Default())).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?sort=random", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetProductHandler(t *testing.T) {
	svc := new(MockProductService)
	h := testRouter(NewHandlerImpl(svc, slog.Default()))

	t.Run("bad id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing", func(t *testing.T) {
		id := uuid.New()
		svc.On("GetProduct", mock.Anything, id).Return(nil, types.ErrNotFound)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/"+id.String(), nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCreateProductHandler(t *testing.T) {
	seller := uuid.New()
	params := types.CreateProductParams{CategorySlug: "books", Title: "Dune", Price: 9.99, Condition: types.ConditionGood}

	t.Run("requires authentication", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body, _ := json.Marshal(params)
		testRouter(NewHandlerImpl(new(MockProductService), slog.Default())).
			ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("created", func(t *testing.T) {
		svc := new(MockProductService)
		created := &types.Product{ID: uuid.New(), SellerID: seller, Title: "Dune", Images: []string{}}
		svc.On("CreateProduct", mock.Anything, seller, params).Return(created, nil)

		body, _ := json.Marshal(params)
		rr := httptest.NewRecorder()
		testRouter(NewHandlerImpl(svc, slog.Default())).
			ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body)), seller))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "/api/v1/products/"+created.ID.String(), rr.Header().Get("Location"))
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		testRouter(NewHandlerImpl(new(MockProductService), slog.Default())).
			ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/products",
				bytes.NewBufferString(`{"title":"x","owner":"me"}`)), seller))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUpdateStatusAndDeleteHandlers(t *testing.T) {
	seller := uuid.New()
	id := uuid.New()

	t.Run("status forbidden for other users", func(t *testing.T) {
		svc := new(MockProductService)
		svc.On("UpdateStatus", mock.Anything, seller, id, types.ProductStatusSold).Return(nil, types.ErrForbidden)

		rr := httptest.NewRecorder()
		testRouter(NewHandlerImpl(svc, slog.Default())).ServeHTTP(rr, asUser(
			httptest.NewRequest(http.MethodPatch, "/products/"+id.String()+"/status", bytes.NewBufferString(`{"status":"sold"}`)), seller))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("delete conflict", func(t *testing.T) {
		svc := new(MockProductService)
		svc.On("DeleteProduct", mock.Anything, seller, id).Return(types.ErrConflict)

		rr := httptest.NewRecorder()
		testRouter(NewHandlerImpl(svc, slog.Default())).ServeHTTP(rr, asUser(
			httptest.NewRequest(http.MethodDelete, "/products/"+id.String(), nil), seller))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockProductService)
		svc.On("DeleteProduct", mock.Anything, seller, id).Return(nil)

		rr := httptest.NewRecorder()
		testRouter(NewHandlerImpl(svc, slog.Default())).ServeHTTP(rr, asUser(
			httptest.NewRequest(http.MethodDelete, "/products/"+id.String(), nil), seller))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
