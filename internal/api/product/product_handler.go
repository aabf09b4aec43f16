package product

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/secondhand-market/internal/api"
	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListProducts(w http.ResponseWriter, r *http.Request)
	GetProduct(w http.ResponseWriter, r *http.Request)
	CreateProduct(w http.ResponseWriter, r *http.Request)
	UpdateProduct(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
	DeleteProduct(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	service ProductService
	logger  *slog.Logger
}

func NewHandlerImpl(service ProductService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// ParseProductFilter reads the listing query string. Defaults are applied later by NormalizeFilter.
func ParseProductFilter(r *http.Request) (types.ProductFilter, error) {
	q := r.URL.Query()
	f := types.ProductFilter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Status:   q.Get("status"),
		Sort:     types.ProductSort(strings.ToLower(strings.TrimSpace(q.Get("sort")))),
	}
	var err error
	if f.MinPrice, err = api.QueryFloat(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = api.QueryFloat(r, "max_price"); err != nil {
		return f, err
	}
	if f.Page, err = api.QueryInt(r, "page", 1); err != nil {
		return f, err
	}
	if f.Limit, err = api.QueryInt(r, "limit", types.DefaultPageLimit); err != nil {
		return f, err
	}
	if raw := strings.TrimSpace(q.Get("seller_id")); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return f, fmt.Errorf("%w: invalid seller_id %q", types.ErrValidation, raw)
		}
		f.SellerID = &sellerID
	}
	return f, nil
}

// ListProducts godoc
// @Summary      Browse and search products
// @Description  Filters by category, text, price range, status and seller. Results are paged.
// @Tags         Products
// @Produce      json
// @Param        category   query string false "Category slug"
// @Param        q          query string false "Search text matched against title and description"
// @Param        min_price  query number false "Minimum price (inclusive)"
// @Param        max_price  query number false "Maximum price (inclusive)"
// @Param        status     query string false "available (default), reserved, sold or all"
// @Param        seller_id  query string false "Seller UUID"
// @Param        sort       query string false "newest, oldest, price_asc, price_desc, popular"
// @Param        page       query int    false "Page number, from 1"
// @Param        limit      query int    false "Page size, 1 to 100"
// @Success      200 {object} types.ProductPage
// @Failure      400 {object} types.Response
// @Router       /products [get]
func (h *HandlerImpl) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseProductFilter(r)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	page, err := h.service.SearchProducts(r.Context(), filter)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}

// GetProduct godoc
// @Summary      Get product
// @Description  Returns a product with its full image gallery.
// @Tags         Products
// @Produce      json
// @Param        productID path string true "Product ID"
// @Success      200 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Router       /products/{productID} [get]
func (h *HandlerImpl) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := api.URLParamUUID(r, "productID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// CreateProduct godoc
// @Summary      List a product for sale
// @Tags         Products
// @Accept       json
// @Produce      json
// @Param        product body types.CreateProductParams true "Product"
// @Success      201 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /products [post]
func (h *HandlerImpl) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	var params types.CreateProductParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.CreateProduct(r.Context(), userID, params)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/products/"+p.ID.String())
	api.WriteJSONResponse(w, r, http.StatusCreated, p)
}

// UpdateProduct godoc
// @Summary      Edit a product
// @Description  Only the seller may edit. Images are replaced when provided.
// @Tags         Products
// @Accept       json
// @Produce      json
// @Param        productID path string true "Product ID"
// @Param        product body types.UpdateProductParams true "Fields to change"
// @Success      200 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /products/{productID} [put]
func (h *HandlerImpl) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	id, err := api.URLParamUUID(r, "productID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	var params types.UpdateProductParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), userID, id, params)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// UpdateStatus godoc
// @Summary      Change product status
// @Tags         Products
// @Accept       json
// @Produce      json
// @Param        productID path string true "Product ID"
// @Param        status body types.UpdateStatusRequest true "available, reserved or sold"
// @Success      200 {object} types.Product
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /products/{productID}/status [patch]
func (h *HandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	id, err := api.URLParamUUID(r, "productID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	var req types.UpdateStatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.UpdateStatus(r.Context(), userID, id, req.Status)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// DeleteProduct godoc
// @Summary      Delete a product
// @Tags         Products
// @Param        productID path string true "Product ID"
// @Success      204
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Failure      409 {object} types.Response
// @Security     BearerAuth
// @Router       /products/{productID} [delete]
func (h *HandlerImpl) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	id, err := api.URLParamUUID(r, "productID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), userID, id); err != nil {
		h.logger.WarnContext(r.Context(), "Delete product failed", slog.String("productID", id.String()), slog.Any("error", err))
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
