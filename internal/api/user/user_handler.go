package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/secondhand-market/internal/api"
	"github.com/FACorreiaa/secondhand-market/internal/api/auth"
	"github.com/FACorreiaa/secondhand-market/internal/api/product"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetUserProfile(w http.ResponseWriter, r *http.Request)
	UpdateUserProfile(w http.ResponseWriter, r *http.Request)
	GetPublicProfile(w http.ResponseWriter, r *http.Request)
	ListUserProducts(w http.ResponseWriter, r *http.Request)
	ListMyProducts(w http.ResponseWriter, r *http.Request)
}

// ProductSearcher is the part of the product service the seller pages need.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, filter types.ProductFilter) (*types.ProductPage, error)
}

type HandlerImpl struct {
	userService UserService
	products    ProductSearcher
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, products ProductSearcher, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		products:    products,
		logger:      logger,
	}
}

// GetUserProfile godoc
// @Summary      Get User Profile
// @Description  Retrieves the authenticated user's profile information.
// @Tags         User
// @Accept       json
// @Produce      json
// @Success      200 {object} types.UserProfile "User Profile"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      404 {object} types.Response "User Not Found"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *HandlerImpl) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}

	profile, err := h.userService.GetUserProfile(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get user profile", slog.String("HandlerImpl", "GetUserProfile"), slog.Any("error", err))
		api.ServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateUserProfile godoc
// @Summary      Update User Profile
// @Description  Updates the authenticated user's profile. Omitted fields are unchanged; empty strings clear optional fields.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        profile body types.UpdateProfileParams true "Profile Update Parameters"
// @Success      200 {object} types.UserProfile "Updated profile"
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      409 {object} types.Response "Username taken"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Security     BearerAuth
// @Router       /users/me [put]
func (h *HandlerImpl) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request", slog.String("HandlerImpl", "UpdateUserProfile"), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.UpdateUserProfile(ctx, userID, params)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// GetPublicProfile godoc
// @Summary      Get seller profile
// @Description  Public view of a user. Email is never included.
// @Tags         User
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} types.PublicProfile
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Router       /users/{userID} [get]
func (h *HandlerImpl) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := api.URLParamUUID(r, "userID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	profile, err := h.userService.GetPublicProfile(r.Context(), userID)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// ListUserProducts godoc
// @Summary      List a seller's products
// @Description  Same filters as /products, scoped to one seller.
// @Tags         User
// @Produce      json
// @Param        userID path string true "User ID"
// @Param        status query string false "available (default), reserved, sold or all"
// @Param        sort   query string false "newest, oldest, price_asc, price_desc, popular"
// @Param        page   query int    false "Page number"
// @Param        limit  query int    false "Page size"
// @Success      200 {object} types.ProductPage
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Router       /users/{userID}/products [get]
func (h *HandlerImpl) ListUserProducts(w http.ResponseWriter, r *http.Request) {
	userID, err := api.URLParamUUID(r, "userID")
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	// Unknown sellers are a 404 rather than an empty page.
	if _, err := h.userService.GetPublicProfile(r.Context(), userID); err != nil {
		api.ServiceError(w, r, err)
		return
	}
	h.listSellerProducts(w, r, userID, "")
}

// ListMyProducts godoc
// @Summary      List my products
// @Description  The authenticated seller's listings, including reserved and sold ones unless status is given.
// @Tags         User
// @Produce      json
// @Param        status query string false "available, reserved, sold or all (default)"
// @Param        page   query int    false "Page number"
// @Param        limit  query int    false "Page size"
// @Success      200 {object} types.ProductPage
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /users/me/products [get]
func (h *HandlerImpl) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	h.listSellerProducts(w, r, userID, types.StatusAll)
}

func (h *HandlerImpl) listSellerProducts(w http.ResponseWriter, r *http.Request, sellerID uuid.UUID, defaultStatus string) {
	filter, err := product.ParseProductFilter(r)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	filter.SellerID = &sellerID
	if filter.Status == "" {
		filter.Status = defaultStatus
	}

	page, err := h.products.SearchProducts(r.Context(), filter)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, page)
}
