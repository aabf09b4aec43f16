package category

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/secondhand-market/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListCategories(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	service CategoryService
	logger  *slog.Logger
}

func NewHandlerImpl(service CategoryService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// ListCategories godoc
// @Summary      List categories
// @Description  Returns all product categories ordered for display.
// @Tags         Categories
// @Produce      json
// @Success      200 {array} types.Category
// @Failure      500 {object} types.Response
// @Router       /categories [get]
func (h *HandlerImpl) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list categories", slog.Any("error", err))
		api.ServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	api.WriteJSONResponse(w, r, http.StatusOK, categories)
}
