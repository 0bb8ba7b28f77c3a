package alert

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
	"github.com/hospitalfood/foodsvc/pkg/pagination"
)

// Handler serves alerts straight from the repository; there is no business
// logic between the two.
type Handler struct {
	repo AlertRepository
}

func NewHandler(repo AlertRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/alerts", auth.RequireAuth())
	g.GET("", h.List)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.repo.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Alert{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
