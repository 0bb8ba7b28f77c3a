package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	kitchen := api.Group("/dashboard", auth.RequireRole(auth.RolePantry))
	kitchen.GET("/diet-plans", h.DietPlans)
	kitchen.GET("/pantry-metrics", h.PantryMetrics)

	signedIn := api.Group("/dashboard", auth.RequireAuth())
	signedIn.GET("/delivery-metrics", h.DeliveryMetrics)
}

func (h *Handler) DietPlans(c echo.Context) error {
	plans, err := h.svc.DietPlans(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) PantryMetrics(c echo.Context) error {
	m, err := h.svc.PantryMetrics(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

// DeliveryMetrics reports on the requesting principal's own deliveries.
func (h *Handler) DeliveryMetrics(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	if ident == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	m, err := h.svc.DeliveryMetrics(c.Request().Context(), ident.ID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}
