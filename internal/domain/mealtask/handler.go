package mealtask

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
	"github.com/hospitalfood/foodsvc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Kitchen endpoints – admin, pantry
	kitchen := api.Group("", auth.RequireRole(auth.RolePantry))
	kitchen.GET("/pantry/tasks", h.List)
	kitchen.POST("/pantry/tasks", h.Create)
	kitchen.GET("/pantry/tasks/:id", h.Get)
	kitchen.PATCH("/pantry/tasks/:id/assign", h.Assign)
	kitchen.GET("/pantry/delivery-staff", h.DeliveryStaff)
	kitchen.GET("/pantry/staff/:id/tasks", h.ListByPantryStaff)
	kitchen.GET("/delivery-staff/active", h.ActiveDeliveryStaff)

	// Any signed-in principal; the service scopes delivery staff
	signedIn := api.Group("", auth.RequireAuth())
	signedIn.PATCH("/pantry/tasks/:id/status", h.SetStatus)
	signedIn.GET("/deliveries", h.ListDeliveries)
	signedIn.GET("/delivery-updates", h.DeliveryUpdates)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func actor(c echo.Context) *auth.Identity {
	return auth.IdentityFromContext(c.Request().Context())
}

func page(c echo.Context, items []*Task, total int, pg pagination.Params) error {
	if items == nil {
		items = []*Task{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return page(c, items, total, pg)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.SetStatus(c.Request().Context(), actor(c), id, in.Status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Assign(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in AssignInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.StaffID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "staff_id is required")
	}
	t, err := h.svc.Assign(c.Request().Context(), actor(c), id, in.StaffID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeliveryStaff(c echo.Context) error {
	staff, err := h.svc.DeliveryStaffPending(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, staff)
}

func (h *Handler) ListByPantryStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPantryStaff(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return page(c, items, total, pg)
}

func (h *Handler) ListDeliveries(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDeliveries(c.Request().Context(), actor(c), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return page(c, items, total, pg)
}

func (h *Handler) ActiveDeliveryStaff(c echo.Context) error {
	board, err := h.svc.DeliveryStaffWorkload(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, board)
}

func (h *Handler) DeliveryUpdates(c echo.Context) error {
	updates, err := h.svc.RecentUpdates(c.Request().Context(), RecentUpdatesLimit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, updates)
}
