package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hospitalfood/foodsvc/internal/platform/apperr"
	"github.com/hospitalfood/foodsvc/internal/platform/auth"
	"github.com/hospitalfood/foodsvc/pkg/pagination"
)

type Handler struct {
	svc     *Service
	session *auth.SessionIssuer
	logger  zerolog.Logger
}

func NewHandler(svc *Service, session *auth.SessionIssuer, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, session: session, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/register", h.Register)
	authGroup.GET("/me", h.Me)
	authGroup.POST("/logout", h.Logout)

	staffRead := api.Group("/pantry/staff", auth.RequireRole(RolePantry))
	staffRead.GET("", h.ListStaff)
	staffRead.GET("/:id", h.GetStaff)

	staffWrite := api.Group("/pantry/staff", auth.RequireRole(RoleAdmin))
	staffWrite.POST("", h.CreateStaff)
	staffWrite.PUT("/:id", h.UpdateStaff)
	staffWrite.DELETE("/:id", h.DeleteStaff)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User *Principal `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.startSession(c, p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: p})
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if err := h.startSession(c, p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userResponse{User: p})
}

func (h *Handler) startSession(c echo.Context, p *Principal) error {
	token, _, err := h.session.Issue(p.ID, p.Email, p.Role)
	if err != nil {
		h.logger.Error().Err(err).Str("principal_id", p.ID.String()).Msg("issue session")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not start session")
	}
	h.session.SetCookie(c, token)
	return nil
}

// Me returns the session principal, or {"user": null} for anonymous callers.
func (h *Handler) Me(c echo.Context) error {
	ident := auth.IdentityFromContext(c.Request().Context())
	if ident == nil {
		return c.JSON(http.StatusOK, userResponse{})
	}
	p, err := h.svc.GetPrincipal(c.Request().Context(), ident.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return c.JSON(http.StatusOK, userResponse{})
		}
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, userResponse{User: p})
}

// Logout clears the cookie and revokes the presented session so a copied
// token stops working too.
func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if claims := auth.ClaimsFromContext(ctx); claims != nil {
		if err := h.session.Revoke(ctx, claims); err != nil {
			h.logger.Warn().Err(err).Str("jti", claims.ID).Msg("revoke session on logout")
		}
	}
	h.session.ClearCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// -- Pantry staff --

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListStaff(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListStaff(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Principal{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetStaff(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.CreateStaff(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateStaffInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdateStaff(c.Request().Context(), id, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteStaff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteStaff(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
