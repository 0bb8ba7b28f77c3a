package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hospitalfood/foodsvc/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Meera","room":101,"bed":2,"floor":1,"age":60,"gender":"female",
		"diseases":["hypertension"],"allergies":[],
		"diet_chart":{"breakfast":{"items":["idli",""],"calories":300},
		"lunch":{"items":["rice"],"calories":500,"nutrients":{"protein_g":20}},
		"dinner":{"items":["soup"],"calories":250}}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Patient
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.DietCharts) != 1 || len(got.DietCharts[0].Breakfast.Items) != 1 {
		t.Errorf("unexpected diet charts %+v", got.DietCharts)
	}
	if got.DietCharts[0].Lunch.Nutrients.ProteinG != 20 {
		t.Error("nutrients not carried")
	}
}

func TestHandler_Create_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Create(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, e := newTestHandler()
	p, _ := h.svc.Create(context.Background(), sampleInput("Meera", 101))

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_List(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), sampleInput("B", 202))
	h.svc.Create(context.Background(), sampleInput("A", 101))

	req := httptest.NewRequest(http.MethodGet, "/?limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data    []Patient `json:"data"`
		Total   int       `json:"total"`
		HasMore bool      `json:"has_more"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 2 || len(page.Data) != 1 || !page.HasMore {
		t.Errorf("unexpected page %+v", page)
	}
	if page.Data[0].Room != 101 {
		t.Errorf("expected room 101 first, got %d", page.Data[0].Room)
	}
}

func TestHandler_RoutesGated(t *testing.T) {
	h, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api"))
	pantry := &auth.Identity{ID: uuid.New(), Role: auth.RolePantry}

	cases := []struct {
		method string
		ident  *auth.Identity
		want   int
	}{
		{http.MethodGet, nil, http.StatusUnauthorized},
		{http.MethodGet, pantry, http.StatusOK},
		{http.MethodPost, pantry, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/api/patients", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if tc.ident != nil {
			req = req.WithContext(auth.WithIdentity(req.Context(), tc.ident))
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s as %v: expected %d, got %d", tc.method, tc.ident, tc.want, rec.Code)
		}
	}
}
