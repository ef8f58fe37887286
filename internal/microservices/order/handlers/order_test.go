package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-automation/internal/domain"
)

type stubService struct {
	lastReq   domain.CreateOrderRequest
	lastActor string
	err       error
	menu      []domain.MenuItem
}

func (s *stubService) AddOrder(_ context.Context, req domain.CreateOrderRequest, actor string) (domain.CreateOrderResponse, error) {
	s.lastReq, s.lastActor = req, actor
	if s.err != nil {
		return domain.CreateOrderResponse{}, s.err
	}
	return domain.CreateOrderResponse{ID: 1, OrderNumber: "ORD_20250601_001", Status: domain.StatusPending, TotalAmount: "4.50", Automated: true}, nil
}

func (s *stubService) AddMenuItem(_ context.Context, req domain.CreateMenuItemRequest) (domain.MenuItem, error) {
	if s.err != nil {
		return domain.MenuItem{}, s.err
	}
	return domain.MenuItem{ID: 7, Name: req.Name, Price: decimal.RequireFromString(req.Price)}, nil
}

func (s *stubService) ListMenu(context.Context) ([]domain.MenuItem, error) { return s.menu, s.err }

func router(s *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewOrderHandler(s).Register(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAddOrder(t *testing.T) {
	svc := &stubService{}
	w := do(router(svc), http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_name": "Meera",
		"channel":       "web",
		"items":         []map[string]any{{"menu_item_id": 1, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool                       `json:"success"`
		Data    domain.CreateOrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ORD_20250601_001", resp.Data.OrderNumber)
	assert.Equal(t, "staff", svc.lastActor)
	assert.Equal(t, domain.ChannelWeb, svc.lastReq.Channel)
}

func TestAddOrderRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"missing items", map[string]any{"customer_name": "A", "channel": "web"}},
		{"zero quantity", map[string]any{"customer_name": "A", "channel": "web", "items": []map[string]any{{"menu_item_id": 1, "quantity": 0}}}},
		{"missing customer", map[string]any{"channel": "web", "items": []map[string]any{{"menu_item_id": 1, "quantity": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router(&stubService{}), http.MethodPost, "/api/v1/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestAddOrderMapsServiceErrors(t *testing.T) {
	w := do(router(&stubService{err: domain.ErrValidation}), http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_name": "A", "channel": "web", "items": []map[string]any{{"menu_item_id": 99, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMenuRoutes(t *testing.T) {
	svc := &stubService{menu: []domain.MenuItem{{ID: 1, Name: "Dosa", Price: decimal.RequireFromString("4.50")}}}
	r := router(svc)

	w := do(r, http.MethodPost, "/api/v1/menu-items", map[string]any{"name": "Idli", "price": "3.00"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Idli"`)

	w = do(r, http.MethodGet, "/api/v1/menu-items", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Dosa"`)

	w = do(r, http.MethodPost, "/api/v1/menu-items", map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
